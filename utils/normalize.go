package utils

import (
	"reflect"
	"strings"
)

// NormalizePtrDTO trims *string fields and rounds *float64 fields on a pointer-to-struct DTO.
// Only non-nil pointer fields are touched; nils stay nil so GORM won't update them.
func NormalizePtrDTO(dto any) {
	eachField(dto, func(f reflect.Value) {
		if f.Kind() != reflect.Ptr || f.IsNil() {
			return
		}
		normalizeScalar(f.Elem())
	})
}

// NormalizeDTO trims string fields and rounds float64 fields on a pointer-to-struct DTO.
// Request bodies go through it before validation so "   " counts as empty.
// Fields tagged `normalize:"-"` (passwords) are kept exactly as sent.
func NormalizeDTO(dto any) {
	eachField(dto, func(f reflect.Value) {
		if f.CanSet() {
			normalizeScalar(f)
		}
	})
}

func eachField(dto any, fn func(reflect.Value)) {
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	s := v.Elem()
	if s.Kind() != reflect.Struct {
		return
	}
	t := s.Type()
	for i := 0; i < s.NumField(); i++ {
		if t.Field(i).Tag.Get("normalize") == "-" {
			continue
		}
		fn(s.Field(i))
	}
}

func normalizeScalar(f reflect.Value) {
	switch f.Kind() {
	case reflect.String:
		f.SetString(strings.TrimSpace(f.String()))
	case reflect.Float64:
		f.SetFloat(Round2(f.Float()))
	}
}
