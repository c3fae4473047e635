package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type User struct {
	Id        string    `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"unique;not null"`
	Password  []byte    `json:"-" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	if user.Id == "" {
		user.Id = uuid.NewString()
	}
	return
}

func (user *User) SetPassword(password string, cost int) error {
	hashed, err := HashPassword(password, cost)
	if err != nil {
		return err
	}
	user.Password = hashed
	return nil
}

func (user *User) ComparePassword(password string) bool {
	return VerifyPassword(password, user.Password)
}

// HashPassword returns a salted bcrypt hash. Costs below bcrypt.DefaultCost are raised.
func HashPassword(password string, cost int) ([]byte, error) {
	if cost < bcrypt.DefaultCost {
		cost = bcrypt.DefaultCost
	}
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

// VerifyPassword reports whether password matches hash.
func VerifyPassword(password string, hash []byte) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
