package controllers

import (
	"github.com/gofiber/fiber/v2"

	"vidgen-gateway/errno"
	"vidgen-gateway/services"
	"vidgen-gateway/upstream"
)

type UploadController struct {
	generation *services.GenerationService
}

func NewUploadController(generation *services.GenerationService) *UploadController {
	return &UploadController{generation: generation}
}

// Upload relays the "files" form field to the generation service and sends
// its answer back unchanged.
func (u *UploadController) Upload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return errno.New(errno.ErrInvalidRequest, "No files provided")
	}
	relay, err := u.generation.Upload(c.UserContext(), form.File[upstream.UploadField])
	if err != nil {
		return err
	}
	if relay.ContentType != "" {
		c.Set(fiber.HeaderContentType, relay.ContentType)
	}
	return c.Status(relay.StatusCode).Send(relay.Body)
}
