package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"vidgen-gateway/database"
	"vidgen-gateway/errno"
	"vidgen-gateway/middlewares"
	"vidgen-gateway/models"
)

type credentials struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72" normalize:"-"`
}

type AuthController struct {
	store      *database.Store
	sessions   *middlewares.SessionManager
	bcryptCost int
	log        logrus.FieldLogger
}

func NewAuthController(store *database.Store, sessions *middlewares.SessionManager, bcryptCost int, log logrus.FieldLogger) *AuthController {
	return &AuthController{store: store, sessions: sessions, bcryptCost: bcryptCost, log: log}
}

func userJSON(user *models.User) fiber.Map {
	return fiber.Map{"id": user.Id, "email": user.Email}
}

func (a *AuthController) Register(c *fiber.Ctx) error {
	var in credentials
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	user := models.User{Email: in.Email}
	if err := user.SetPassword(in.Password, a.bcryptCost); err != nil {
		return errno.Wrap(errno.ErrInternal, "", err)
	}
	if err := a.store.CreateUser(c.UserContext(), &user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			return errno.New(errno.ErrConflict, "email already exists")
		}
		return errno.Wrap(errno.ErrInternal, "", err)
	}

	if err := a.startSession(c, &user); err != nil {
		return err
	}
	a.log.WithField("user_id", user.Id).Info("user registered")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": userJSON(&user)})
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	var in credentials
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	user, err := a.store.FindUserByEmail(c.UserContext(), in.Email)
	if err != nil {
		return errno.Wrap(errno.ErrInternal, "", err)
	}
	// same answer for unknown email and wrong password
	if user == nil || !user.ComparePassword(in.Password) {
		return errno.New(errno.ErrAuthRequired, "Invalid credentials")
	}

	if err := a.startSession(c, user); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": userJSON(user)})
}

func (a *AuthController) startSession(c *fiber.Ctx, user *models.User) error {
	token, err := a.sessions.IssueToken(user.Id, user.Email)
	if err != nil {
		return errno.Wrap(errno.ErrInternal, "", err)
	}
	a.sessions.SetCookie(c, token)
	return nil
}

func (a *AuthController) Logout(c *fiber.Ctx) error {
	a.sessions.ClearCookie(c)
	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// Me returns the signed-in user. Mounted behind RequireUser.
func (a *AuthController) Me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"user": userJSON(middlewares.UserFrom(c))})
}
