package server

import (
	"time"

	"docvault/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// tokenLifetime is the absolute session length; there is no refresh and no
// revocation list.
const tokenLifetime = 24 * time.Hour

// UserDTO is the public shape of a user in API responses.
type UserDTO struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserDTO(u *models.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.EmailString(),
		Role:      string(u.Role),
		Status:    string(u.Status),
		Note:      u.Note,
		CreatedAt: u.CreatedAt,
	}
}

// Login handles POST /auth/login. The email field doubles as the
// identifier: it matches either email or username.
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.lifecycle.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	token, err := s.generateToken(user.ID, user.Role)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  toUserDTO(user),
	})
}

// Register handles POST /auth/register. Accounts start pending and cannot
// log in until approved.
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Note     string `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.lifecycle.Register(c.UserContext(), req.Username, req.Password, req.Note)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(toUserDTO(user))
}

// generateToken creates a JWT carrying the user ID and role.
func (s *Server) generateToken(userID string, role models.Role) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"exp":  now.Add(tokenLifetime).Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}
