package server

import (
	"docvault/internal/models"
	"docvault/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Me handles GET /me.
func (s *Server) Me(c *fiber.Ctx) error {
	user, err := s.userRepo.GetByID(c.UserContext(), s.principal(c).ID)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(toUserDTO(user))
}

// ListUsers handles GET /users (admin only).
func (s *Server) ListUsers(c *fiber.Ctx) error {
	users, err := s.userRepo.List(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	resp := make([]UserDTO, 0, len(users))
	for i := range users {
		resp = append(resp, toUserDTO(&users[i]))
	}
	return c.JSON(resp)
}

// CreateUser handles POST /users (admin only). Created accounts are active
// immediately.
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.lifecycle.AdminCreate(c.UserContext(), service.AdminCreateInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(toUserDTO(user))
}

// DeleteUser handles DELETE /users/:id (admin only). Owned documents and
// ledger entries go with the account; blob files are removed best-effort.
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	relPaths, err := s.lifecycle.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	for _, relPath := range relPaths {
		_ = s.blobs.Remove(relPath)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListPendingUsers handles GET /users/pending (admin only).
func (s *Server) ListPendingUsers(c *fiber.Ctx) error {
	users, err := s.userRepo.ListPending(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	resp := make([]UserDTO, 0, len(users))
	for i := range users {
		resp = append(resp, toUserDTO(&users[i]))
	}
	return c.JSON(resp)
}

// ApproveUser handles POST /users/:id/approve (admin only).
func (s *Server) ApproveUser(c *fiber.Ctx) error {
	if err := s.lifecycle.Approve(c.UserContext(), c.Params("id")); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DisableUser handles POST /users/:id/disable (admin only). Outstanding
// tokens keep working until they expire; only future logins are blocked.
func (s *Server) DisableUser(c *fiber.Ctx) error {
	if err := s.lifecycle.Disable(c.UserContext(), c.Params("id")); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UserDirectory handles GET /user-directory: the share-list picker
// available to every authenticated user.
func (s *Server) UserDirectory(c *fiber.Ctx) error {
	entries, err := s.userRepo.Directory(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(entries)
}
