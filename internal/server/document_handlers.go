package server

import (
	"fmt"
	"io"
	"strings"
	"time"

	"docvault/internal/models"
	"docvault/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// DocumentDTO is the API shape of a document, with the owner's username
// denormalized for list views.
type DocumentDTO struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	MimeType              string          `json:"type"`
	Size                  int64           `json:"size"`
	Notes                 string          `json:"notes"`
	OwnerID               string          `json:"ownerId"`
	OwnerName             string          `json:"ownerName"`
	Permission            string          `json:"permission"`
	AllowedUsers          models.UUIDList `json:"allowedUsers"`
	IsGenerated           bool            `json:"isGenerated"`
	DownloadPreauthorized bool            `json:"downloadPreauthorized"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

func toDocumentDTO(d *models.Document) DocumentDTO {
	allowed := d.AllowedUsers
	if allowed == nil {
		allowed = models.UUIDList{}
	}
	return DocumentDTO{
		ID:                    d.ID,
		Name:                  d.Name,
		MimeType:              d.MimeType,
		Size:                  d.Size,
		Notes:                 d.Notes,
		OwnerID:               d.OwnerID,
		OwnerName:             d.OwnerName(),
		Permission:            string(d.Permission),
		AllowedUsers:          allowed,
		IsGenerated:           d.IsGenerated,
		DownloadPreauthorized: d.DownloadPreauthorized,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
}

// ListDocuments handles GET /documents: every document visible to the
// caller, newest first.
func (s *Server) ListDocuments(c *fiber.Ctx) error {
	docs, err := s.documents.List(c.UserContext(), s.principal(c))
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	resp := make([]DocumentDTO, 0, len(docs))
	for i := range docs {
		resp = append(resp, toDocumentDTO(&docs[i]))
	}
	return c.JSON(resp)
}

// UploadDocument handles POST /documents. The body is multipart: a "file"
// part carries the bytes, display filename and content type; the remaining
// parts are plain form values.
func (s *Server) UploadDocument(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("file is required"))
	}

	f, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("file is required"))
	}
	content, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	permission := models.Permission(strings.TrimSpace(c.FormValue("permission", string(models.PermissionPublic))))

	in := service.UploadInput{
		Filename:     fileHeader.Filename,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		Content:      content,
		Notes:        c.FormValue("notes"),
		Permission:   permission,
		AllowedUsers: parseAllowedUsers(c.FormValue("allowed_users")),
		IsGenerated:  parseFormBool(c.FormValue("is_generated")),
	}

	doc, err := s.documents.Upload(c.UserContext(), s.principal(c).ID, in)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(toDocumentDTO(doc))
}

// parseAllowedUsers splits the comma-separated id list from the multipart
// form, dropping empty and malformed entries.
func parseAllowedUsers(raw string) models.UUIDList {
	out := models.UUIDList{}
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

// parseFormBool accepts "1" or case-insensitive "true".
func parseFormBool(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw == "1" || strings.EqualFold(raw, "true")
}

// PatchDocument handles PATCH /documents/:id. Absent fields are retained.
func (s *Server) PatchDocument(c *fiber.Ctx) error {
	var req struct {
		Name                  *string          `json:"name"`
		Notes                 *string          `json:"notes"`
		Permission            *string          `json:"permission"`
		AllowedUsers          *models.UUIDList `json:"allowedUsers"`
		DownloadPreauthorized *bool            `json:"downloadPreauthorized"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	// Responses are camelCase, but clients written against the earlier API
	// send snake_case bodies; accept both spellings.
	var alt struct {
		AllowedUsers          *models.UUIDList `json:"allowed_users"`
		DownloadPreauthorized *bool            `json:"download_preauthorized"`
	}
	if err := c.BodyParser(&alt); err == nil {
		if req.AllowedUsers == nil {
			req.AllowedUsers = alt.AllowedUsers
		}
		if req.DownloadPreauthorized == nil {
			req.DownloadPreauthorized = alt.DownloadPreauthorized
		}
	}

	in := service.PatchInput{
		Name:                  req.Name,
		Notes:                 req.Notes,
		AllowedUsers:          req.AllowedUsers,
		DownloadPreauthorized: req.DownloadPreauthorized,
	}
	if req.Permission != nil {
		p := models.Permission(*req.Permission)
		in.Permission = &p
	}

	doc, err := s.documents.Patch(c.UserContext(), c.Params("id"), s.principal(c), in)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(toDocumentDTO(doc))
}

// DeleteDocument handles DELETE /documents/:id.
func (s *Server) DeleteDocument(c *fiber.Ctx) error {
	if err := s.documents.Delete(c.UserContext(), c.Params("id"), s.principal(c)); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DownloadDocument handles GET /documents/:id/download. The response is the
// stored bytes with the stored content type and an attachment disposition.
func (s *Server) DownloadDocument(c *fiber.Ctx) error {
	doc, data, err := s.documents.Download(c.UserContext(), c.Params("id"), s.principal(c), time.Now())
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	c.Set(fiber.HeaderContentType, doc.MimeType)
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", doc.Name))
	return c.Send(data)
}
