package server

import (
	"time"

	"docvault/internal/models"
	"docvault/internal/service"

	"github.com/gofiber/fiber/v2"
)

// DownloadRequestDTO is the API shape of a ledger entry. Document and
// requester names are denormalized for review queues.
type DownloadRequestDTO struct {
	ID               string     `json:"id"`
	DocumentID       string     `json:"documentId"`
	DocumentName     string     `json:"documentName"`
	RequesterID      string     `json:"requesterId"`
	RequesterName    string     `json:"requesterName"`
	ApplicantName    string     `json:"applicantName"`
	ApplicantCompany string     `json:"applicantCompany"`
	ApplicantContact string     `json:"applicantContact"`
	Message          string     `json:"message"`
	Status           string     `json:"status"`
	ApproverID       *string    `json:"approverId"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	ApprovedAt       *time.Time `json:"approvedAt"`
	RejectedAt       *time.Time `json:"rejectedAt"`
	ExpiresAt        *time.Time `json:"expiresAt"`
}

func toDownloadRequestDTO(r *models.DownloadRequest) DownloadRequestDTO {
	dto := DownloadRequestDTO{
		ID:               r.ID,
		DocumentID:       r.DocumentID,
		RequesterID:      r.RequesterID,
		ApplicantName:    r.ApplicantName,
		ApplicantCompany: r.ApplicantCompany,
		ApplicantContact: r.ApplicantContact,
		Message:          r.Message,
		Status:           string(r.Status),
		ApproverID:       r.ApproverID,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		ApprovedAt:       r.ApprovedAt,
		RejectedAt:       r.RejectedAt,
		ExpiresAt:        r.ExpiresAt,
	}
	if r.Document != nil {
		dto.DocumentName = r.Document.Name
	}
	if r.Requester != nil {
		dto.RequesterName = r.Requester.Username
	}
	return dto
}

func toDownloadRequestDTOs(rows []models.DownloadRequest) []DownloadRequestDTO {
	resp := make([]DownloadRequestDTO, 0, len(rows))
	for i := range rows {
		resp = append(resp, toDownloadRequestDTO(&rows[i]))
	}
	return resp
}

// CreateDownloadRequest handles POST /documents/:id/download-requests.
func (s *Server) CreateDownloadRequest(c *fiber.Ctx) error {
	var req struct {
		ApplicantName    string `json:"applicant_name"`
		ApplicantCompany string `json:"applicant_company"`
		ApplicantContact string `json:"applicant_contact"`
		Message          string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	created, err := s.release.Create(c.UserContext(), c.Params("id"), s.principal(c), service.CreateRequestInput{
		ApplicantName:    req.ApplicantName,
		ApplicantCompany: req.ApplicantCompany,
		ApplicantContact: req.ApplicantContact,
		Message:          req.Message,
	})
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(toDownloadRequestDTO(created))
}

// MyDownloadRequests handles GET /download-requests/mine.
func (s *Server) MyDownloadRequests(c *fiber.Ctx) error {
	rows, err := s.release.ListMine(c.UserContext(), s.principal(c))
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(toDownloadRequestDTOs(rows))
}

// PendingDownloadRequests handles GET /download-requests/pending: the review
// queue scoped to the caller's documents, or every pending request for
// admins.
func (s *Server) PendingDownloadRequests(c *fiber.Ctx) error {
	rows, err := s.release.ListPending(c.UserContext(), s.principal(c))
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(toDownloadRequestDTOs(rows))
}

// ApproveDownloadRequest handles POST /download-requests/:id/approve. A
// request that is already decided, or that the caller may not decide,
// reports 404.
func (s *Server) ApproveDownloadRequest(c *fiber.Ctx) error {
	if err := s.release.Approve(c.UserContext(), c.Params("id"), s.principal(c), time.Now()); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RejectDownloadRequest handles POST /download-requests/:id/reject.
func (s *Server) RejectDownloadRequest(c *fiber.Ctx) error {
	if err := s.release.Reject(c.UserContext(), c.Params("id"), s.principal(c), time.Now()); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
