package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/models"
	"docvault/internal/repository"
	"docvault/internal/service"
	"docvault/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestServer builds a Server over in-memory SQLite and a temp blob root.
// The prometheus middleware is left out so repeated test setups don't fight
// over collector registration.
func newTestServer(t *testing.T) (*Server, *fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret:                "test-secret",
		StorageRoot:              t.TempDir(),
		DownloadApprovalTTLHours: 24,
	}

	blobs := storage.NewBlobStore(cfg.StorageRoot)
	require.NoError(t, blobs.EnsureRoot())

	userRepo := repository.NewUserRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	requestRepo := repository.NewDownloadRequestRepository(db)

	s := &Server{
		config:      cfg,
		db:          db,
		userRepo:    userRepo,
		docRepo:     docRepo,
		requestRepo: requestRepo,
		blobs:       blobs,
	}
	s.lifecycle = service.NewUserLifecycleService(userRepo)
	s.documents = service.NewDocumentService(docRepo, requestRepo, blobs)
	s.release = service.NewReleaseService(requestRepo, docRepo, cfg.ApprovalTTL())

	app := fiber.New(fiber.Config{BodyLimit: maxUploadBytes})
	s.SetupRoutes(app)

	return s, app, db
}

// seedAccount inserts a user directly and returns it with a valid token.
func seedAccount(t *testing.T, s *Server, db *gorm.DB, username string, role models.Role, status models.UserStatus) (*models.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		Role:         role,
		Status:       status,
		PasswordHash: string(hash),
	}
	require.NoError(t, db.Create(user).Error)

	token, err := s.generateToken(user.ID, user.Role)
	require.NoError(t, err)
	return user, token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

type uploadOpts struct {
	filename     string
	contentType  string
	content      []byte
	notes        string
	permission   string
	allowedUsers string
	isGenerated  string
}

func doUpload(t *testing.T, app *fiber.App, token string, opts uploadOpts) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if opts.content != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+opts.filename+`"`)
		if opts.contentType != "" {
			h.Set("Content-Type", opts.contentType)
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(opts.content)
		require.NoError(t, err)
	}
	if opts.notes != "" {
		require.NoError(t, w.WriteField("notes", opts.notes))
	}
	if opts.permission != "" {
		require.NoError(t, w.WriteField("permission", opts.permission))
	}
	if opts.allowedUsers != "" {
		require.NoError(t, w.WriteField("allowed_users", opts.allowedUsers))
	}
	if opts.isGenerated != "" {
		require.NoError(t, w.WriteField("is_generated", opts.isGenerated))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}
