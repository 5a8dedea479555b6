// Package testutil boots the full API against in-memory backends for HTTP level tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/config"
	"github.com/noah-isme/testseries-api/internal/database"
	"github.com/noah-isme/testseries-api/internal/models"
	"github.com/noah-isme/testseries-api/internal/repository"
	"github.com/noah-isme/testseries-api/internal/server"
	"github.com/noah-isme/testseries-api/pkg/localstore"
)

// Shared fixture values.
const (
	JWTSecret = "test-secret"
	SeedToken = "seed-secret"

	AuditTestID    = "T-AUDIT-1"
	AuditTestTitle = "Audit Mock Test 1"
	TaxTestID      = "T-TAX-1"
)

// Identity is a caller the harness can mint tokens for.
type Identity struct {
	ID   string
	Name string
	Role string
}

// Fixture identities.
var (
	StudentS1 = Identity{ID: "S1", Name: "Asha", Role: "student"}
	StudentS2 = Identity{ID: "S2", Name: "Bikash", Role: "student"}
	TeacherT1 = Identity{ID: "T1", Name: "Mr. Thapa", Role: "teacher"}
	TeacherT2 = Identity{ID: "T2", Name: "Ms. Rai", Role: "teacher"}
	AdminA1   = Identity{ID: "A1", Name: "Admin", Role: "admin"}
)

// Harness is a running API wired to sqlite, an in-memory file store and miniredis.
type Harness struct {
	Server *server.Server
	App    *fiber.App
	DB     *gorm.DB
	Redis  *miniredis.Miniredis
	Config config.Config
}

// Envelope mirrors the JSON response wrapper.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

// NewHarness starts a fresh API instance. Background workers stop when the test ends.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	logger := zerolog.Nop()
	cfg := config.Config{
		AppName:              "Test Series Review API",
		AppEnv:               "test",
		JWTSecret:            JWTSecret,
		EventsChannel:        "testseries-" + uuid.NewString(),
		StorageDriver:        config.StorageDriverLocal,
		StoragePublicBaseURL: "/api/v1",
		UploadMaxMB:          2,
		UploadRateLimit:      1000,
		DashboardCacheTTL:    5 * time.Minute,
		StreamKeepAlive:      time.Second,
		SeedEnabled:          true,
		SeedToken:            SeedToken,
	}

	db, err := database.ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	store, err := localstore.New(afero.NewMemMapFs(), "/deposit", cfg.StoragePublicBaseURL, logger)
	require.NoError(t, err)

	srv, err := server.New(cfg, server.Infrastructure{DB: db, Redis: redisClient, Store: store}, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv.Start(ctx)

	_, err = repository.NewTestRepository(db).UpsertBatch(context.Background(), []models.Test{
		{ID: AuditTestID, Title: AuditTestTitle, Level: "CAP-III", Subject: "Audit", AccessType: "paid"},
		{ID: TaxTestID, Title: "Tax Mock Test 1", Level: "CAP-III", Subject: "Tax", AccessType: "free"},
	})
	require.NoError(t, err)

	return &Harness{Server: srv, App: srv.App, DB: db, Redis: mr, Config: cfg}
}

// Token signs a bearer token for the identity.
func Token(t *testing.T, who Identity) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  who.ID,
		"name": who.Name,
		"role": who.Role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(JWTSecret))
	require.NoError(t, err)
	return signed
}

// Do performs a request as the identity. A zero identity sends no token.
func (h *Harness) Do(t *testing.T, who Identity, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	headers := map[string]string{}
	if contentType != "" {
		headers[fiber.HeaderContentType] = contentType
	}
	return h.DoWithHeaders(t, who, method, path, body, headers)
}

// DoWithHeaders performs a request as the identity with extra headers.
func (h *Harness) DoWithHeaders(t *testing.T, who Identity, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if who.ID != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+Token(t, who))
	}
	resp, err := h.App.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// JSON performs a request with a JSON encoded body.
func (h *Harness) JSON(t *testing.T, who Identity, method, path string, payload interface{}) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return h.Do(t, who, method, path, body, fiber.MIMEApplicationJSON)
}

// Upload posts a multipart form carrying fields and an optional file.
func (h *Harness) Upload(t *testing.T, who Identity, path string, fields map[string]string, fileName string, content []byte) *http.Response {
	t.Helper()
	body, contentType := MultipartBody(t, fields, fileName, content)
	return h.Do(t, who, http.MethodPost, path, body, contentType)
}

// Submit uploads an answer sheet and returns the new submission id.
func (h *Harness) Submit(t *testing.T, who Identity, testID string) string {
	t.Helper()
	resp := h.Upload(t, who, "/api/v1/student/submissions", map[string]string{"test_id": testID}, "answers.pdf", PDF("answers "+uuid.NewString()))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var view struct {
		ID string `json:"id"`
	}
	DecodeData(t, resp, &view)
	require.NotEmpty(t, view.ID)
	return view.ID
}

// Grade marks a pending submission as T1 and asserts success.
func (h *Harness) Grade(t *testing.T, id, marks string) {
	t.Helper()
	resp := h.Upload(t, TeacherT1, "/api/v1/teacher/submissions/"+id+"/grade", map[string]string{"marks": marks}, "checked.pdf", PDF("checked "+uuid.NewString()))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

// Approve publishes a graded submission as A1 and asserts success.
func (h *Harness) Approve(t *testing.T, id string) {
	t.Helper()
	resp := h.Do(t, AdminA1, http.MethodPost, "/api/v1/admin/submissions/"+id+"/approve", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

// CountFiles returns the number of live deposit rows.
func (h *Harness) CountFiles(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.DB.Model(&models.StoredFile{}).Count(&count).Error)
	return count
}

// MultipartBody builds a multipart form. The file part is skipped when fileName is empty.
func MultipartBody(t *testing.T, fields map[string]string, fileName string, content []byte) (io.Reader, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

// PDF returns a minimal payload sniffed as application/pdf.
func PDF(body string) []byte {
	return []byte("%PDF-1.4\n" + body + "\n%%EOF")
}

// Decode reads the full envelope and closes the body.
func Decode(t *testing.T, resp *http.Response) Envelope {
	t.Helper()
	defer resp.Body.Close()
	var envelope Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope
}

// DecodeData unmarshals the envelope data into target.
func DecodeData(t *testing.T, resp *http.Response, target interface{}) Envelope {
	t.Helper()
	envelope := Decode(t, resp)
	require.True(t, envelope.Success, envelope.Message)
	require.NoError(t, json.Unmarshal(envelope.Data, target))
	return envelope
}

// Listen serves the app on a loopback port for clients that need a real socket.
func Listen(t *testing.T, app *fiber.App) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	t.Cleanup(func() {
		_ = app.ShutdownWithTimeout(time.Second)
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(500 * time.Millisecond):
		}
	})

	return "http://" + listener.Addr().String()
}
