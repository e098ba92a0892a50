package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"crm_dashboard_go/config"
	"crm_dashboard_go/middleware"
	"crm_dashboard_go/models"
	"crm_dashboard_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Use unique shared memory name to isolate tests while allowing shared cache for async tasks
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000&_foreign_keys=on"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, testDB.AutoMigrate(models.AllModels()...))
	return testDB
}

// testServer is an echo instance with every route registered against a fresh database
type testServer struct {
	e       *echo.Echo
	h       *Handler
	db      *gorm.DB
	user    *models.Profile
	changes *services.Broker
}

func setupServer(t *testing.T) *testServer {
	testDB := setupTestDB(t)

	user := &models.Profile{Name: "Ada Lovelace", Email: "ada@example.com"}
	require.NoError(t, testDB.Create(user).Error)

	cfg := &config.Config{
		Environment:   "test",
		EmailTestMode: true,
		PageSize:      config.DefaultPageSize,
		MaxUploadMB:   1,
	}
	broker := services.NewBroker(0)
	storage := services.NewLocalStorage(t.TempDir())

	h := New(cfg, testDB, storage, nil, broker)
	e := echo.New()
	h.Register(e)

	return &testServer{e: e, h: h, db: testDB, user: user, changes: broker}
}

// do sends a request as the test user
func (s *testServer) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(middleware.UserHeader, s.user.ID)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return s.do(method, path, r, echo.MIMEApplicationJSON)
}

func (s *testServer) createClient(t *testing.T, c models.Client) *models.Client {
	t.Helper()
	if c.Email == "" {
		c.Email = "contact@" + uuid.New().String()[:8] + ".com"
	}
	if c.Country == "" {
		c.Country = "Spain"
	}
	if c.Industry == "" {
		c.Industry = "Retail"
	}
	require.NoError(t, s.db.Create(&c).Error)
	return &c
}

// decode unmarshals the response envelope, placing data into out when given
func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) Response {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw), rec.Body.String())
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return Response{Success: raw.Success, Error: raw.Error}
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
}
