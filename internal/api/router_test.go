package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"room-advisor/internal/api/handlers"
	"room-advisor/internal/dto"
	"room-advisor/internal/repository"
	"room-advisor/internal/service"
	"room-advisor/pkg/config"
	"room-advisor/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const modelReply = `{
  "rationale": "A small Teams room with two displays.",
  "products": [
    {"name": "Crestron Flex UC-B160-T", "summary": "Tabletop video kit.", "price": "$2,499", "why_fit": ["Teams certified"]},
    {"name": "Crestron Sound Bar UC-SB1-CAM", "summary": "Camera and soundbar.", "price": "", "why_fit": ["Fits small rooms"]},
    {"name": "Crestron Ceiling Mic CM-CMIC-2", "summary": "Ceiling microphone.", "price": "", "why_fit": []}
  ]
}`

type cannedCompleter struct {
	mu      sync.Mutex
	replies []string
	err     error
}

func (c *cannedCompleter) Complete(context.Context, []service.ChatMessage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	if len(c.replies) == 0 {
		return "", errors.New("no reply")
	}
	reply := c.replies[0]
	if len(c.replies) > 1 {
		c.replies = c.replies[1:]
	}
	return reply, nil
}

func newTestApp(t *testing.T, completer service.ChatCompleter) *fiber.App {
	logger := zaptest.NewLogger(t)
	leadRepo := repository.NewLeadRepository(filepath.Join(t.TempDir(), "leads.csv"), logger)
	leads := service.NewLeadService(leadRepo, logger)
	advisor := service.NewAdvisorService(
		service.NewRecommendationService(completer, "Crestron Flex", time.Second, logger),
		nil,
		leads,
		service.NewExportService(&config.ExportConfig{Title: "Summary"}, nil, logger),
		repository.NewMemorySessionRepository(time.Hour),
		logger,
	)
	handler := handlers.NewAdvisorHandler(advisor, leads, logger)
	return SetupRouter(handler, RouterConfig{SessionTTL: time.Hour}, logger)
}

func doJSON(t *testing.T, app *fiber.App, method, path, session string, body any) *http.Response {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(middleware.SessionHeader, session)
	}
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

var smallTeams = dto.RecommendationRequest{RoomType: "Small", Platform: "Teams", NeedsText: "dual displays, ceiling mic"}

func TestRouter_Health(t *testing.T) {
	app := newTestApp(t, &cannedCompleter{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_IndexAndMetrics(t *testing.T) {
	app := newTestApp(t, &cannedCompleter{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_RecommendFlow(t *testing.T) {
	app := newTestApp(t, &cannedCompleter{replies: []string{modelReply}})
	session := uuid.NewString()

	resp := doJSON(t, app, http.MethodPost, "/api/v1/recommendations", session, smallTeams)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, session, resp.Header.Get(middleware.SessionHeader))

	rec := decode[dto.RecommendationResponse](t, resp)
	assert.Equal(t, session, rec.SessionID)
	require.Len(t, rec.Products, 3)
	assert.Nil(t, rec.Products[0].ProductURL)
	assert.Equal(t, handlers.PlaceholderImage, rec.Products[0].DisplayImageURL)
	assert.Equal(t, "Request quote", rec.Products[1].Price)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/recommendations", session, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	current := decode[dto.RecommendationResponse](t, resp)
	assert.Equal(t, rec.Products, current.Products)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/leads", session, dto.LeadRequest{ContactName: "Jane Doe", Email: "jane@example.com"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	lead := decode[dto.LeadResponse](t, resp)
	assert.True(t, strings.HasPrefix(lead.LeadID, "LEAD-"))

	resp = doJSON(t, app, http.MethodGet, "/api/v1/leads/count", session, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[dto.LeadCountResponse](t, resp).Count)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/export", session, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="room_recommendation_\d{8}_\d{6}\.pdf"$`, resp.Header.Get("Content-Disposition"))
	pdf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}

func TestRouter_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name      string
		completer service.ChatCompleter
		body      any
		status    int
		errText   string
	}{
		{"invalid room", &cannedCompleter{replies: []string{modelReply}}, dto.RecommendationRequest{RoomType: "Stadium", Platform: "Teams"}, http.StatusBadRequest, ""},
		{"not configured", nil, smallTeams, http.StatusServiceUnavailable, "configuration error"},
		{"upstream down", &cannedCompleter{err: errors.New("dial tcp: connection refused")}, smallTeams, http.StatusBadGateway, "upstream unavailable"},
		{"malformed", &cannedCompleter{replies: []string{"sorry, no JSON today"}}, smallTeams, http.StatusBadGateway, "malformed response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, tt.completer)

			resp := doJSON(t, app, http.MethodPost, "/api/v1/recommendations", uuid.NewString(), tt.body)

			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode[dto.ErrorResponse](t, resp)
			if tt.errText != "" {
				assert.Equal(t, tt.errText, body.Error)
			}
		})
	}
}

func TestRouter_InvalidBody(t *testing.T) {
	app := newTestApp(t, &cannedCompleter{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_LeadWithoutRecommendations(t *testing.T) {
	app := newTestApp(t, &cannedCompleter{})

	resp := doJSON(t, app, http.MethodPost, "/api/v1/leads", uuid.NewString(), dto.LeadRequest{ContactName: "Jane", Email: "jane@example.com"})

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRouter_LeadValidation(t *testing.T) {
	app := newTestApp(t, &cannedCompleter{replies: []string{modelReply}})
	session := uuid.NewString()
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodPost, "/api/v1/recommendations", session, smallTeams).StatusCode)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/leads", session, dto.LeadRequest{ContactName: "Jane", Email: "nope"})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_UnknownSession(t *testing.T) {
	app := newTestApp(t, &cannedCompleter{})
	session := uuid.NewString()

	assert.Equal(t, http.StatusNotFound, doJSON(t, app, http.MethodGet, "/api/v1/recommendations", session, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, doJSON(t, app, http.MethodGet, "/api/v1/export", session, nil).StatusCode)
}

func TestRouter_ExportAfterFailedRecommendation(t *testing.T) {
	app := newTestApp(t, &cannedCompleter{err: errors.New("timeout")})
	session := uuid.NewString()
	require.Equal(t, http.StatusBadGateway, doJSON(t, app, http.MethodPost, "/api/v1/recommendations", session, smallTeams).StatusCode)

	assert.Equal(t, http.StatusNotFound, doJSON(t, app, http.MethodGet, "/api/v1/recommendations", session, nil).StatusCode)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/export", session, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
