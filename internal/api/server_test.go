package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/processo-api/internal/config"
	"github.com/nexconsult/processo-api/internal/models"
	"github.com/nexconsult/processo-api/internal/services"
	"github.com/nexconsult/processo-api/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultHTML = `<html><body><table>
<tr><td class="label">Comarca:</td><td id="comarca">CURITIBA</td></tr>
<tr><td class="label">Situação:</td><td id="situacao">Arquivado definitivamente</td></tr>
<tr><td class="label">Valor da Causa:</td><td id="valorCausa">R$ 10.000,00</td></tr>
</table></body></html>`

type stubDriver struct{}

func (stubDriver) StartCaptchaFlow(ctx context.Context, caseNumber utils.CaseNumber) (*services.CaptchaChallenge, error) {
	return &services.CaptchaChallenge{
		Cookies: []services.Cookie{{Name: "JSESSIONID", Value: "abc", Domain: "projudi.tjpr.jus.br", Path: "/"}},
		Image:   []byte{0x89, 'P', 'N', 'G'},
	}, nil
}

func (stubDriver) SubmitCaptcha(ctx context.Context, cookies []services.Cookie, caseNumber utils.CaseNumber, answer string) (*services.ResultPage, error) {
	html := resultHTML
	if answer != "right" {
		html = `<html><body>Captcha inválido</body></html>`
	}
	return &services.ResultPage{Body: []byte(html), ContentType: "text/html; charset=utf-8"}, nil
}

func (stubDriver) GetStats() map[string]interface{} {
	return map[string]interface{}{"in_use": 0, "max_browsers": 3, "launches": int64(2), "failures": int64(0)}
}

func (stubDriver) Health() map[string]interface{} {
	return map[string]interface{}{"status": "healthy"}
}

func (stubDriver) Close() error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	t.Setenv("ADMIN_TOKEN", "admin-secret")
	t.Setenv("RATE_LIMIT_BURST", "100")
	cfg, err := config.Load()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	quota := services.NewQuotaTracker(cfg.Quota, logger, time.Now)
	sessions := services.NewSessionStore(nil, cfg.Session, logger, time.Now)
	extractor := services.NewExtractorService(logger, time.Now)
	driver := stubDriver{}

	container := &services.Container{
		Quota:            quota,
		Sessions:         sessions,
		ExtractorService: extractor,
		BrowserService:   driver,
		ConsultaService:  services.NewConsultaService(quota, sessions, driver, extractor, logger, time.Now),
	}

	return NewServer(cfg, logger, container)
}

func request(s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func TestServer_TwoPhaseConsultation(t *testing.T) {
	s := newTestServer(t)

	w := request(s, http.MethodPost, "/api/v1/consultas", `{"caseNumber":"0002688-54.2024.8.16.0136","userId":"42"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var started models.ConsultaIniciada
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	assert.True(t, strings.HasPrefix(started.CaptchaImage, "data:image/png;base64,"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = request(s, http.MethodPost, "/api/v1/consultas/"+started.SessionID+"/captcha", `{"captchaAnswer":"right","userId":"42"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.ExtractedCase
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "0002688-54.2024.8.16.0136", result.CaseNumber)
	assert.Equal(t, models.StatusArchived, result.Status)
	require.NotNil(t, result.ClaimValue)
	assert.InDelta(t, 10000.0, *result.ClaimValue, 0.001)

	// Sessions are single use
	w = request(s, http.MethodPost, "/api/v1/consultas/"+started.SessionID+"/captcha", `{"captchaAnswer":"right","userId":"42"}`, nil)
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestServer_QuotaAndAdmin(t *testing.T) {
	s := newTestServer(t)

	w := request(s, http.MethodPost, "/api/v1/consultas", `{"caseNumber":"00026885420248160136","userId":"7"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = request(s, http.MethodPost, "/api/v1/consultas", `{"caseNumber":"00026885420248160136","userId":"7"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w = request(s, http.MethodGet, "/api/v1/quota/7", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info models.QuotaInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, 1, info.UsedToday)

	w = request(s, http.MethodDelete, "/api/v1/admin/quota/7", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(s, http.MethodDelete, "/api/v1/admin/quota/7", "", map[string]string{"X-Admin-Token": "admin-secret"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = request(s, http.MethodPost, "/api/v1/consultas", `{"caseNumber":"00026885420248160136","userId":"7"}`, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, request(s, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, request(s, http.MethodGet, "/health/ready", "", nil).Code)
	assert.Equal(t, http.StatusOK, request(s, http.MethodGet, "/health/live", "", nil).Code)

	w := request(s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var metrics models.MetricsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	assert.Equal(t, 3, metrics.Browser.Capacity)
	assert.Equal(t, "memory", metrics.Sessions.Backend)
}

func TestServer_NotFoundAndMethod(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, request(s, http.MethodGet, "/api/v1/nope", "", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, request(s, http.MethodGet, "/api/v1/consultas", "", nil).Code)
}

func TestServer_EmptyAnswerConsumesSession(t *testing.T) {
	s := newTestServer(t)

	w := request(s, http.MethodPost, "/api/v1/consultas", `{"caseNumber":"00026885420248160136","userId":"9"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var started models.ConsultaIniciada
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))

	path := "/api/v1/consultas/" + started.SessionID + "/captcha"
	w = request(s, http.MethodPost, path, `{"captchaAnswer":"","userId":"9"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = request(s, http.MethodPost, path, `{"captchaAnswer":"right","userId":"9"}`, nil)
	assert.Equal(t, http.StatusGone, w.Code)
}
