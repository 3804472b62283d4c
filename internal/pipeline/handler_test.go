package pipeline

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linksum/internal/config"
	"linksum/internal/constants"
	"linksum/internal/logger"
	"linksum/internal/signature"
)

const testSigningSecret = "test-signing-secret"

func newTestRouter(t *testing.T, slackCfg config.SlackConfig) (*gin.Engine, *testPipeline) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	p := newTestPipeline(t)
	verifier := signature.NewVerifier(slackCfg.SigningSecret, time.Duration(slackCfg.ReplayWindowSeconds)*time.Second)
	handler := NewHandler(p.service, verifier, slackCfg, logger.NopLogger())

	router := gin.New()
	handler.RegisterRoutes(router)
	return router, p
}

func signedRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewBufferString(body))
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(constants.HeaderRequestTimestamp, ts)
	req.Header.Set(constants.HeaderSignature, signature.Compute(testSigningSecret, ts, []byte(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func defaultSlackConfig() config.SlackConfig {
	return config.SlackConfig{
		SigningSecret:       testSigningSecret,
		ReplayWindowSeconds: constants.DefaultReplayWindowSecs,
	}
}

func TestHandleEvent_ChallengeAnsweredWithoutSignature(t *testing.T) {
	router, _ := newTestRouter(t, defaultSlackConfig())

	body := `{"type":"url_verification","challenge":"ch4ll3ng3"}`
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ch4ll3ng3", rec.Body.String())
}

func TestHandleEvent_SignedEventAccepted(t *testing.T) {
	router, p := newTestRouter(t, defaultSlackConfig())

	body := `{"type":"event_callback","event_id":"Ev100","event":{"type":"message","channel":"C1","ts":"1.0","text":"see https://example.com/post"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	p.service.Drain()
	sent := p.poster.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "C1", sent[0].Channel)
}

func TestHandleEvent_BadSignatureRejected(t *testing.T) {
	router, p := newTestRouter(t, defaultSlackConfig())

	body := `{"type":"event_callback","event_id":"Ev100","event":{"type":"message","channel":"C1","ts":"1.0","text":"https://example.com"}}`
	req := signedRequest(body)
	req.Header.Set(constants.HeaderSignature, "v0=0000000000000000000000000000000000000000000000000000000000000000")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	p.service.Drain()
	assert.Empty(t, p.poster.messages())
}

func TestHandleEvent_MissingHeadersRejected(t *testing.T) {
	router, _ := newTestRouter(t, defaultSlackConfig())

	body := `{"type":"event_callback","event_id":"Ev100","event":{"type":"message"}}`
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleEvent_UnknownEnvelopeType(t *testing.T) {
	router, _ := newTestRouter(t, defaultSlackConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(`{"type":"app_rate_limited"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEvent_MalformedBody(t *testing.T) {
	router, _ := newTestRouter(t, defaultSlackConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(`{"type": not json`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleEvent_SkipVerificationHeader(t *testing.T) {
	body := `{"type":"event_callback","event_id":"Ev100","event":{"type":"message","channel":"C1","ts":"1.0","text":"https://example.com"}}`

	tests := []struct {
		name            string
		allowUnverified bool
		wantStatus      int
	}{
		{name: "honored when enabled", allowUnverified: true, wantStatus: http.StatusOK},
		{name: "ignored when disabled", allowUnverified: false, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultSlackConfig()
			cfg.AllowUnverified = tt.allowUnverified
			router, _ := newTestRouter(t, cfg)

			req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewBufferString(body))
			req.Header.Set(constants.HeaderSkipVerification, "1")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHandleEvent_StaleTimestampRejected(t *testing.T) {
	router, _ := newTestRouter(t, defaultSlackConfig())

	body := `{"type":"event_callback","event_id":"Ev100","event":{"type":"message"}}`
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewBufferString(body))
	stale := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	req.Header.Set(constants.HeaderRequestTimestamp, stale)
	req.Header.Set(constants.HeaderSignature, signature.Compute(testSigningSecret, stale, []byte(body)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleEvent_DuplicateStillAcked(t *testing.T) {
	router, p := newTestRouter(t, defaultSlackConfig())
	p.dedup.seen["Ev100"] = true

	body := fmt.Sprintf(`{"type":"event_callback","event_id":%q,"event":{"type":"message","channel":"C1","ts":"1.0","text":"https://example.com"}}`, "Ev100")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	p.service.Drain()
	assert.Empty(t, p.poster.messages())
}
