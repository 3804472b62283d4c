package pipeline

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"linksum/internal/config"
	"linksum/internal/constants"
	"linksum/internal/logger"
	"linksum/internal/signature"
	"linksum/internal/slack"
	"linksum/pkg/errors"
	"linksum/pkg/metrics"
)

// Handler is the webhook-facing HTTP surface. It owns authentication and
// envelope triage; everything after "this delivery is genuine and new" is
// the Service's business.
type Handler struct {
	service  *Service
	verifier *signature.Verifier
	cfg      config.SlackConfig
	logger   logger.Logger
}

func NewHandler(service *Service, verifier *signature.Verifier, cfg config.SlackConfig, log logger.Logger) *Handler {
	return &Handler{
		service:  service,
		verifier: verifier,
		cfg:      cfg,
		logger:   log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/slack/events", h.HandleEvent)
}

// HandleEvent processes one webhook delivery. The response never carries
// processing detail: Slack only needs a fast 2xx, and rejection responses
// must not leak why verification failed.
func (h *Handler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := c.GetRawData()
	if err != nil {
		metrics.EventsReceivedTotal.WithLabelValues("read_error").Inc()
		h.logger.ErrorwCtx(ctx, "Failed to read request body", "error", err)
		c.JSON(http.StatusInternalServerError, errors.ToErrorResponse(errors.ErrInternal.WithCause(err)))
		return
	}

	var env slack.InboundEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		metrics.EventsReceivedTotal.WithLabelValues("malformed").Inc()
		h.logger.WarnwCtx(ctx, "Malformed event envelope", "error", err)
		c.JSON(http.StatusInternalServerError, errors.ToErrorResponse(errors.ErrInternal.WithCause(err)))
		return
	}

	// The URL verification handshake is answered before any signature
	// check; Slack sends it while the endpoint is still being configured.
	if env.Type == slack.EnvelopeTypeURLVerification {
		metrics.EventsReceivedTotal.WithLabelValues("challenge").Inc()
		c.String(http.StatusOK, env.Challenge)
		return
	}

	if !h.verified(c, body) {
		metrics.EventsReceivedTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusUnauthorized, errors.ToErrorResponse(errors.ErrUnauthorized))
		return
	}

	if env.Type != slack.EnvelopeTypeEventCallback {
		metrics.EventsReceivedTotal.WithLabelValues("unknown_type").Inc()
		h.logger.WarnwCtx(ctx, "Unknown envelope type", "type", env.Type)
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithDetail("type", env.Type)))
		return
	}

	outcome := h.service.Process(ctx, &env)
	metrics.EventsReceivedTotal.WithLabelValues(string(outcome)).Inc()

	c.Status(http.StatusOK)
}

func (h *Handler) verified(c *gin.Context, body []byte) bool {
	if h.cfg.AllowUnverified && c.GetHeader(constants.HeaderSkipVerification) != "" {
		h.logger.WarnwCtx(c.Request.Context(), "Signature verification skipped by header")
		return true
	}

	ok, reason := h.verifier.VerifyWithReason(
		c.GetHeader(constants.HeaderRequestTimestamp),
		c.GetHeader(constants.HeaderSignature),
		body,
	)
	if !ok {
		h.logger.WarnwCtx(c.Request.Context(), "Rejected unauthenticated delivery", "reason", reason)
	}
	return ok
}
