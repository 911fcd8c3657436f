package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type Forwarder interface {
	Forward(ctx context.Context, body []byte) (json.RawMessage, error)
}

type ChatAsker interface {
	AskChat(ctx context.Context, message string) (json.RawMessage, error)
}

// ReportsHandler relays report and chat requests to the external services.
type ReportsHandler struct {
	report   Forwarder
	aiReport Forwarder
	chat     ChatAsker
	log      *slog.Logger
}

func NewReportsHandler(report, aiReport Forwarder, chat ChatAsker, log *slog.Logger) *ReportsHandler {
	if log == nil {
		log = slog.Default()
	}

	return &ReportsHandler{report: report, aiReport: aiReport, chat: chat, log: log}
}

func (h *ReportsHandler) GenerateReport(ctx *gin.Context) {
	h.relay(ctx, "report", h.report)
}

func (h *ReportsHandler) AIReport(ctx *gin.Context) {
	h.relay(ctx, "ai_report", h.aiReport)
}

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *ReportsHandler) Chat(ctx *gin.Context) {
	var req ChatRequest

	if !BindJSON(ctx, &req) {
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		RespondBadRequest(ctx, "Message is required", nil)
		return
	}

	answer, err := h.chat.AskChat(ctx.Request.Context(), message)
	if err != nil {
		h.log.WarnContext(ctx.Request.Context(), "chat relay failed", "err", err)
		RespondBadGateway(ctx, "Chat service unavailable")
		return
	}

	ctx.Data(http.StatusOK, "application/json; charset=utf-8", answer)
}

// relay forwards the body unmodified and writes the upstream JSON verbatim.
func (h *ReportsHandler) relay(ctx *gin.Context, service string, to Forwarder) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(ctx, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body too large", nil)
			return
		}
		RespondBadRequest(ctx, "Could not read request body", nil)
		return
	}

	if !json.Valid(body) {
		RespondBadRequest(ctx, "Request body must be valid JSON", nil)
		return
	}

	out, err := to.Forward(ctx.Request.Context(), body)
	if err != nil {
		h.log.WarnContext(ctx.Request.Context(), "report relay failed", "service", service, "err", err)
		RespondBadGateway(ctx, "Report service unavailable")
		return
	}

	ctx.Data(http.StatusOK, "application/json; charset=utf-8", out)
}
