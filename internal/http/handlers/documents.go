package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/taxdesk/internal/domain/document"
	"github.com/geocoder89/taxdesk/internal/extraction"
	"github.com/geocoder89/taxdesk/internal/http/middlewares"
	"github.com/geocoder89/taxdesk/internal/ingest"
	"github.com/geocoder89/taxdesk/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type Ingester interface {
	Ingest(ctx context.Context, pipeline string, up ingest.Upload) (document.ExtractedData, error)
}

type RecordLister interface {
	ListByUser(ctx context.Context, userID string) ([]document.ExtractedData, error)
	ListByUserCursor(ctx context.Context, userID string, limit int, after *utils.RecordCursor) ([]document.ExtractedData, *string, error)
}

type DocumentsHandler struct {
	ingester Ingester
	records  RecordLister
	log      *slog.Logger
}

func NewDocumentsHandler(ingester Ingester, records RecordLister, log *slog.Logger) *DocumentsHandler {
	if log == nil {
		log = slog.Default()
	}

	return &DocumentsHandler{ingester: ingester, records: records, log: log}
}

// Upload returns the multipart ingestion endpoint bound to one extraction
// pipeline. Malformed uploads are rejected before anything is staged.
func (h *DocumentsHandler) Upload(pipeline string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			RespondUnAuthorized(ctx, CodeUnauthorized, "No token provided")
			return
		}

		fh, err := ctx.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				RespondError(ctx, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Upload too large", nil)
				return
			}
			RespondBadRequest(ctx, "Missing file or document type", nil)
			return
		}

		rawType := ctx.PostForm("documentType")
		if rawType == "" {
			RespondBadRequest(ctx, "Missing file or document type", nil)
			return
		}

		docType, err := document.ParseType(rawType)
		if err != nil {
			RespondBadRequest(ctx, "Invalid document type", gin.H{
				"allowed": []document.Type{document.TypeBills, document.TypeInvestment, document.TypeSpending},
			})
			return
		}

		f, err := fh.Open()
		if err != nil {
			RespondBadRequest(ctx, "Could not read uploaded file", nil)
			return
		}
		defer f.Close()

		rec, err := h.ingester.Ingest(ctx.Request.Context(), pipeline, ingest.Upload{
			UserID:       userID,
			DocumentType: docType,
			FileName:     fh.Filename,
			Body:         f,
		})
		if err != nil {
			h.respondIngestError(ctx, pipeline, err)
			return
		}

		ctx.JSON(http.StatusOK, rec)
	}
}

func (h *DocumentsHandler) respondIngestError(ctx *gin.Context, pipeline string, err error) {
	switch {
	case errors.Is(err, extraction.ErrBusy):
		ctx.Header("Retry-After", "5")
		RespondError(ctx, http.StatusServiceUnavailable, CodeExtractionBusy, "Document processing is busy, try again shortly", nil)
	case errors.Is(err, extraction.ErrProcessFailure):
		RespondError(ctx, http.StatusInternalServerError, CodeExtractionProcess, "Document extraction failed", nil)
	case errors.Is(err, extraction.ErrParseFailure):
		RespondError(ctx, http.StatusInternalServerError, CodeExtractionParse, "Could not read extracted data", nil)
	default:
		h.log.ErrorContext(ctx.Request.Context(), "ingest failed", "pipeline", pipeline, "err", err)
		RespondInternal(ctx, "Could not process document")
	}
}

// ListExtractedData returns the caller's records newest first. Without
// limit or cursor the whole history is returned in one page.
func (h *DocumentsHandler) ListExtractedData(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, CodeUnauthorized, "No token provided")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	limitRaw, cursorRaw := ctx.Query("limit"), ctx.Query("cursor")

	if limitRaw == "" && cursorRaw == "" {
		items, err := h.records.ListByUser(cctx, userID)
		if err != nil {
			h.log.ErrorContext(cctx, "list extracted data failed", "user_id", userID, "err", err)
			RespondInternal(ctx, "Could not load extracted data")
			return
		}

		RespondJSONWithETag(ctx, http.StatusOK, gin.H{"data": items})
		return
	}

	limit := defaultPageLimit
	if limitRaw != "" {
		n, err := strconv.Atoi(limitRaw)
		if err != nil || n < 1 || n > maxPageLimit {
			RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
			return
		}
		limit = n
	}

	var after *utils.RecordCursor
	if cursorRaw != "" {
		c, err := utils.DecodeRecordCursor(cursorRaw)
		if err != nil {
			RespondError(ctx, http.StatusBadRequest, CodeInvalidCursor, "Invalid cursor", nil)
			return
		}
		after = &c
	}

	items, next, err := h.records.ListByUserCursor(cctx, userID, limit, after)
	if err != nil {
		h.log.ErrorContext(cctx, "list extracted data page failed", "user_id", userID, "err", err)
		RespondInternal(ctx, "Could not load extracted data")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"data":       items,
		"nextCursor": next,
	})
}
