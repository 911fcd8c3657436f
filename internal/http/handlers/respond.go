package handlers

import (
	"net/http"

	"github.com/geocoder89/taxdesk/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// Machine-readable error codes carried in every error body.
const (
	CodeBadRequest        = "bad_request"
	CodeValidation        = "validation_error"
	CodeUnauthorized      = "unauthorized"
	CodeNotFound          = "not_found"
	CodeDuplicateUser     = "duplicate_user"
	CodeEmailInUse        = "email_in_use"
	CodeInvalidCreds      = "invalid_credentials"
	CodeInvalidCursor     = "invalid_cursor"
	CodePayloadTooLarge   = "payload_too_large"
	CodeExtractionProcess = "extraction_process_failed"
	CodeExtractionParse   = "extraction_parse_failed"
	CodeExtractionBusy    = "extraction_busy"
	CodeUpstream          = "upstream_error"
	CodeInternal          = "internal_error"
)

func RespondError(ctx *gin.Context, status int, code, message string, details any) {
	ctx.JSON(status, middlewares.NewErrorBody(ctx, code, message, details))
}

func RespondBadRequest(ctx *gin.Context, message string, details any) {
	RespondError(ctx, http.StatusBadRequest, CodeBadRequest, message, details)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, CodeNotFound, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, CodeInternal, message, nil)
}

func RespondBadGateway(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusBadGateway, CodeUpstream, message, nil)
}

func RespondMessage(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"message": message})
}
