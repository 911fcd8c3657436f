package middlewares

import "github.com/gin-gonic/gin"

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func RequestIDFrom(ctx *gin.Context) string {
	if v, ok := ctx.Get(CtxRequestID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader(requestIDHeader)
}

func NewErrorBody(ctx *gin.Context, code, message string, details any) ErrorBody {
	return ErrorBody{Error: message, Code: code, RequestID: RequestIDFrom(ctx), Details: details}
}

func abortWithError(ctx *gin.Context, status int, code, message string) {
	ctx.AbortWithStatusJSON(status, NewErrorBody(ctx, code, message, nil))
}
