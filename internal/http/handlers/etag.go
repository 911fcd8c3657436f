package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RespondJSONWithETag writes payload with a content hash validator and
// answers 304 when the client already holds the same representation.
func RespondJSONWithETag(ctx *gin.Context, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		ctx.JSON(status, payload)
		return
	}

	etag := buildETag(body)
	ctx.Header("ETag", etag)
	ctx.Header("Cache-Control", "private, no-cache")

	if ifNoneMatchMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(status, "application/json; charset=utf-8", body)
}

func buildETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func ifNoneMatchMatches(headerValue, currentETag string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" || currentETag == "" {
		return false
	}

	if headerValue == "*" {
		return true
	}

	current := normalizeETag(currentETag)

	for _, part := range strings.Split(headerValue, ",") {
		if normalizeETag(part) == current {
			return true
		}
	}

	return false
}

// weak validators (W/"abc") compare equal to their strong form
func normalizeETag(raw string) string {
	v := strings.TrimSpace(raw)
	return strings.TrimSpace(strings.TrimPrefix(v, "W/"))
}
