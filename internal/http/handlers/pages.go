package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// PagesHandler serves the browser pages behind the session gate. When a
// built front end is configured its index.html handles every page route.
type PagesHandler struct {
	webRoot string
}

func NewPagesHandler(webRoot string) *PagesHandler {
	return &PagesHandler{webRoot: webRoot}
}

func (h *PagesHandler) Serve(page string) gin.HandlerFunc {
	index := ""
	if h.webRoot != "" {
		index = filepath.Join(h.webRoot, "index.html")
	}

	return func(ctx *gin.Context) {
		if index != "" {
			if _, err := os.Stat(index); err == nil {
				ctx.File(index)
				return
			}
		}

		ctx.JSON(http.StatusOK, gin.H{
			"page": page,
			"path": ctx.Request.URL.Path,
		})
	}
}
