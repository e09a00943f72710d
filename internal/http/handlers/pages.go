package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mhofmann/membersite/internal/i18n"
)

// PagesHandler serves the minimal localized page bodies behind the route
// guard. Full page rendering lives in the frontend; these exist so the
// guarded sections answer with real content.
type PagesHandler struct{}

func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

var membersHeading = map[string]string{
	i18n.LocaleEN: "Members area",
	i18n.LocaleDE: "Mitgliederbereich",
}

func (h *PagesHandler) Members(ctx *gin.Context) {
	locale := i18n.Normalize(ctx.Param("locale"))

	ctx.Header("Content-Type", "text/html; charset=utf-8")
	ctx.String(http.StatusOK, "<!doctype html><html lang=%q><body><h1>%s</h1></body></html>", locale, membersHeading[locale])
}

func (h *PagesHandler) Home(ctx *gin.Context) {
	locale := i18n.Normalize(ctx.Param("locale"))

	ctx.Header("Content-Type", "text/html; charset=utf-8")
	ctx.String(http.StatusOK, "<!doctype html><html lang=%q><body><h1>membersite</h1></body></html>", locale)
}
