package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/guichet/internal/catalog"
)

// HomeHandler renders the landing page listing the screens.
type HomeHandler struct {
	renderer *Renderer
	nav      []catalog.Entry
	logger   *slog.Logger
}

// NewHomeHandler creates a new HomeHandler.
func NewHomeHandler(renderer *Renderer, nav []catalog.Entry, logger *slog.Logger) *HomeHandler {
	return &HomeHandler{renderer: renderer, nav: nav, logger: logger}
}

// ServeHTTP handles GET /. Unknown paths fall through to a 404.
func (h *HomeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundResponse(w, r, h.logger)
		return
	}
	h.renderer.RenderHTTP(w, "home", HomePageData{
		LayoutData: layoutFor(r, "Accueil", h.nav),
	})
}
