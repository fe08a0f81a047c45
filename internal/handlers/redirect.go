package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/marekbraun/golinks/internal/analytics"
	"github.com/marekbraun/golinks/internal/cache"
	"github.com/marekbraun/golinks/internal/clientip"
	"github.com/marekbraun/golinks/internal/models"
)

type RedirectHandler struct {
	DB       *sql.DB
	Cache    *cache.LinkCache
	Enricher *analytics.Enricher
	IPs      *clientip.Resolver
	Log      *zap.Logger
}

// ServeHTTP resolves a slug, records the click, bumps the counter and
// redirects. An unknown slug leaves no trace. The click insert and the
// counter increment are two independent writes; a crash between them can
// leave a click without its increment, which we accept.
func (h *RedirectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		http.NotFound(w, r)
		return
	}

	link, found := h.Cache.Get(slug)
	if !found {
		var err error
		link, err = models.GetLinkBySlug(h.DB, slug)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.NotFound(w, r)
				return
			}
			h.Log.Error("link lookup failed", zap.String("slug", slug), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		h.Cache.Set(slug, link)
	}

	click := h.Enricher.Enrich(analytics.RawClick{
		LinkID:    link.ID,
		IP:        h.IPs.Resolve(r.Context(), r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
		CreatedAt: time.Now().UTC(),
	})

	// Analytics failures are logged, never surfaced: the redirect wins.
	if err := models.InsertClick(h.DB, &click); err != nil {
		h.Log.Error("record click failed", zap.Int64("link_id", link.ID), zap.Error(err))
	}
	if err := models.IncrementClickCount(h.DB, link.ID); err != nil {
		h.Log.Error("increment click count failed", zap.Int64("link_id", link.ID), zap.Error(err))
	}

	http.Redirect(w, r, link.Destination, http.StatusFound)
}
