package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/marekbraun/golinks/internal/auth"
	"github.com/marekbraun/golinks/internal/cache"
	"github.com/marekbraun/golinks/internal/config"
	"github.com/marekbraun/golinks/internal/models"
	"github.com/marekbraun/golinks/internal/slug"
)

const (
	maxTitleLength = 120
	// Attempts before we give up allocating a generated slug. With 64^8
	// possible values this is effectively unreachable, but it bounds the
	// loop under slug-space pressure.
	maxSlugAttempts = 10
)

var slugRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)

type LinkHandler struct {
	DB    *sql.DB
	Cfg   *config.Config
	Cache *cache.LinkCache
	Log   *zap.Logger
}

type createLinkRequest struct {
	Destination string `json:"destination"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
}

// Pointer fields so PATCH can tell "absent" from "set to empty".
type updateLinkRequest struct {
	Destination *string `json:"destination"`
	Slug        *string `json:"slug"`
	Title       *string `json:"title"`
}

func validDestination(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if !validDestination(req.Destination) {
		jsonError(w, "destination must be an absolute http(s) URL", http.StatusBadRequest)
		return
	}
	if req.Slug != "" && !slugRe.MatchString(req.Slug) {
		jsonError(w, "slug must match [a-zA-Z0-9_-]{3,64}", http.StatusBadRequest)
		return
	}
	if utf8.RuneCountInString(req.Title) > maxTitleLength {
		jsonError(w, "title must be at most 120 characters", http.StatusBadRequest)
		return
	}

	// Daily quota, counted from local midnight.
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	created, err := models.CountLinksCreatedSince(h.DB, ownerID, midnight)
	if err != nil {
		h.Log.Error("quota check failed", zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if created >= h.Cfg.DailyLinkLimit {
		jsonError(w, "daily link creation limit reached", http.StatusTooManyRequests)
		return
	}

	link := &models.Link{
		OwnerID:     ownerID,
		Destination: req.Destination,
		Title:       req.Title,
	}

	if req.Slug != "" {
		// Custom slug: a collision is the caller's problem, no retry.
		link.Slug = req.Slug
		err = models.CreateLink(h.DB, link)
		if errors.Is(err, models.ErrSlugTaken) {
			jsonError(w, "slug already in use", http.StatusConflict)
			return
		}
	} else {
		err = h.createWithGeneratedSlug(link)
	}
	if err != nil {
		h.Log.Error("create link failed", zap.Error(err))
		jsonError(w, "failed to create link", http.StatusInternalServerError)
		return
	}

	link.FillShortURL(h.Cfg.BaseURL)
	writeJSON(w, http.StatusCreated, link)
}

// createWithGeneratedSlug inserts with a fresh random slug, retrying on the
// unique-index violation. The insert itself arbitrates concurrent creations.
func (h *LinkHandler) createWithGeneratedSlug(link *models.Link) error {
	for i := 0; i < maxSlugAttempts; i++ {
		candidate, err := slug.Generate()
		if err != nil {
			return err
		}
		link.Slug = candidate
		err = models.CreateLink(h.DB, link)
		if errors.Is(err, models.ErrSlugTaken) {
			continue
		}
		return err
	}
	return errors.New("exhausted slug generation attempts")
}

func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	links, err := models.ListLinksByOwner(h.DB, ownerID)
	if err != nil {
		h.Log.Error("list links failed", zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if links == nil {
		links = []models.Link{}
	}
	for i := range links {
		links[i].FillShortURL(h.Cfg.BaseURL)
	}

	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

func (h *LinkHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}

	link, err := models.GetLinkByIDAndOwner(h.DB, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			jsonError(w, "not found", http.StatusNotFound)
			return
		}
		h.Log.Error("load link failed", zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	var req updateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	oldSlug := link.Slug
	if req.Destination != nil {
		if !validDestination(*req.Destination) {
			jsonError(w, "destination must be an absolute http(s) URL", http.StatusBadRequest)
			return
		}
		link.Destination = *req.Destination
	}
	if req.Slug != nil {
		if !slugRe.MatchString(*req.Slug) {
			jsonError(w, "slug must match [a-zA-Z0-9_-]{3,64}", http.StatusBadRequest)
			return
		}
		link.Slug = *req.Slug
	}
	if req.Title != nil {
		if utf8.RuneCountInString(*req.Title) > maxTitleLength {
			jsonError(w, "title must be at most 120 characters", http.StatusBadRequest)
			return
		}
		link.Title = *req.Title
	}

	if err := models.UpdateLink(h.DB, link); err != nil {
		if errors.Is(err, models.ErrSlugTaken) {
			jsonError(w, "slug already in use", http.StatusConflict)
			return
		}
		h.Log.Error("update link failed", zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.Cache.Invalidate(oldSlug)
	link.FillShortURL(h.Cfg.BaseURL)
	writeJSON(w, http.StatusOK, link)
}

func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}

	// Look the slug up first so the cache entry dies with the row. Click
	// rows are left in place.
	if link, err := models.GetLinkByIDAndOwner(h.DB, id, ownerID); err == nil {
		h.Cache.Invalidate(link.Slug)
	}

	if err := models.DeleteLink(h.DB, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			jsonError(w, "not found", http.StatusNotFound)
			return
		}
		h.Log.Error("delete link failed", zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
