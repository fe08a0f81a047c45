package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/marekbraun/golinks/internal/auth"
	"github.com/marekbraun/golinks/internal/models"
)

const topLimit = 5

type analyticsSummary struct {
	TotalClicks    int                    `json:"total_clicks"`
	ClicksToday    int                    `json:"clicks_today"`
	ClicksThisWeek int                    `json:"clicks_this_week"`
	ClicksPrevWeek int                    `json:"clicks_prev_week"`
	WeekChange     int                    `json:"week_change_pct"`
	TopBrowsers    []models.BrowserCount  `json:"top_browsers"`
	TopDevices     []models.DeviceCount   `json:"top_devices"`
	TopCountries   []models.CountryCount  `json:"top_countries"`
	TopReferrers   []models.ReferrerCount `json:"top_referrers"`
}

type analyticsResponse struct {
	Link    *models.Link     `json:"link"`
	Clicks  []models.Click   `json:"clicks"`
	Summary analyticsSummary `json:"summary"`
}

// Analytics returns a link, its full click history newest first, and an
// aggregate summary. Links owned by someone else 404 exactly like missing
// ones.
func (h *LinkHandler) Analytics(w http.ResponseWriter, r *http.Request) {
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
	link.FillShortURL(h.Cfg.BaseURL)

	clicks, err := models.ListClicksByLink(h.DB, link.ID)
	if err != nil {
		h.Log.Error("list clicks failed", zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if clicks == nil {
		clicks = []models.Click{}
	}

	summary, err := h.buildSummary(link.ID)
	if err != nil {
		h.Log.Error("build analytics summary failed", zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, analyticsResponse{Link: link, Clicks: clicks, Summary: summary})
}

func (h *LinkHandler) buildSummary(linkID int64) (analyticsSummary, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.Add(-7 * 24 * time.Hour)
	twoWeeksAgo := now.Add(-14 * 24 * time.Hour)

	var (
		s   analyticsSummary
		err error
	)
	if s.TotalClicks, err = models.ClickCountForLink(h.DB, linkID); err != nil {
		return s, err
	}
	if s.ClicksToday, err = models.ClicksSinceForLink(h.DB, linkID, midnight); err != nil {
		return s, err
	}
	if s.ClicksThisWeek, err = models.ClicksSinceForLink(h.DB, linkID, weekAgo); err != nil {
		return s, err
	}
	if s.ClicksPrevWeek, err = models.ClicksBetweenForLink(h.DB, linkID, twoWeeksAgo, weekAgo); err != nil {
		return s, err
	}
	if s.TopBrowsers, err = models.TopBrowsersForLink(h.DB, linkID, topLimit); err != nil {
		return s, err
	}
	if s.TopDevices, err = models.TopDevicesForLink(h.DB, linkID, topLimit); err != nil {
		return s, err
	}
	if s.TopCountries, err = models.TopCountriesForLink(h.DB, linkID, topLimit); err != nil {
		return s, err
	}
	if s.TopReferrers, err = models.TopReferrersForLink(h.DB, linkID, topLimit); err != nil {
		return s, err
	}

	switch {
	case s.ClicksPrevWeek > 0:
		s.WeekChange = ((s.ClicksThisWeek - s.ClicksPrevWeek) * 100) / s.ClicksPrevWeek
	case s.ClicksThisWeek > 0:
		s.WeekChange = 100
	}

	return s, nil
}
