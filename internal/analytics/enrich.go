// Package analytics turns the raw facts of a redirect (IP, user agent,
// referer) into a fully described click row before it is written, so click
// rows never need a second pass.
package analytics

import (
	"net/url"
	"time"

	"github.com/mssola/useragent"

	"github.com/marekbraun/golinks/internal/geo"
	"github.com/marekbraun/golinks/internal/models"
)

type RawClick struct {
	LinkID    int64
	IP        string
	UserAgent string
	Referer   string
	CreatedAt time.Time
}

type Enricher struct {
	geo *geo.Reader
}

func NewEnricher(geoReader *geo.Reader) *Enricher {
	return &Enricher{geo: geoReader}
}

// Enrich builds the click row for one redirect traversal.
func (e *Enricher) Enrich(raw RawClick) models.Click {
	ua := useragent.New(raw.UserAgent)
	browserName, browserVersion := ua.Browser()

	deviceType := "desktop"
	if ua.Mobile() {
		deviceType = "mobile"
	} else if IsBot(raw.UserAgent) {
		deviceType = "bot"
	}

	var refererDomain string
	if raw.Referer != "" {
		if u, err := url.Parse(raw.Referer); err == nil {
			refererDomain = u.Host
		}
	}

	geoResult := e.geo.Lookup(raw.IP)

	return models.Click{
		LinkID:         raw.LinkID,
		IP:             raw.IP,
		UserAgent:      raw.UserAgent,
		Referer:        raw.Referer,
		RefererDomain:  refererDomain,
		Country:        geoResult.Country,
		City:           geoResult.City,
		Browser:        browserName,
		BrowserVersion: browserVersion,
		OS:             ua.OS(),
		DeviceType:     deviceType,
		CreatedAt:      raw.CreatedAt,
	}
}
