package models

import (
	"database/sql"
	"fmt"
	"time"
)

type ReferrerCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

type BrowserCount struct {
	Browser string `json:"browser"`
	Count   int    `json:"count"`
}

type DeviceCount struct {
	DeviceType string `json:"device_type"`
	Count      int    `json:"count"`
}

// ClicksSinceForLink counts clicks at or after a boundary computed by the
// caller, which keeps timezone decisions out of SQL.
func ClicksSinceForLink(db *sql.DB, linkID int64, since time.Time) (int, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM clicks WHERE link_id = ? AND created_at >= ?`,
		linkID, since.UTC(),
	).Scan(&count)
	return count, err
}

// ClicksBetweenForLink counts clicks in [from, to).
func ClicksBetweenForLink(db *sql.DB, linkID int64, from, to time.Time) (int, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM clicks WHERE link_id = ? AND created_at >= ? AND created_at < ?`,
		linkID, from.UTC(), to.UTC(),
	).Scan(&count)
	return count, err
}

func TopReferrersForLink(db *sql.DB, linkID int64, limit int) ([]ReferrerCount, error) {
	rows, err := db.Query(
		`SELECT referer_domain, COUNT(*) AS n FROM clicks
		 WHERE link_id = ? AND referer_domain != ''
		 GROUP BY referer_domain ORDER BY n DESC LIMIT ?`,
		linkID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top referrers: %w", err)
	}
	defer rows.Close()

	var out []ReferrerCount
	for rows.Next() {
		var rc ReferrerCount
		if err := rows.Scan(&rc.Domain, &rc.Count); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func TopCountriesForLink(db *sql.DB, linkID int64, limit int) ([]CountryCount, error) {
	rows, err := db.Query(
		`SELECT country, COUNT(*) AS n FROM clicks
		 WHERE link_id = ? AND country != ''
		 GROUP BY country ORDER BY n DESC LIMIT ?`,
		linkID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top countries: %w", err)
	}
	defer rows.Close()

	var out []CountryCount
	for rows.Next() {
		var cc CountryCount
		if err := rows.Scan(&cc.Country, &cc.Count); err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

func TopBrowsersForLink(db *sql.DB, linkID int64, limit int) ([]BrowserCount, error) {
	rows, err := db.Query(
		`SELECT browser, COUNT(*) AS n FROM clicks
		 WHERE link_id = ? AND browser != ''
		 GROUP BY browser ORDER BY n DESC LIMIT ?`,
		linkID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top browsers: %w", err)
	}
	defer rows.Close()

	var out []BrowserCount
	for rows.Next() {
		var bc BrowserCount
		if err := rows.Scan(&bc.Browser, &bc.Count); err != nil {
			return nil, err
		}
		out = append(out, bc)
	}
	return out, rows.Err()
}

func TopDevicesForLink(db *sql.DB, linkID int64, limit int) ([]DeviceCount, error) {
	rows, err := db.Query(
		`SELECT device_type, COUNT(*) AS n FROM clicks
		 WHERE link_id = ? AND device_type != ''
		 GROUP BY device_type ORDER BY n DESC LIMIT ?`,
		linkID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top devices: %w", err)
	}
	defer rows.Close()

	var out []DeviceCount
	for rows.Next() {
		var dc DeviceCount
		if err := rows.Scan(&dc.DeviceType, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}
