package models

import (
	"database/sql"
	"fmt"
	"time"
)

// Click records one redirect traversal. Rows are append-only: nothing in the
// codebase updates or deletes them.
type Click struct {
	ID             int64     `json:"id"`
	LinkID         int64     `json:"link_id"`
	IP             string    `json:"ip"`
	UserAgent      string    `json:"user_agent"`
	Referer        string    `json:"referer"`
	RefererDomain  string    `json:"referer_domain"`
	Country        string    `json:"country"`
	City           string    `json:"city"`
	Browser        string    `json:"browser"`
	BrowserVersion string    `json:"browser_version"`
	OS             string    `json:"os"`
	DeviceType     string    `json:"device_type"`
	CreatedAt      time.Time `json:"created_at"`
}

func InsertClick(db *sql.DB, c *Click) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := db.Exec(
		`INSERT INTO clicks (link_id, ip, user_agent, referer, referer_domain, country, city, browser, browser_version, os, device_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.LinkID, c.IP, c.UserAgent, c.Referer, c.RefererDomain,
		c.Country, c.City, c.Browser, c.BrowserVersion, c.OS, c.DeviceType, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	id, _ := res.LastInsertId()
	c.ID = id
	return nil
}

func ListClicksByLink(db *sql.DB, linkID int64) ([]Click, error) {
	rows, err := db.Query(
		`SELECT id, link_id, ip, user_agent, referer, referer_domain, country, city, browser, browser_version, os, device_type, created_at
		 FROM clicks WHERE link_id = ? ORDER BY created_at DESC, id DESC`,
		linkID,
	)
	if err != nil {
		return nil, fmt.Errorf("list clicks: %w", err)
	}
	defer rows.Close()

	var clicks []Click
	for rows.Next() {
		var c Click
		if err := rows.Scan(&c.ID, &c.LinkID, &c.IP, &c.UserAgent, &c.Referer, &c.RefererDomain,
			&c.Country, &c.City, &c.Browser, &c.BrowserVersion, &c.OS, &c.DeviceType, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan click: %w", err)
		}
		clicks = append(clicks, c)
	}
	return clicks, rows.Err()
}

func ClickCountForLink(db *sql.DB, linkID int64) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM clicks WHERE link_id = ?`, linkID).Scan(&count)
	return count, err
}
