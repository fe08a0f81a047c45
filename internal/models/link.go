package models

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrSlugTaken is returned when an insert or update trips the unique index
// on links.slug.
var ErrSlugTaken = errors.New("slug already in use")

type Link struct {
	ID          int64     `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Slug        string    `json:"slug"`
	Destination string    `json:"destination"`
	Title       string    `json:"title"`
	ShortURL    string    `json:"short_url"`
	ClickCount  int64     `json:"click_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FillShortURL derives the public short URL from the configured base URL.
func (l *Link) FillShortURL(baseURL string) {
	l.ShortURL = strings.TrimRight(baseURL, "/") + "/go/" + l.Slug
}

func CreateLink(db *sql.DB, l *Link) error {
	now := time.Now().UTC()
	res, err := db.Exec(
		`INSERT INTO links (owner_id, slug, destination, title, click_count, created_at, updated_at) VALUES (?, ?, ?, ?, 0, ?, ?)`,
		l.OwnerID, l.Slug, l.Destination, l.Title, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("insert link: %w", err)
	}
	id, _ := res.LastInsertId()
	l.ID = id
	l.ClickCount = 0
	l.CreatedAt = now
	l.UpdatedAt = now
	return nil
}

func GetLinkByID(db *sql.DB, id int64) (*Link, error) {
	row := db.QueryRow(`SELECT `+linkColumns+` FROM links WHERE id = ?`, id)
	return scanLink(row)
}

func GetLinkBySlug(db *sql.DB, slug string) (*Link, error) {
	row := db.QueryRow(`SELECT `+linkColumns+` FROM links WHERE slug = ?`, slug)
	return scanLink(row)
}

// GetLinkByIDAndOwner returns sql.ErrNoRows for both a missing link and a
// link owned by someone else, so callers cannot leak existence.
func GetLinkByIDAndOwner(db *sql.DB, id int64, ownerID string) (*Link, error) {
	row := db.QueryRow(`SELECT `+linkColumns+` FROM links WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanLink(row)
}

func ListLinksByOwner(db *sql.DB, ownerID string) ([]Link, error) {
	rows, err := db.Query(`SELECT `+linkColumns+` FROM links WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Slug, &l.Destination, &l.Title, &l.ClickCount, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// UpdateLink writes slug, destination and title in a single statement, so a
// slug conflict leaves every field untouched.
func UpdateLink(db *sql.DB, l *Link) error {
	now := time.Now().UTC()
	res, err := db.Exec(
		`UPDATE links SET slug = ?, destination = ?, title = ?, updated_at = ? WHERE id = ?`,
		l.Slug, l.Destination, l.Title, now, l.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("update link: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	l.UpdatedAt = now
	return nil
}

// DeleteLink removes the link. Click rows referencing it are kept.
func DeleteLink(db *sql.DB, id int64, ownerID string) error {
	res, err := db.Exec(`DELETE FROM links WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountLinksCreatedSince backs the daily creation quota.
func CountLinksCreatedSince(db *sql.DB, ownerID string, since time.Time) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM links WHERE owner_id = ? AND created_at >= ?`, ownerID, since.UTC()).Scan(&count)
	return count, err
}

// IncrementClickCount adds one to click_count in place, so concurrent
// redirects never lose an increment to a read-modify-write race.
func IncrementClickCount(db *sql.DB, id int64) error {
	res, err := db.Exec(`UPDATE links SET click_count = click_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment click count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const linkColumns = `id, owner_id, slug, destination, title, click_count, created_at, updated_at`

func scanLink(row *sql.Row) (*Link, error) {
	var l Link
	if err := row.Scan(&l.ID, &l.OwnerID, &l.Slug, &l.Destination, &l.Title, &l.ClickCount, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		return serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
