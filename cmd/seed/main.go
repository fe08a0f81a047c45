// Seeds a local database with a demo owner, a handful of links and a few
// weeks of synthetic clicks. Development only.
package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/marekbraun/golinks/internal/analytics"
	"github.com/marekbraun/golinks/internal/db"
	"github.com/marekbraun/golinks/internal/geo"
	"github.com/marekbraun/golinks/internal/models"
)

type seedLink struct {
	slug  string
	dest  string
	title string
	// weight controls relative click volume (higher = more clicks)
	weight float64
}

var links = []seedLink{
	{"docs", "https://go.dev/doc/", "Go Documentation", 5.0},
	{"blog", "https://go.dev/blog/", "Go Blog", 3.5},
	{"spec", "https://go.dev/ref/spec", "Language Spec", 2.0},
	{"tour", "https://go.dev/tour/", "Tour of Go", 4.0},
	{"play", "https://go.dev/play/", "Playground", 4.5},
	{"pkg", "https://pkg.go.dev/", "Package Index", 3.0},
	{"wiki", "https://go.dev/wiki/", "Go Wiki", 1.5},
	{"talks", "https://go.dev/talks/", "Talks", 1.0},
}

var userAgents = []struct {
	ua     string
	weight float64
}{
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", 40},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15", 15},
	{"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", 15},
	{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", 15},
	{"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36", 10},
	{"Slackbot-LinkExpanding 1.0 (+https://api.slack.com/robots)", 5},
}

var referrers = []struct {
	url    string
	weight float64
}{
	{"", 30}, // direct traffic
	{"https://www.google.com/", 25},
	{"https://github.com/", 15},
	{"https://news.ycombinator.com/", 10},
	{"https://www.reddit.com/r/golang/", 10},
	{"https://t.co/x1y2z3", 10},
}

func pickUA(rng *rand.Rand) string {
	var total float64
	for _, u := range userAgents {
		total += u.weight
	}
	v := rng.Float64() * total
	for _, u := range userAgents {
		v -= u.weight
		if v <= 0 {
			return u.ua
		}
	}
	return userAgents[0].ua
}

func pickReferrer(rng *rand.Rand) string {
	var total float64
	for _, r := range referrers {
		total += r.weight
	}
	v := rng.Float64() * total
	for _, r := range referrers {
		v -= r.weight
		if v <= 0 {
			return r.url
		}
	}
	return referrers[0].url
}

func randomIP(rng *rand.Rand) string {
	// 203.0.113.0/24 is reserved for documentation, safe for fake data.
	return fmt.Sprintf("203.0.113.%d", rng.Intn(254)+1)
}

func main() {
	dbPath := os.Getenv("GOLINKS_DB_PATH")
	if dbPath == "" {
		dbPath = "./golinks.db"
	}

	database, err := db.Open(dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer database.Close()

	geoReader, _ := geo.Open(os.Getenv("GOLINKS_GEOIP_PATH"))
	defer geoReader.Close()
	enricher := analytics.NewEnricher(geoReader)

	rng := rand.New(rand.NewSource(42)) // deterministic seed
	ownerID := uuid.NewString()
	now := time.Now().UTC()
	threeWeeksAgo := now.AddDate(0, 0, -21)

	fmt.Printf("Seeding links for demo owner %s...\n", ownerID)

	for i, sl := range links {
		link := models.Link{
			OwnerID:     ownerID,
			Slug:        sl.slug,
			Destination: sl.dest,
			Title:       sl.title,
		}
		if err := models.CreateLink(database, &link); err != nil {
			log.Fatalf("create link %q: %v", sl.slug, err)
		}

		// Backdate creation, staggered every other day.
		createdAt := threeWeeksAgo.Add(time.Duration(i*2) * 24 * time.Hour)
		if _, err := database.Exec(`UPDATE links SET created_at = ?, updated_at = ? WHERE id = ?`, createdAt, createdAt, link.ID); err != nil {
			log.Fatalf("backdate link %q: %v", sl.slug, err)
		}

		clickCount := int(sl.weight * float64(20+rng.Intn(30)))
		for j := 0; j < clickCount; j++ {
			clickedAt := createdAt.Add(time.Duration(rng.Int63n(int64(now.Sub(createdAt)))))
			click := enricher.Enrich(analytics.RawClick{
				LinkID:    link.ID,
				IP:        randomIP(rng),
				UserAgent: pickUA(rng),
				Referer:   pickReferrer(rng),
				CreatedAt: clickedAt,
			})
			if err := models.InsertClick(database, &click); err != nil {
				log.Fatalf("insert click for %q: %v", sl.slug, err)
			}
			if err := models.IncrementClickCount(database, link.ID); err != nil {
				log.Fatalf("bump click count for %q: %v", sl.slug, err)
			}
		}

		fmt.Printf("  [%2d] /go/%s → %s (%d clicks)\n", link.ID, sl.slug, sl.title, clickCount)
	}

	fmt.Println("Done.")
}
