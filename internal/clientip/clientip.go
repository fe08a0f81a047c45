// Package clientip derives the client address recorded on a click. Direct
// deployments and reverse-proxied ones disagree about where the address
// lives, and local development has no public address at all, hence the
// forwarded-header / external-lookup / "localhost" cascade.
package clientip

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"
)

const DefaultLookupURL = "https://api.ipify.org?format=json"

type Resolver struct {
	lookupURL string
	timeout   time.Duration
	client    *http.Client
}

func NewResolver(lookupURL string, timeout time.Duration) *Resolver {
	return &Resolver{
		lookupURL: lookupURL,
		timeout:   timeout,
		client:    &http.Client{Timeout: timeout},
	}
}

// Resolve picks the first X-Forwarded-For entry, falling back to the remote
// address. Loopback or missing addresses trigger a best-effort external
// lookup; a lookup failure is swallowed so the redirect never waits on
// analytics. Whatever still looks like loopback is recorded as "localhost".
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) string {
	ip := ""
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		ip = strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
	}
	if ip == "" {
		if host, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
			ip = host
		} else {
			ip = req.RemoteAddr
		}
	}

	if ip == "" || isLoopback(ip) {
		if external := r.lookupExternal(ctx); external != "" {
			ip = external
		}
	}
	if ip == "" || isLoopback(ip) {
		ip = "localhost"
	}
	return ip
}

func (r *Resolver) lookupExternal(ctx context.Context) string {
	if r.lookupURL == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.lookupURL, nil)
	if err != nil {
		return ""
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ""
	}
	return body.IP
}

func isLoopback(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}
