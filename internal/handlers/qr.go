package handlers

import (
	"bytes"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"

	"github.com/marekbraun/golinks/internal/auth"
	"github.com/marekbraun/golinks/internal/models"
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// QRCode renders a PNG QR code pointing at the link's short URL.
// Query params: shape=square|circle, fg=#rrggbb, dl=1 to download.
func (h *LinkHandler) QRCode(w http.ResponseWriter, r *http.Request) {
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
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	link.FillShortURL(h.Cfg.BaseURL)

	opts := []standard.ImageOption{
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
		standard.WithQRWidth(10),
		standard.WithBorderWidth(20),
		standard.WithBgTransparent(),
	}
	if r.URL.Query().Get("shape") == "circle" {
		opts = append(opts, standard.WithCircleShape())
	}
	if fg := r.URL.Query().Get("fg"); hexColorRe.MatchString(fg) {
		opts = append(opts, standard.WithFgColorRGBHex(fg))
	}

	qrc, err := qrcode.New(link.ShortURL)
	if err != nil {
		jsonError(w, "failed to generate qr code", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	writer := standard.NewWithWriter(nopCloser{&buf}, opts...)
	if err := qrc.Save(writer); err != nil {
		jsonError(w, "failed to render qr code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if r.URL.Query().Get("dl") == "1" {
		w.Header().Set("Content-Disposition", "attachment; filename=\""+link.Slug+"-qr.png\"")
	}
	w.Write(buf.Bytes())
}
