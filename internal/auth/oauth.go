package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateCookie = "golinks_oauthstate"
	userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// googleUser is the subset of the userinfo response we care about. The
// account id becomes the opaque owner id on every link.
type googleUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// OAuthHandler drives the Google authorization-code flow and hands the
// result to Sessions.
type OAuthHandler struct {
	oauth    *oauth2.Config
	sessions *Sessions
	log      *zap.Logger
	secure   bool
}

func NewOAuthHandler(clientID, clientSecret, redirectURL string, sessions *Sessions, secure bool, log *zap.Logger) *OAuthHandler {
	return &OAuthHandler{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
			},
			Endpoint: google.Endpoint,
		},
		sessions: sessions,
		log:      log,
		secure:   secure,
	}
}

func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := h.setStateCookie(w)
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || r.FormValue("state") != cookie.Value {
		h.log.Warn("oauth callback with bad state")
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		h.log.Error("oauth code exchange failed", zap.Error(err))
		http.Error(w, "code exchange failed", http.StatusBadGateway)
		return
	}

	user, err := h.fetchUser(token.AccessToken)
	if err != nil {
		h.log.Error("oauth userinfo fetch failed", zap.Error(err))
		http.Error(w, "failed getting user info", http.StatusBadGateway)
		return
	}

	if err := h.sessions.Issue(w, user.ID); err != nil {
		h.log.Error("session issue failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.log.Info("login", zap.String("owner_id", user.ID), zap.String("email", user.Email))
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) fetchUser(accessToken string) (*googleUser, error) {
	resp, err := http.Get(userInfoURL + "?access_token=" + accessToken)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var user googleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (h *OAuthHandler) setStateCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Expires:  time.Now().Add(20 * time.Minute),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return state
}
