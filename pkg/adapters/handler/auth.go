package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/config"
)

const (
	stateCookieName = "oauthstate"
	userInfoURL     = "https://www.googleapis.com/oauth2/v2/userinfo"
	sessionTTL      = 24 * time.Hour
)

type AuthHandler struct {
	oauthConfig   *oauth2.Config
	jwtSecret     []byte
	frontendURL   string
	allowedEmails []string
	isProduction  bool
}

type GoogleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	allowed := make([]string, 0, len(cfg.AllowedEmails))
	for _, e := range cfg.AllowedEmails {
		allowed = append(allowed, strings.ToLower(e))
	}
	return &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
			},
			Endpoint: google.Endpoint,
		},
		jwtSecret:     []byte(cfg.JWTSecret),
		frontendURL:   cfg.FrontendURL,
		allowedEmails: allowed,
		isProduction:  cfg.IsProduction(),
	}
}

// SignToken issues an HS256 session token whose subject is the owner id.
func SignToken(secret []byte, owner string, ttl time.Duration) (string, time.Time, error) {
	expires := time.Now().Add(ttl)
	claims := &jwt.RegisteredClaims{
		Subject:   owner,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	return signed, expires, err
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := h.generateStateOauthCookie(w)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("generate oauth state")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	oauthState, err := r.Cookie(stateCookieName)
	if err != nil {
		logger.Warn().Err(err).Msg("callback without oauth state cookie")
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}
	if r.FormValue("state") != oauthState.Value {
		logger.Warn().Msg("callback with mismatched oauth state")
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}

	user, err := h.fetchUser(r)
	if err != nil {
		logger.Error().Err(err).Msg("google login failed")
		http.Error(w, "login failed", http.StatusBadGateway)
		return
	}

	email := strings.ToLower(user.Email)
	if email == "" || !user.VerifiedEmail {
		http.Error(w, "Access denied: a verified email is required", http.StatusForbidden)
		return
	}
	if len(h.allowedEmails) > 0 && !slices.Contains(h.allowedEmails, email) {
		logger.Warn().Str("email", email).Msg("email not in allowlist")
		http.Error(w, "Access denied: your email is not in the allowlist", http.StatusForbidden)
		return
	}

	tokenString, expires, err := SignToken(h.jwtSecret, email, sessionTTL)
	if err != nil {
		logger.Error().Err(err).Msg("sign session token")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, h.cookie(authCookieName, tokenString, expires))
	logger.Info().Str("email", email).Msg("login successful")
	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) fetchUser(r *http.Request) (*GoogleUser, error) {
	token, err := h.oauthConfig.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}

	resp, err := h.oauthConfig.Client(r.Context(), token).Get(userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get user info: status %d", resp.StatusCode)
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &user, nil
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookie(authCookieName, "", time.Now().Add(-time.Hour)))
	http.Redirect(w, r, h.frontendURL+"/login", http.StatusTemporaryRedirect)
}

func (h *AuthHandler) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Expires:  expires,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) generateStateOauthCookie(w http.ResponseWriter) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, h.cookie(stateCookieName, state, time.Now().Add(20*time.Minute)))
	return state, nil
}
