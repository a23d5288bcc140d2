package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "testservlet"

func TestAuthMiddleware(t *testing.T) {
	mw := NewMiddleware(testSecret)

	tests := []struct {
		name           string
		path           string
		cookieValue    string
		authorization  string
		expectedStatus int
		expectedOwner  string
	}{
		{
			name:           "No Cookie - API",
			path:           "/api/v1/links",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "No Cookie - Browser",
			path:           "/dashboard",
			expectedStatus: http.StatusTemporaryRedirect,
		},
		{
			name:           "Invalid Cookie - API",
			path:           "/api/v1/links",
			cookieValue:    "invalid",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong Secret - API",
			path:           "/api/v1/links",
			cookieValue:    generateTestToken(t, "other-secret", "test@example.com", 5*time.Minute),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Expired Token - API",
			path:           "/api/v1/links",
			cookieValue:    generateTestToken(t, testSecret, "test@example.com", -time.Minute),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Valid Cookie - API",
			path:           "/api/v1/links",
			cookieValue:    generateTestToken(t, testSecret, "test@example.com", 5*time.Minute),
			expectedStatus: http.StatusOK,
			expectedOwner:  "test@example.com",
		},
		{
			name:           "Valid Bearer - API",
			path:           "/api/v1/links",
			authorization:  "Bearer " + generateTestToken(t, testSecret, "bearer@example.com", 5*time.Minute),
			expectedStatus: http.StatusOK,
			expectedOwner:  "bearer@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.cookieValue != "" {
				req.AddCookie(&http.Cookie{Name: authCookieName, Value: tt.cookieValue})
			}
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}

			var owner string
			rr := httptest.NewRecorder()
			handler := mw.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				owner = OwnerFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			handler.ServeHTTP(rr, req)

			if status := rr.Code; status != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v",
					status, tt.expectedStatus)
			}
			if owner != tt.expectedOwner {
				t.Errorf("owner = %q, want %q", owner, tt.expectedOwner)
			}
		})
	}
}

func TestRequestIDAndAccessLog(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	h := RequestID(AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "req-123", rr.Header().Get(requestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
	assert.Contains(t, buf.String(), `"status":418`)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NotEmpty(t, rr.Header().Get(requestIDHeader))
}

func generateTestToken(t *testing.T, secret, subject string, ttl time.Duration) string {
	t.Helper()
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tokenString
}
