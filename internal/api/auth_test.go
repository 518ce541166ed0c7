package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"supperclub/internal/config"
	"supperclub/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenAuth_RoundTrip(t *testing.T) {
	auth := NewTokenAuth(config.APIAuthConfig{JWTSecret: "s3cret", Issuer: "supperclub"})

	tok, err := auth.Issue(models.Actor{ID: "user-1", Role: models.RoleAdmin}, time.Minute)
	require.NoError(t, err)

	actor, err := auth.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, models.Actor{ID: "user-1", Role: models.RoleAdmin}, actor)
}

func TestTokenAuth_Rejects(t *testing.T) {
	auth := NewTokenAuth(config.APIAuthConfig{JWTSecret: "s3cret", Issuer: "supperclub"})
	now := time.Now()

	sign := func(secret string, method jwt.SigningMethod, claims Claims) string {
		t.Helper()
		tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return tok
	}
	valid := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "supperclub",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "abc.def.ghi"},
		{"wrong secret", sign("other", jwt.SigningMethodHS256, Claims{RegisteredClaims: valid})},
		{"wrong algorithm", sign("s3cret", jwt.SigningMethodHS512, Claims{RegisteredClaims: valid})},
		{"wrong issuer", sign("s3cret", jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: "user-1", Issuer: "elsewhere", ExpiresAt: valid.ExpiresAt,
		}})},
		{"no expiry", sign("s3cret", jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: "user-1", Issuer: "supperclub",
		}})},
		{"no subject", sign("s3cret", jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "supperclub", ExpiresAt: valid.ExpiresAt,
		}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Verify(tt.token)
			assert.ErrorIs(t, err, errInvalidToken)
		})
	}
}

func TestTokenAuth_DefaultRole(t *testing.T) {
	auth := NewTokenAuth(config.APIAuthConfig{JWTSecret: "s3cret"})
	tok, err := auth.Issue(models.Actor{ID: "user-1"}, time.Minute)
	require.NoError(t, err)

	actor, err := auth.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, models.RoleGuest, actor.Role)
}

func TestTokenAuth_Wrap(t *testing.T) {
	auth := NewTokenAuth(config.APIAuthConfig{JWTSecret: "s3cret"})
	var seen models.Actor
	handler := auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tok, err := auth.Issue(models.Actor{ID: "user-1", Role: models.RoleHost}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-1", seen.ID)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
