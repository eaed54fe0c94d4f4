package identity_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/identity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	gotrueUserID   = "6f1c2a9e-3b7d-4f0a-9c59-7c1c2b4d8e10"
	gotrueBrokenID = "0b8f7e2d-1c4a-4e6b-8d93-2a5f6c7e9b01"
)

func newGoTrueServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Query().Get("grant_type") {
		case "password":
			if body["password"] != "secreto123" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
		case "refresh_token":
			if body["refresh_token"] != "refresh-1" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-1",
			"token_type":    "bearer",
			"expires_in":    3600,
			"expires_at":    1767225600,
			"refresh_token": "refresh-2",
			"user":          map[string]string{"id": gotrueUserID, "email": "ana@colegio.cl"},
		})
	})

	mux.HandleFunc("GET /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer access-1":
			json.NewEncoder(w).Encode(map[string]string{"id": gotrueUserID, "email": "ana@colegio.cl"})
		case "Bearer broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})

	mux.HandleFunc("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /auth/v1/admin/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["email"] == "existe@colegio.cl" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": gotrueUserID, "email": body["email"].(string)})
	})

	mux.HandleFunc("DELETE /auth/v1/admin/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		switch r.PathValue("id") {
		case gotrueUserID:
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))
		case gotrueBrokenID:
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGoTrue(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	srv := newGoTrueServer(t)
	client := identity.NewGoTrue(identity.GoTrueConfig{
		URL:        srv.URL,
		AnonKey:    "anon-key",
		ServiceKey: "service-key",
	}, logger)

	t.Run("SignIn_Success", func(t *testing.T) {
		sess, err := client.SignIn(ctx, "ana@colegio.cl", "secreto123")
		require.NoError(t, err)
		assert.Equal(t, "access-1", sess.AccessToken)
		assert.Equal(t, "refresh-2", sess.RefreshToken)
		require.NotNil(t, sess.User)
		assert.Equal(t, gotrueUserID, sess.User.ID.String())
	})

	t.Run("SignIn_Rejected", func(t *testing.T) {
		_, err := client.SignIn(ctx, "ana@colegio.cl", "mala")
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("Refresh_Rejected", func(t *testing.T) {
		_, err := client.Refresh(ctx, "otro")
		assert.ErrorIs(t, err, identity.ErrInvalidRefreshToken)
	})

	t.Run("Identify_Success", func(t *testing.T) {
		id, err := client.Identify(ctx, "access-1")
		require.NoError(t, err)
		assert.Equal(t, "ana@colegio.cl", id.Email)
	})

	t.Run("Identify_Rejected", func(t *testing.T) {
		_, err := client.Identify(ctx, "expired")
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("Identify_ServerError", func(t *testing.T) {
		_, err := client.Identify(ctx, "broken")
		require.Error(t, err)
		assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	})

	t.Run("Identify_Unreachable", func(t *testing.T) {
		down := identity.NewGoTrue(identity.GoTrueConfig{URL: "http://127.0.0.1:1", AnonKey: "k"}, logger)
		_, err := down.Identify(ctx, "access-1")
		require.Error(t, err)
		assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	})

	t.Run("SignOut_Success", func(t *testing.T) {
		assert.NoError(t, client.SignOut(ctx, "access-1"))
	})

	t.Run("Provision_Success", func(t *testing.T) {
		id, err := client.Provision(ctx, "nuevo@colegio.cl", "secreto123")
		require.NoError(t, err)
		assert.Equal(t, "nuevo@colegio.cl", id.Email)
	})

	t.Run("Provision_Duplicate", func(t *testing.T) {
		_, err := client.Provision(ctx, "existe@colegio.cl", "secreto123")
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("Deprovision_Success", func(t *testing.T) {
		assert.NoError(t, client.Deprovision(ctx, uuid.MustParse(gotrueUserID)))
	})

	t.Run("Deprovision_AlreadyGone", func(t *testing.T) {
		assert.NoError(t, client.Deprovision(ctx, uuid.New()))
	})

	t.Run("Deprovision_ServerError", func(t *testing.T) {
		err := client.Deprovision(ctx, uuid.MustParse(gotrueBrokenID))
		require.Error(t, err)
		assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	})
}
