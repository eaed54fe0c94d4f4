package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/isekhard17/academia-sekhard/internal/apperr"

	"github.com/google/uuid"
)

type GoTrueConfig struct {
	URL        string
	AnonKey    string
	ServiceKey string
	Timeout    time.Duration
}

// GoTrue is a client for the GoTrue REST API served under /auth/v1.
type GoTrue struct {
	baseURL    string
	apiKey     string
	serviceKey string
	client     *http.Client
	logger     *slog.Logger
}

func NewGoTrue(cfg GoTrueConfig, logger *slog.Logger) *GoTrue {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	apiKey := cfg.AnonKey
	if apiKey == "" {
		apiKey = cfg.ServiceKey
	}
	return &GoTrue{
		baseURL:    strings.TrimRight(cfg.URL, "/") + "/auth/v1",
		apiKey:     apiKey,
		serviceKey: cfg.ServiceKey,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type gotrueSession struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	RefreshToken string      `json:"refresh_token"`
	User         *gotrueUser `json:"user"`
}

// statusError is a non-2xx answer from GoTrue.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gotrue: status %d: %s", e.status, e.body)
}

// rejected reports whether GoTrue refused the request rather than failed.
func (e *statusError) rejected() bool {
	return e.status >= 400 && e.status < 500
}

func (g *GoTrue) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var out gotrueSession
	err := g.do(ctx, http.MethodPost, "/token?grant_type=password", "", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, g.classify(err, ErrInvalidCredentials)
	}
	return out.session()
}

func (g *GoTrue) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var out gotrueSession
	err := g.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", map[string]string{
		"refresh_token": refreshToken,
	}, &out)
	if err != nil {
		return nil, g.classify(err, ErrInvalidRefreshToken)
	}
	return out.session()
}

func (g *GoTrue) SignOut(ctx context.Context, accessToken string) error {
	if err := g.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil); err != nil {
		return g.classify(err, ErrInvalidToken)
	}
	return nil
}

func (g *GoTrue) Identify(ctx context.Context, accessToken string) (*Identity, error) {
	var out gotrueUser
	if err := g.do(ctx, http.MethodGet, "/user", accessToken, nil, &out); err != nil {
		return nil, g.classify(err, ErrInvalidToken)
	}
	id, err := out.identity()
	if err != nil {
		return nil, ErrInvalidToken
	}
	return id, nil
}

func (g *GoTrue) Provision(ctx context.Context, email, password string) (*Identity, error) {
	var out gotrueUser
	err := g.do(ctx, http.MethodPost, "/admin/users", g.serviceKey, map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	}, &out)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.status == http.StatusUnprocessableEntity || se.status == http.StatusConflict) {
			return nil, apperr.Conflict("email", "Ya existe un usuario con este email")
		}
		return nil, apperr.Upstream("provision identity", err)
	}
	return out.identity()
}

// Deprovision deletes the auth user; GoTrue drops its sessions with it.
func (g *GoTrue) Deprovision(ctx context.Context, id uuid.UUID) error {
	err := g.do(ctx, http.MethodDelete, "/admin/users/"+id.String(), g.serviceKey, nil, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusNotFound {
			return nil
		}
		return apperr.Upstream("deprovision identity", err)
	}
	return nil
}

func (g *GoTrue) classify(err error, rejection error) error {
	var se *statusError
	if errors.As(err, &se) && se.rejected() {
		g.logger.Debug("gotrue rejected request", "status", se.status)
		return rejection
	}
	return apperr.Upstream("identity provider unavailable", err)
}

func (g *GoTrue) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", g.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (s gotrueSession) session() (*Session, error) {
	sess := &Session{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		ExpiresIn:    s.ExpiresIn,
		ExpiresAt:    s.ExpiresAt,
		RefreshToken: s.RefreshToken,
	}
	if s.User != nil {
		id, err := s.User.identity()
		if err != nil {
			return nil, err
		}
		sess.User = id
	}
	return sess, nil
}

func (u gotrueUser) identity() (*Identity, error) {
	id, err := uuid.Parse(u.ID)
	if err != nil {
		return nil, fmt.Errorf("gotrue returned malformed user id %q: %w", u.ID, err)
	}
	return &Identity{ID: id, Email: u.Email}, nil
}
