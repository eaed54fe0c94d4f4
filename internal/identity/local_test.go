package identity_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/identity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu     sync.Mutex
	creds  map[string]*identity.Credential
	tokens map[string]*identity.RefreshToken
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		creds:  map[string]*identity.Credential{},
		tokens: map[string]*identity.RefreshToken{},
	}
}

func (m *memoryStore) CreateCredential(_ context.Context, c *identity.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[c.Email]; ok {
		return apperr.Conflict("email", "duplicate")
	}
	m.creds[c.Email] = c
	return nil
}

func (m *memoryStore) GetCredentialByEmail(_ context.Context, email string) (*identity.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[email]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return c, nil
}

func (m *memoryStore) GetCredentialByUserID(_ context.Context, id uuid.UUID) (*identity.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.creds {
		if c.UserID == id {
			return c, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *memoryStore) CreateRefreshToken(_ context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = &identity.RefreshToken{UserID: userID, Token: token, ExpiresAt: expiresAt}
	return nil
}

func (m *memoryStore) ConsumeRefreshToken(_ context.Context, token string) (*identity.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.tokens[token]
	if !ok || !rt.ExpiresAt.After(time.Now()) {
		return nil, apperr.ErrNotFound
	}
	delete(m.tokens, token)
	return rt, nil
}

func (m *memoryStore) DeleteCredential(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, c := range m.creds {
		if c.UserID == userID {
			delete(m.creds, email)
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (m *memoryStore) DeleteUserTokens(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, rt := range m.tokens {
		if rt.UserID == userID {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *memoryStore) DeleteExpiredTokens(context.Context) (int64, error) {
	return 0, nil
}

func (m *memoryStore) tokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// rendezvousStore holds every ConsumeRefreshToken caller until n of them
// have arrived, so they race on the same token.
type rendezvousStore struct {
	*memoryStore
	arrived sync.WaitGroup
}

func newRendezvousStore(inner *memoryStore, n int) *rendezvousStore {
	s := &rendezvousStore{memoryStore: inner}
	s.arrived.Add(n)
	return s
}

func (s *rendezvousStore) ConsumeRefreshToken(ctx context.Context, token string) (*identity.RefreshToken, error) {
	s.arrived.Done()
	s.arrived.Wait()
	return s.memoryStore.ConsumeRefreshToken(ctx, token)
}

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := identity.LocalConfig{
		Secret:         "test-secret-key-for-testing",
		Issuer:         "academia-test",
		AccessTokenTTL: 15 * time.Minute,
	}

	setup := func(t *testing.T) (*identity.Local, *memoryStore, *identity.Identity) {
		t.Helper()
		store := newMemoryStore()
		provider := identity.NewLocal(store, cfg, logger)
		id, err := provider.Provision(ctx, "ana@colegio.cl", "secreto123")
		require.NoError(t, err)
		return provider, store, id
	}

	t.Run("SignIn_Success", func(t *testing.T) {
		provider, store, id := setup(t)

		sess, err := provider.SignIn(ctx, "ana@colegio.cl", "secreto123")
		require.NoError(t, err)
		assert.NotEmpty(t, sess.AccessToken)
		assert.NotEmpty(t, sess.RefreshToken)
		assert.Equal(t, "bearer", sess.TokenType)
		assert.Equal(t, 900, sess.ExpiresIn)
		assert.Equal(t, id.ID, sess.User.ID)
		assert.Equal(t, 1, store.tokenCount())
	})

	t.Run("SignIn_WrongPassword", func(t *testing.T) {
		provider, _, _ := setup(t)

		_, err := provider.SignIn(ctx, "ana@colegio.cl", "otra-clave")
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("SignIn_UnknownEmail", func(t *testing.T) {
		provider, _, _ := setup(t)

		_, err := provider.SignIn(ctx, "nadie@colegio.cl", "secreto123")
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("Identify_RoundTrip", func(t *testing.T) {
		provider, _, id := setup(t)
		sess, err := provider.SignIn(ctx, "ana@colegio.cl", "secreto123")
		require.NoError(t, err)

		got, err := provider.Identify(ctx, sess.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, id.ID, got.ID)
		assert.Equal(t, "ana@colegio.cl", got.Email)
	})

	t.Run("Identify_WrongSecret", func(t *testing.T) {
		provider, _, id := setup(t)

		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   id.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString([]byte("otro-secreto-cualquiera"))
		require.NoError(t, err)

		_, err = provider.Identify(ctx, forged)
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("Identify_Expired", func(t *testing.T) {
		provider, _, id := setup(t)

		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   id.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}).SignedString([]byte(cfg.Secret))
		require.NoError(t, err)

		_, err = provider.Identify(ctx, expired)
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("Identify_Garbage", func(t *testing.T) {
		provider, _, _ := setup(t)

		_, err := provider.Identify(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("Refresh_RotatesToken", func(t *testing.T) {
		provider, store, id := setup(t)
		sess, err := provider.SignIn(ctx, "ana@colegio.cl", "secreto123")
		require.NoError(t, err)

		next, err := provider.Refresh(ctx, sess.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, sess.RefreshToken, next.RefreshToken)
		assert.Equal(t, id.ID, next.User.ID)
		assert.Equal(t, 1, store.tokenCount())

		_, err = provider.Refresh(ctx, sess.RefreshToken)
		assert.ErrorIs(t, err, identity.ErrInvalidRefreshToken)
	})

	t.Run("Refresh_ConcurrentReplaySingleWinner", func(t *testing.T) {
		const callers = 8
		inner := newMemoryStore()
		store := newRendezvousStore(inner, callers)
		provider := identity.NewLocal(store, cfg, logger)
		_, err := provider.Provision(ctx, "ana@colegio.cl", "secreto123")
		require.NoError(t, err)
		sess, err := provider.SignIn(ctx, "ana@colegio.cl", "secreto123")
		require.NoError(t, err)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			won      int
			rejected int
		)
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := provider.Refresh(ctx, sess.RefreshToken)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					won++
				case errors.Is(err, identity.ErrInvalidRefreshToken):
					rejected++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, won)
		assert.Equal(t, callers-1, rejected)
		assert.Equal(t, 1, inner.tokenCount())
	})

	t.Run("Refresh_Unknown", func(t *testing.T) {
		provider, _, _ := setup(t)

		_, err := provider.Refresh(ctx, "deadbeef")
		assert.ErrorIs(t, err, identity.ErrInvalidRefreshToken)
	})

	t.Run("SignOut_RevokesRefreshTokens", func(t *testing.T) {
		provider, store, _ := setup(t)
		first, err := provider.SignIn(ctx, "ana@colegio.cl", "secreto123")
		require.NoError(t, err)
		_, err = provider.SignIn(ctx, "ana@colegio.cl", "secreto123")
		require.NoError(t, err)
		require.Equal(t, 2, store.tokenCount())

		require.NoError(t, provider.SignOut(ctx, first.AccessToken))
		assert.Equal(t, 0, store.tokenCount())
	})

	t.Run("Deprovision_RemovesCredentialAndSessions", func(t *testing.T) {
		provider, store, id := setup(t)
		sess, err := provider.SignIn(ctx, "ana@colegio.cl", "secreto123")
		require.NoError(t, err)

		require.NoError(t, provider.Deprovision(ctx, id.ID))
		assert.Equal(t, 0, store.tokenCount())

		_, err = provider.SignIn(ctx, "ana@colegio.cl", "secreto123")
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
		_, err = provider.Refresh(ctx, sess.RefreshToken)
		assert.ErrorIs(t, err, identity.ErrInvalidRefreshToken)

		again, err := provider.Provision(ctx, "ana@colegio.cl", "otra-clave")
		require.NoError(t, err)
		assert.NotEqual(t, id.ID, again.ID)
	})

	t.Run("Deprovision_Unknown", func(t *testing.T) {
		provider, _, _ := setup(t)
		assert.NoError(t, provider.Deprovision(ctx, uuid.New()))
	})

	t.Run("Provision_DuplicateEmail", func(t *testing.T) {
		provider, _, _ := setup(t)

		_, err := provider.Provision(ctx, "ana@colegio.cl", "secreto123")
		require.Error(t, err)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		assert.Equal(t, "email", apperr.As(err).Field)
	})
}
