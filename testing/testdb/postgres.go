// Package testdb provides a migrated Postgres for repository integration
// tests.
package testdb

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/isekhard17/academia-sekhard/internal/db"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
)

const image = "postgres:16-alpine"

var (
	shared     *Postgres
	sharedErr  error
	sharedOnce sync.Once
)

// Tables lists every application table, children first.
var Tables = []string{
	"refresh_tokens",
	"credenciales",
	"asistencias",
	"notas",
	"evaluaciones",
	"materiales",
	"unidades",
	"inscripciones",
	"secciones",
	"asignaturas",
	"usuarios",
}

type Postgres struct {
	Container *postgres.PostgresContainer
	DB        *bun.DB
	DSN       string
}

// SetupSharedPostgres returns the Postgres shared by the test binary,
// starting it and applying migrations on first use. Skipped with -short.
// Callers that share it must not run in parallel.
//
//	pg := testdb.SetupSharedPostgres(t)
//	t.Run("Create", func(t *testing.T) {
//	    testdb.Reset(t, pg.DB)
//	})
func SetupSharedPostgres(t *testing.T) *Postgres {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	sharedOnce.Do(func() {
		shared, sharedErr = start(context.Background())
	})
	require.NoError(t, sharedErr, "postgres container failed to start")
	return shared
}

func start(ctx context.Context) (*Postgres, error) {
	container, err := postgres.Run(ctx, image,
		postgres.WithDatabase("academia_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, err
	}

	database, err := db.NewWithDSN(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, database, slog.Default()); err != nil {
		return nil, err
	}

	return &Postgres{Container: container, DB: database, DSN: dsn}, nil
}

// Reset empties every application table in one statement.
func Reset(t *testing.T, database *bun.DB) {
	t.Helper()
	_, err := database.NewTruncateTable().
		Table(Tables...).
		Cascade().
		Exec(context.Background())
	require.NoError(t, err, "failed to truncate tables")
}
