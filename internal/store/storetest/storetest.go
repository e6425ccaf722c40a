// Package storetest открывает хранилища для тестов: SQLite во временной
// папке и Postgres в testcontainers.
package storetest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"tabula/internal/store"
)

// OpenSQLite открывает SQLite в t.TempDir() и закрывает его по завершении теста.
func OpenSQLite(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "tabula.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return s
}

// OpenPostgres поднимает контейнер Postgres. Пропускает тест под -short
// и без доступного Docker.
func OpenPostgres(t *testing.T) *store.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("tabula"),
		postgres.WithUsername("tabula"),
		postgres.WithPassword("tabula"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres url: %v", err)
	}
	s, err := store.OpenPostgres(url)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
