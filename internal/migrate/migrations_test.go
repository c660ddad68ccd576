package migrate_test

import (
	"context"
	"testing"

	"homeworks/internal/db"
	"homeworks/internal/migrate"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	v, err := migrate.Version(ctx, conn)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 3 {
		t.Fatalf("version = %d, want 3", v)
	}
	for _, table := range []string{"projects", "requests", "proposals", "activity_log", "tasks", "milestones", "cost_estimates", "api_keys"} {
		var name string
		err := conn.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestVersion(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	v, err := migrate.Version(ctx, conn)
	if err != nil || v != 0 {
		t.Fatalf("fresh version = %d, %v; want 0, nil", v, err)
	}
	conn.Close()
	if _, err := migrate.Version(ctx, conn); err == nil {
		t.Fatalf("version on closed db returned nil error")
	}
}
