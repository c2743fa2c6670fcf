package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	webhooks "github.com/goliatone/go-webhooks"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 registration call, got %d", len(calls))
	}
	if calls[0] != DialectSQLite {
		t.Fatalf("expected sqlite registration, got %q", calls[0])
	}
}

func TestRegister_DefaultsSourceLabel(t *testing.T) {
	reg, err := Register(context.Background(), func(context.Context, string, string, fs.FS) error {
		return nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.SourceLabel != "go-webhooks" {
		t.Fatalf("expected default source label, got %q", reg.SourceLabel)
	}
	if _, err := Register(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil register function")
	}
}

func TestWebhookTablesMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := webhooks.GetCoreMigrationsFS()
	paths := []string{
		"data/sql/migrations/20250301000000_create_webhook_tables.up.sql",
		"data/sql/migrations/20250301000000_create_webhook_tables.down.sql",
		"data/sql/migrations/sqlite/20250301000000_create_webhook_tables.up.sql",
		"data/sql/migrations/sqlite/20250301000000_create_webhook_tables.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteWebhookTablesMigration_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-webhook-tables?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	root := webhooks.GetCoreMigrationsFS()
	sqliteMigrations, err := fs.Sub(root, "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}

	if err := execSQLMigration(
		context.Background(),
		db,
		sqliteMigrations,
		"20250301000000_create_webhook_tables.up.sql",
	); err != nil {
		t.Fatalf("apply webhook tables migration up: %v", err)
	}

	requiredTables := []string{
		"webhook_events",
		"webhook_endpoints",
		"webhook_subscriptions",
		"webhook_deliveries",
	}
	for _, tableName := range requiredTables {
		var count int
		if err := db.QueryRowContext(
			context.Background(),
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
			tableName,
		).Scan(&count); err != nil {
			t.Fatalf("query sqlite_master for %s: %v", tableName, err)
		}
		if count != 1 {
			t.Fatalf("expected table %s to exist after up migration", tableName)
		}
	}

	if _, err := db.ExecContext(
		context.Background(),
		`INSERT INTO webhook_endpoints (id, owner_id, url, secret) VALUES (?, ?, ?, ?)`,
		"ep_migration_1",
		"user_migration_1",
		"https://example.com/hooks",
		"whsec_migration",
	); err != nil {
		t.Fatalf("insert endpoint: %v", err)
	}

	insertSubscription := `
		INSERT INTO webhook_subscriptions (id, endpoint_id, event_type)
		VALUES (?, ?, ?)
	`
	if _, err := db.ExecContext(
		context.Background(),
		insertSubscription,
		"sub_migration_1",
		"ep_migration_1",
		"payment.succeeded",
	); err != nil {
		t.Fatalf("insert subscription: %v", err)
	}
	if _, err := db.ExecContext(
		context.Background(),
		insertSubscription,
		"sub_migration_2",
		"ep_migration_1",
		"payment.succeeded",
	); err == nil {
		t.Fatalf("expected unique (endpoint_id, event_type) violation")
	}

	if _, err := db.ExecContext(
		context.Background(),
		`INSERT INTO webhook_deliveries (id, endpoint_id, event_id, event_type, payload)
		 VALUES (?, ?, ?, ?, ?)`,
		"del_migration_1",
		"ep_migration_1",
		"evt_missing",
		"payment.succeeded",
		[]byte(`{}`),
	); err == nil {
		t.Fatalf("expected foreign key violation for missing event")
	}

	if err := execSQLMigration(
		context.Background(),
		db,
		sqliteMigrations,
		"20250301000000_create_webhook_tables.down.sql",
	); err != nil {
		t.Fatalf("apply webhook tables migration down: %v", err)
	}

	var count int
	if err := db.QueryRowContext(
		context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
		"webhook_deliveries",
	).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master after down migration: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected webhook_deliveries to be dropped after down migration")
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
