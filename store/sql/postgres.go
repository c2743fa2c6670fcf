package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	_ "github.com/lib/pq"
)

// PostgresConfig is the subset of persistence configuration the postgres
// client constructor needs.
type PostgresConfig interface {
	GetDebug() bool
	GetDriver() string
	GetServer() string
	GetPingTimeout() time.Duration
	GetOtelIdentifier() string
}

// NewPostgresClient opens a lib/pq backed persistence client for the
// webhook ledger. Callers register migrations and run Migrate themselves,
// typically through the migrations package.
func NewPostgresClient(cfg PostgresConfig) (*persistence.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sqlstore: persistence config is required")
	}
	dsn := strings.TrimSpace(cfg.GetServer())
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: postgres connection string is required")
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
	}

	client, err := persistence.New(cfg, sqlDB, pgdialect.New())
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	return client, nil
}
