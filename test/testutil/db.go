package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/mpan/internal/config"
	"github.com/xxxsen/mpan/internal/db"
)

func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "mpan",
		Password: "mpan_pass",
		DBName:   "mpan_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	Reset(t, conn)
	return conn, func() {
		_ = conn.Close()
	}
}

// Reset empties the tables so tests do not bleed into each other.
func Reset(t *testing.T, conn *sql.DB) {
	t.Helper()
	for _, table := range []string{"shares", "files", "users", "website_settings"} {
		if _, err := conn.Exec("TRUNCATE TABLE " + table); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
}
