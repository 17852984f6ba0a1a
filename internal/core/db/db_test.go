package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	embeddedmigrations "github.com/solatis/browscap/migrations"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantDriver string
		wantSource string
		wantErr    bool
	}{
		{"sqlite relative", "sqlite://data/cache.db", "sqlite3", "data/cache.db", false},
		{"sqlite absolute", "sqlite:///var/lib/browscap.db", "sqlite3", "/var/lib/browscap.db", false},
		{"postgres", "postgres://u:p@localhost:5432/bc?sslmode=disable", "postgres", "postgres://u:p@localhost:5432/bc?sslmode=disable", false},
		{"unsupported", "mysql://localhost/bc", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, source, err := parseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if driver != tt.wantDriver || source != tt.wantSource {
				t.Errorf("parseURL() = %q, %q; want %q, %q", driver, source, tt.wantDriver, tt.wantSource)
			}
		})
	}
}

func TestMigrateUp_SQLite(t *testing.T) {
	ctx := context.Background()
	database, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer database.Close()

	if err := RequireMigrated(ctx, database); err == nil {
		t.Fatal("RequireMigrated() passed on empty database")
	}

	if err := MigrateUp(ctx, database); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	// Second run is a no-op.
	if err := MigrateUp(ctx, database); err != nil {
		t.Fatalf("MigrateUp() second run error = %v", err)
	}

	statuses, err := MigrateStatus(ctx, database)
	if err != nil {
		t.Fatalf("MigrateStatus() error = %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("len(statuses) = %d, want 2", len(statuses))
	}
	for _, s := range statuses {
		if !s.Applied {
			t.Errorf("migration %s not applied", s.ID)
		}
	}
	if err := RequireMigrated(ctx, database); err != nil {
		t.Errorf("RequireMigrated() error = %v", err)
	}

	q, err := LoadQueries(database)
	if err != nil {
		t.Fatalf("LoadQueries() error = %v", err)
	}
	if _, err := q.Exec(ctx, "put-shard", "k", []byte("v1"), time.Now().UTC()); err != nil {
		t.Fatalf("put-shard error = %v", err)
	}
	if _, err := q.Exec(ctx, "put-shard", "k", []byte("v2"), time.Now().UTC()); err != nil {
		t.Fatalf("put-shard upsert error = %v", err)
	}
	var payload []byte
	if err := q.Get(ctx, "get-shard", &payload, "k"); err != nil {
		t.Fatalf("get-shard error = %v", err)
	}
	if string(payload) != "v2" {
		t.Errorf("payload = %q, want v2", payload)
	}
	if _, err := q.Exec(ctx, "no-such-query"); err == nil {
		t.Error("Exec() of unknown query succeeded")
	}
}

func TestStatements(t *testing.T) {
	script := `-- Header; with a semicolon.
CREATE TABLE a (id TEXT);
  -- indented comment; also split-proof
CREATE INDEX idx_a ON a (id);

`
	got := statements(script)
	want := []string{"CREATE TABLE a (id TEXT)", "CREATE INDEX idx_a ON a (id)"}
	if len(got) != len(want) {
		t.Fatalf("statements() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("statements()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStatements_EmbeddedMigrations(t *testing.T) {
	for _, dir := range []string{"sqlite", "postgres"} {
		fsys := embeddedmigrations.SqliteMigrations
		if dir == "postgres" {
			fsys = embeddedmigrations.PostgresMigrations
		}
		migrations, err := parseMigrationFiles(fsys, dir)
		if err != nil {
			t.Fatalf("parseMigrationFiles(%s) error = %v", dir, err)
		}
		for _, m := range migrations {
			for _, stmt := range statements(m.SQL) {
				if !strings.HasPrefix(stmt, "CREATE ") {
					t.Errorf("%s/%s: statement does not start with CREATE: %q", dir, m.ID, stmt)
				}
			}
		}
	}
}
