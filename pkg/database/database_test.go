package database

import (
	"testing"

	"quiz_edu_backend/internal/config"
)

func TestDialectorSelectsDriver(t *testing.T) {
	cases := map[string]string{
		"mysql":    "mysql",
		"postgres": "postgres",
		"sqlite":   "sqlite",
	}
	for driver, name := range cases {
		d, err := Dialector(&config.DatabaseConfig{Driver: driver, Path: ":memory:"})
		if err != nil {
			t.Fatalf("%s: %v", driver, err)
		}
		if d.Name() != name {
			t.Fatalf("expected dialector %s, got %s", name, d.Name())
		}
	}

	if _, err := Dialector(&config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestInitDBMigratesSQLite(t *testing.T) {
	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: "test"},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"},
	}
	db, err := InitDB(cfg)
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	for _, table := range []string{"users", "categories", "questions", "quiz_sessions", "attempt_histories", "coding_challenges", "challenge_submissions", "coding_submissions"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("expected table %s to exist", table)
		}
	}
}
