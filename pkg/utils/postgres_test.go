package utils

import (
	"context"
	"testing"
	"time"
)

func TestPostgresConfigDefaults(t *testing.T) {
	got := PostgresConfig{}.withDefaults()
	if got.Driver != "pgx" {
		t.Fatalf("expected pgx driver, got %q", got.Driver)
	}
	if got.MaxOpenConns != 10 || got.MaxIdleConns != 5 || got.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected defaults: %+v", got)
	}

	kept := PostgresConfig{MaxOpenConns: 4, MaxIdleConns: 9, ConnMaxLifetime: time.Minute}.withDefaults()
	if kept.MaxOpenConns != 4 || kept.ConnMaxLifetime != time.Minute {
		t.Fatalf("explicit values overwritten: %+v", kept)
	}
	if kept.MaxIdleConns != 2 {
		t.Fatalf("idle conns must not exceed open conns, got %d", kept.MaxIdleConns)
	}
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	if _, err := OpenPostgres(context.Background(), PostgresConfig{}); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
