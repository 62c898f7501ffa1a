package store

import (
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/asistencia/internal/config"
)

func TestOpen_CSV(t *testing.T) {
	for _, kind := range []string{"", "csv", "CSV"} {
		s, err := Open(context.Background(), config.StoreConfig{Kind: kind, DataDir: t.TempDir()})
		if err != nil {
			t.Fatalf("Open(%q) error = %v", kind, err)
		}
		if s.Kind() != "csv" {
			t.Errorf("Open(%q).Kind() = %q, want csv", kind, s.Kind())
		}
		s.Close()
	}
}

func TestOpen_UnknownKind(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{Kind: "mongo"})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if s != nil {
		t.Errorf("store should be nil on error, got %T", s)
	}
	if !strings.Contains(err.Error(), "mongo") {
		t.Errorf("error should name the kind: %v", err)
	}
}

func TestOpen_PostgresBadURL(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{Kind: "postgres", DatabaseURL: "://not a url"})
	if err == nil {
		t.Fatal("expected error for malformed database URL")
	}
	if s != nil {
		t.Errorf("store should be nil on error, got %T", s)
	}
}
