package cache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/amagraneronline/curso-python/internal/platform/config"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/2", false},
		{"empty", "", true},
		{"wrong-scheme", "http://localhost:6379", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(t.Context(), config.CacheConfig{URL: "redis://" + mr.Addr(), PoolSize: 4})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if got := c.Client.Options().PoolSize; got != 4 {
		t.Errorf("PoolSize = %d, want 4", got)
	}
	if err := c.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	mr.Close()
	if err := c.HealthCheck(t.Context()); err == nil {
		t.Error("HealthCheck() should fail once Redis is gone")
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	_, err := New(t.Context(), config.CacheConfig{URL: "redis://localhost:59999"})
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}
