package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/Reportify/teleopsold-sub002/internal/infra/config"
)

func TestCacheOptionsDefaults(t *testing.T) {
	opts := cacheOptions(config.RedisSettings{Host: "cache", Port: 6380})

	if opts.Addr != "cache:6380" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.PoolSize != defaultPoolSize || opts.MinIdleConns != 2 {
		t.Fatalf("unexpected pool sizing: %d/%d", opts.PoolSize, opts.MinIdleConns)
	}
	if opts.ReadTimeout != defaultOpTimeout || opts.DialTimeout != 2*time.Second {
		t.Fatalf("unexpected timeouts: read=%s dial=%s", opts.ReadTimeout, opts.DialTimeout)
	}
	if opts.TLSConfig != nil {
		t.Fatal("tls should be off by default")
	}

	tuned := cacheOptions(config.RedisSettings{PoolSize: 50, OpTimeout: 100 * time.Millisecond, TLSEnabled: true})
	if tuned.PoolSize != 50 || tuned.WriteTimeout != 100*time.Millisecond || tuned.TLSConfig == nil {
		t.Fatalf("settings not applied: %+v", tuned)
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := miniredis.RunT(t)
	port, err := strconv.Atoi(server.Port())
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	client, err := NewClient(context.Background(), config.RedisSettings{Host: server.Host(), Port: port}, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}

	server.Close()
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail once redis is gone")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}
