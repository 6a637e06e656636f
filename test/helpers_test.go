//go:build integration
// +build integration

package test

import (
	"testing"

	goMFA "github.com/MrEthical07/goMFA"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newIntegrationEngine(t *testing.T, mutate func(*goMFA.Config)) (*goMFA.Engine, *redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := goMFA.DefaultConfig()
	cfg.Credential.BcryptCost = 4
	cfg.Issuance.EnableThrottle = false
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := goMFA.New().
		WithConfig(cfg).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}

	return engine, rdb, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}
