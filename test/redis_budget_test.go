//go:build integration
// +build integration

package test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	goMFA "github.com/MrEthical07/goMFA"
	"github.com/redis/go-redis/v9"
)

// cmdCounter is a go-redis Hook that counts the number of Redis round-trips
// (individual commands and pipeline calls).
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		// Each pipeline call is one network round-trip regardless of command count.
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) Commands() int64  { return h.commands.Load() }
func (h *cmdCounter) Pipelines() int64 { return h.pipelines.Load() }

// TestStartSessionRedisBudget verifies that opening an SMS session stays
// within a bounded number of Redis commands (session SET via TxPipelined).
func TestStartSessionRedisBudget(t *testing.T) {
	engine, rdb, cleanup := newIntegrationEngine(t, nil)
	defer cleanup()

	ctx := context.Background()

	// Warm the connection: go-redis may emit extra commands on first use
	// (handshake, CLIENT SETNAME, etc.). Issuing a PING before installing
	// the counter avoids counting that noise.
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}

	counter := &cmdCounter{}
	rdb.AddHook(counter)
	counter.Reset()

	if _, err := engine.StartSession(ctx, "budget-start", goMFA.FactorSMSOTP); err != nil {
		t.Fatalf("start session: %v", err)
	}

	cmds := counter.Commands()
	if cmds > 8 {
		t.Errorf("StartSession used %d Redis commands; budget is <= 8 (TxPipelined SET)", cmds)
	}
	t.Logf("StartSession: %d commands, %d pipelines", cmds, counter.Pipelines())
}

// TestVerifyCodeRedisBudget verifies that a successful verification stays
// within a bounded number of Redis commands (GET + WATCH/MULTI/EXEC conclude).
func TestVerifyCodeRedisBudget(t *testing.T) {
	engine, rdb, cleanup := newIntegrationEngine(t, nil)
	defer cleanup()

	ctx := context.Background()

	start, err := engine.StartSession(ctx, "budget-verify", goMFA.FactorSMSOTP)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}

	counter := &cmdCounter{}
	rdb.AddHook(counter)
	counter.Reset()

	outcome, err := engine.VerifyCode(ctx, start.Handle, start.Code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome != goMFA.OutcomeVerified {
		t.Fatalf("expected verified, got %v", outcome)
	}

	cmds := counter.Commands()
	if cmds > 12 {
		t.Errorf("VerifyCode used %d Redis commands; budget is <= 12 (GET + CAS transaction)", cmds)
	}
	t.Logf("VerifyCode: %d commands, %d pipelines", cmds, counter.Pipelines())
}
