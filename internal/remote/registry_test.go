package remote_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/remote"
)

// unreachableConfig points at a port nothing listens on, so pool
// construction fails fast without external infrastructure.
func unreachableConfig() remote.Config {
	return remote.Config{
		Schema:   "menlynbms2",
		Host:     "127.0.0.1",
		Port:     1,
		User:     "fortyone",
		Password: "secret",
	}
}

func newTestRegistry() *remote.Registry {
	return remote.NewRegistry(5, 2*time.Second, zap.NewNop())
}

func TestGetPool_FailureIsNotCached(t *testing.T) {
	registry := newTestRegistry()
	defer registry.CloseAll()

	cfg := unreachableConfig()

	_, err := registry.GetPool(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected connection error for unreachable remote")
	}

	// A second attempt must try again rather than return a cached
	// broken pool.
	_, err = registry.GetPool(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected connection error on retry as well")
	}
}

func TestGetPool_ErrorIdentifiesRemote(t *testing.T) {
	registry := newTestRegistry()
	defer registry.CloseAll()

	_, err := registry.GetPool(context.Background(), unreachableConfig())
	if err == nil {
		t.Fatal("Expected connection error")
	}

	msg := err.Error()
	if !strings.Contains(msg, "menlynbms2") || !strings.Contains(msg, "127.0.0.1") {
		t.Errorf("Expected error to identify schema and host, got: %s", msg)
	}
}

func TestTestPool_ReportsFailure(t *testing.T) {
	registry := newTestRegistry()
	defer registry.CloseAll()

	result := registry.TestPool(context.Background(), unreachableConfig())

	if result.Success {
		t.Error("Expected failed test result for unreachable remote")
	}
	if result.Error == "" {
		t.Error("Expected error message in failed test result")
	}
}

func TestClosePool_AbsentKeyIsNoOp(t *testing.T) {
	registry := newTestRegistry()

	// Closing a key that was never opened must not panic or error.
	registry.ClosePool(unreachableConfig())
	registry.CloseAll()
	registry.CloseAll()
}
