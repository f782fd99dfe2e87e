package remote

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// stubDriver hands out connections that accept any DSN and ping
// successfully, so the registry's success path runs without a server.
type stubDriver struct{}

func (stubDriver) Open(name string) (driver.Conn, error) {
	return &stubConn{}, nil
}

type stubConn struct{}

func (*stubConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("not supported")
}

func (*stubConn) Close() error {
	return nil
}

func (*stubConn) Begin() (driver.Tx, error) {
	return nil, errors.New("not supported")
}

func init() {
	sql.Register("stub", stubDriver{})
}

func newStubRegistry() *Registry {
	r := NewRegistry(5, time.Second, zap.NewNop())
	r.driverName = "stub"
	return r
}

func stubConfig(schema string) Config {
	return Config{
		Schema:   schema,
		Host:     "menlyn.jetlinestores.co.za",
		Port:     3306,
		User:     "fortyone",
		Password: "secret",
	}
}

func TestGetPool_ReturnsSamePoolForSameKey(t *testing.T) {
	registry := newStubRegistry()

	first, err := registry.GetPool(context.Background(), stubConfig("menlynbms2"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := registry.GetPool(context.Background(), stubConfig("menlynbms2"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if first != second {
		t.Error("Expected the same pool instance for the same (host, port, schema)")
	}
}

func TestGetPool_DistinctPoolsPerSchemaOnSameHost(t *testing.T) {
	registry := newStubRegistry()

	menlyn, err := registry.GetPool(context.Background(), stubConfig("menlynbms2"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	waterfront, err := registry.GetPool(context.Background(), stubConfig("waterfrontbms2"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if menlyn == waterfront {
		t.Error("Expected distinct pools for different schemas on the same host")
	}
}

func TestGetPool_ClosedKeyIsRebuilt(t *testing.T) {
	registry := newStubRegistry()
	cfg := stubConfig("menlynbms2")

	first, err := registry.GetPool(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	registry.ClosePool(cfg)

	second, err := registry.GetPool(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if first == second {
		t.Error("Expected a fresh pool after the key was closed")
	}
}

func TestTestPool_SuccessReportsLatency(t *testing.T) {
	registry := newStubRegistry()

	result := registry.TestPool(context.Background(), stubConfig("menlynbms2"))

	if !result.Success {
		t.Fatalf("Expected successful test, got error: %s", result.Error)
	}
	if result.LatencyMs < 0 {
		t.Errorf("Expected non-negative latency, got %d", result.LatencyMs)
	}
}
