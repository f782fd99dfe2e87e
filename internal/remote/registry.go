package remote

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Registry is a process-wide cache of bounded connection pools, one per
// (host, port, schema). A pool is cached only after a successful
// handshake, so a failed connection attempt is retried cleanly on the
// next call. Construction is single-flighted per key: concurrent
// callers for the same key share one attempt while unrelated keys
// proceed independently.
type Registry struct {
	mu    sync.RWMutex
	pools map[string]*sql.DB
	group singleflight.Group

	driverName     string
	maxOpenConns   int
	connectTimeout time.Duration
	logger         *zap.Logger
}

// TestResult reports the outcome of a connection test
type TestResult struct {
	Success   bool   `json:"success"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// NewRegistry creates an empty registry. maxOpenConns is kept small on
// purpose: the BMS servers are shared third-party infrastructure.
func NewRegistry(maxOpenConns int, connectTimeout time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		pools:          make(map[string]*sql.DB),
		driverName:     "mysql",
		maxOpenConns:   maxOpenConns,
		connectTimeout: connectTimeout,
		logger:         logger,
	}
}

// GetPool returns the cached pool for the config's key, constructing
// and verifying a new one on first use.
func (r *Registry) GetPool(ctx context.Context, cfg Config) (*sql.DB, error) {
	key := cfg.PoolKey()

	r.mu.RLock()
	pool, ok := r.pools[key]
	r.mu.RUnlock()
	if ok {
		return pool, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: another caller may have just
		// finished constructing this key.
		r.mu.RLock()
		pool, ok := r.pools[key]
		r.mu.RUnlock()
		if ok {
			return pool, nil
		}

		pool, err := r.openPool(ctx, cfg)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.pools[key] = pool
		r.mu.Unlock()

		r.logger.Info("remote pool created",
			zap.String("schema", cfg.Schema),
			zap.String("host", cfg.Host),
		)
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

func (r *Registry) openPool(ctx context.Context, cfg Config) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = cfg.Addr()
	mc.DBName = cfg.Schema
	mc.Timeout = r.connectTimeout
	// parseTime stays off: BMS schemas carry vtiger-era zero dates that
	// the driver would reject. Dates are scanned as strings instead.
	mc.Params = map[string]string{"charset": "utf8mb4"}

	pool, err := sql.Open(r.driverName, mc.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open BMS pool for %s@%s: %w", cfg.Schema, cfg.Host, err)
	}

	pool.SetMaxOpenConns(r.maxOpenConns)
	pool.SetMaxIdleConns(1)
	pool.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, r.connectTimeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to BMS database %s@%s: %w", cfg.Schema, cfg.Host, err)
	}

	return pool, nil
}

// TestPool verifies reachability of a remote and reports round-trip
// latency. Caching behavior is exactly that of GetPool.
func (r *Registry) TestPool(ctx context.Context, cfg Config) TestResult {
	start := time.Now()

	pool, err := r.GetPool(ctx, cfg)
	if err != nil {
		return TestResult{Success: false, Error: err.Error()}
	}
	if err := pool.PingContext(ctx); err != nil {
		return TestResult{Success: false, Error: err.Error()}
	}

	return TestResult{
		Success:   true,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

// ClosePool releases the pool for one key. Closing an absent key is a no-op.
func (r *Registry) ClosePool(cfg Config) {
	key := cfg.PoolKey()

	r.mu.Lock()
	pool, ok := r.pools[key]
	if ok {
		delete(r.pools, key)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	if err := pool.Close(); err != nil {
		r.logger.Error("failed to close remote pool", zap.String("key", key), zap.Error(err))
	}
}

// CloseAll releases every cached pool
func (r *Registry) CloseAll() {
	r.mu.Lock()
	pools := r.pools
	r.pools = make(map[string]*sql.DB)
	r.mu.Unlock()

	for key, pool := range pools {
		if err := pool.Close(); err != nil {
			r.logger.Error("failed to close remote pool", zap.String("key", key), zap.Error(err))
		}
	}
}
