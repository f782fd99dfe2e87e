package remote_test

import (
	"testing"

	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/remote"
)

func newTestResolver() *remote.Resolver {
	return remote.NewResolver("fortyone", "secret", 3306, "jetlinestores.co.za")
}

func TestResolve_DerivesHostFromSchema(t *testing.T) {
	resolver := newTestResolver()

	cfg := resolver.Resolve("menlynbms2", nil)

	if cfg.Host != "menlyn.jetlinestores.co.za" {
		t.Errorf("Expected host 'menlyn.jetlinestores.co.za', got '%s'", cfg.Host)
	}
	if cfg.Schema != "menlynbms2" {
		t.Errorf("Expected schema 'menlynbms2', got '%s'", cfg.Schema)
	}
	if cfg.Port != 3306 || cfg.User != "fortyone" || cfg.Password != "secret" {
		t.Error("Expected shared credentials and port on the resolved config")
	}
}

func TestResolve_ExplicitHostWinsVerbatim(t *testing.T) {
	resolver := newTestResolver()

	host := "172.20.251.127"
	cfg := resolver.Resolve("menlynbms2", &host)

	if cfg.Host != "172.20.251.127" {
		t.Errorf("Expected explicit host to be used verbatim, got '%s'", cfg.Host)
	}
}

func TestResolve_EmptyExplicitHostFallsBackToDerivation(t *testing.T) {
	resolver := newTestResolver()

	host := ""
	cfg := resolver.Resolve("rosebankbms2", &host)

	if cfg.Host != "rosebank.jetlinestores.co.za" {
		t.Errorf("Expected derived host, got '%s'", cfg.Host)
	}
}

func TestResolve_SuffixStrippingIsCaseInsensitive(t *testing.T) {
	resolver := newTestResolver()

	cfg := resolver.Resolve("WaterfrontBMS12", nil)

	if cfg.Host != "waterfront.jetlinestores.co.za" {
		t.Errorf("Expected 'waterfront.jetlinestores.co.za', got '%s'", cfg.Host)
	}
}

func TestResolve_SchemaWithoutSuffix(t *testing.T) {
	resolver := newTestResolver()

	cfg := resolver.Resolve("Gardens", nil)

	if cfg.Host != "gardens.jetlinestores.co.za" {
		t.Errorf("Expected 'gardens.jetlinestores.co.za', got '%s'", cfg.Host)
	}
}

func TestPoolKey_DistinguishesSchemasOnSameHost(t *testing.T) {
	a := remote.Config{Host: "172.20.251.127", Port: 3306, Schema: "anglobms2"}
	b := remote.Config{Host: "172.20.251.127", Port: 3306, Schema: "raptorbms2"}

	if a.PoolKey() == b.PoolKey() {
		t.Error("Expected different pool keys for different schemas on the same host")
	}
	if a.PoolKey() != "172.20.251.127:3306/anglobms2" {
		t.Errorf("Unexpected pool key format: %s", a.PoolKey())
	}
}
