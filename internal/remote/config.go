package remote

import (
	"fmt"
	"regexp"
	"strings"
)

// Config identifies one remote BMS database. Constructed per call by the
// Resolver and used only as a pool cache key and query target.
type Config struct {
	Schema   string
	Host     string
	Port     int
	User     string
	Password string
}

// PoolKey returns the registry cache key for this config
func (c Config) PoolKey() string {
	return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Schema)
}

// Addr returns the host:port pair for this config
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var schemaSuffix = regexp.MustCompile(`(?i)bms\d*$`)

// Resolver builds remote connection configs from tenant schema names.
// Port and credentials are process-wide; only host and schema vary.
type Resolver struct {
	user         string
	password     string
	port         int
	domainSuffix string
}

// NewResolver creates a resolver with the shared BMS credentials
func NewResolver(user, password string, port int, domainSuffix string) *Resolver {
	return &Resolver{
		user:         user,
		password:     password,
		port:         port,
		domainSuffix: domainSuffix,
	}
}

// Resolve produces the connection config for a tenant schema. When no
// explicit host is stored for the tenant, the host follows the store
// naming convention: "menlynbms2" -> "menlyn.jetlinestores.co.za".
func (r *Resolver) Resolve(schema string, explicitHost *string) Config {
	host := ""
	if explicitHost != nil {
		host = strings.TrimSpace(*explicitHost)
	}
	if host == "" {
		host = r.deriveHost(schema)
	}

	return Config{
		Schema:   schema,
		Host:     host,
		Port:     r.port,
		User:     r.user,
		Password: r.password,
	}
}

func (r *Resolver) deriveHost(schema string) string {
	storeName := strings.ToLower(schemaSuffix.ReplaceAllString(schema, ""))
	return storeName + "." + r.domainSuffix
}
