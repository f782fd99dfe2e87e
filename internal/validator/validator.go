package validator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Trigger kinds accepted on the sync trigger queue
const (
	KindFullSync       = "full_sync"
	KindTenantSync     = "tenant_sync"
	KindConnectionTest = "connection_test"
	KindSyncStatus     = "sync_status"
)

// ValidationResult holds validation outcome
type ValidationResult struct {
	IsValid bool
	Reason  string
}

// Trigger is the validated shape of a sync trigger
type Trigger struct {
	Kind     string
	TenantID uuid.UUID
	Schema   string
	Host     string
	Since    *time.Time
}

// Validator validates incoming trigger messages
type Validator struct{}

// NewValidator creates a new trigger validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateTrigger checks a raw trigger's fields against its kind and
// returns the parsed trigger on success
func (v *Validator) ValidateTrigger(kind, tenantID, schema, host, since string) (Trigger, ValidationResult) {
	trigger := Trigger{Kind: kind, Schema: schema, Host: host}

	switch kind {
	case KindFullSync:
		// No arguments.
	case KindTenantSync:
		if tenantID == "" {
			return trigger, invalid("tenant_id is required for tenant_sync")
		}
		id, err := uuid.Parse(tenantID)
		if err != nil {
			return trigger, invalid(fmt.Sprintf("invalid tenant_id: %v", err))
		}
		trigger.TenantID = id
	case KindConnectionTest:
		if schema == "" {
			return trigger, invalid("schema is required for connection_test")
		}
	case KindSyncStatus:
		// No arguments.
	case "":
		return trigger, invalid("empty trigger kind")
	default:
		return trigger, invalid(fmt.Sprintf("unknown trigger kind '%s'", kind))
	}

	if since != "" {
		if kind != KindTenantSync {
			return trigger, invalid("since is only valid for tenant_sync")
		}
		t, err := parseSince(since)
		if err != nil {
			return trigger, invalid(fmt.Sprintf("invalid since date: %v", err))
		}
		trigger.Since = t
	}

	return trigger, ValidationResult{IsValid: true}
}

func parseSince(s string) (*time.Time, error) {
	for _, format := range []string{time.RFC3339, "2006-01-02"} {
		t, err := time.Parse(format, s)
		if err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got '%s'", s)
}

func invalid(reason string) ValidationResult {
	return ValidationResult{IsValid: false, Reason: reason}
}
