package validator_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/validator"
)

func TestValidateTrigger_FullSync(t *testing.T) {
	v := validator.NewValidator()

	trigger, result := v.ValidateTrigger(validator.KindFullSync, "", "", "", "")

	if !result.IsValid {
		t.Errorf("Expected valid full_sync trigger, got: %s", result.Reason)
	}
	if trigger.Kind != validator.KindFullSync {
		t.Errorf("Expected kind full_sync, got '%s'", trigger.Kind)
	}
}

func TestValidateTrigger_TenantSyncRequiresTenantID(t *testing.T) {
	v := validator.NewValidator()

	_, result := v.ValidateTrigger(validator.KindTenantSync, "", "", "", "")

	if result.IsValid {
		t.Error("Expected invalid result for tenant_sync without tenant_id")
	}
}

func TestValidateTrigger_TenantSyncParsesTenantID(t *testing.T) {
	v := validator.NewValidator()
	id := uuid.New()

	trigger, result := v.ValidateTrigger(validator.KindTenantSync, id.String(), "", "", "")

	if !result.IsValid {
		t.Errorf("Expected valid trigger, got: %s", result.Reason)
	}
	if trigger.TenantID != id {
		t.Errorf("Expected tenant id %s, got %s", id, trigger.TenantID)
	}
}

func TestValidateTrigger_MalformedTenantID(t *testing.T) {
	v := validator.NewValidator()

	_, result := v.ValidateTrigger(validator.KindTenantSync, "not-a-uuid", "", "", "")

	if result.IsValid {
		t.Error("Expected invalid result for malformed tenant_id")
	}
}

func TestValidateTrigger_ConnectionTestRequiresSchema(t *testing.T) {
	v := validator.NewValidator()

	_, result := v.ValidateTrigger(validator.KindConnectionTest, "", "", "", "")

	if result.IsValid {
		t.Error("Expected invalid result for connection_test without schema")
	}

	_, result = v.ValidateTrigger(validator.KindConnectionTest, "", "menlynbms2", "", "")
	if !result.IsValid {
		t.Errorf("Expected valid connection_test trigger, got: %s", result.Reason)
	}
}

func TestValidateTrigger_SyncStatus(t *testing.T) {
	v := validator.NewValidator()

	trigger, result := v.ValidateTrigger(validator.KindSyncStatus, "", "", "", "")

	if !result.IsValid {
		t.Errorf("Expected valid sync_status trigger, got: %s", result.Reason)
	}
	if trigger.Kind != validator.KindSyncStatus {
		t.Errorf("Expected kind sync_status, got '%s'", trigger.Kind)
	}

	_, result = v.ValidateTrigger(validator.KindSyncStatus, "", "", "", "2026-01-15")
	if result.IsValid {
		t.Error("Expected invalid result for since on sync_status")
	}
}

func TestValidateTrigger_UnknownKind(t *testing.T) {
	v := validator.NewValidator()

	_, result := v.ValidateTrigger("resync_everything", "", "", "", "")

	if result.IsValid {
		t.Error("Expected invalid result for unknown kind")
	}

	_, result = v.ValidateTrigger("", "", "", "", "")
	if result.IsValid {
		t.Error("Expected invalid result for empty kind")
	}
}

func TestValidateTrigger_SinceDate(t *testing.T) {
	v := validator.NewValidator()
	id := uuid.New().String()

	trigger, result := v.ValidateTrigger(validator.KindTenantSync, id, "", "", "2026-01-15")
	if !result.IsValid {
		t.Errorf("Expected valid trigger with since date, got: %s", result.Reason)
	}
	if trigger.Since == nil {
		t.Fatal("Expected parsed since date")
	}
	if trigger.Since.Year() != 2026 || trigger.Since.Month() != 1 || trigger.Since.Day() != 15 {
		t.Errorf("Unexpected since date: %v", trigger.Since)
	}

	_, result = v.ValidateTrigger(validator.KindTenantSync, id, "", "", "15/01/2026")
	if result.IsValid {
		t.Error("Expected invalid result for malformed since date")
	}

	_, result = v.ValidateTrigger(validator.KindFullSync, "", "", "", "2026-01-15")
	if result.IsValid {
		t.Error("Expected invalid result for since on full_sync")
	}
}
