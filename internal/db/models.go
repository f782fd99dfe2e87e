package db

import (
	"time"

	"github.com/google/uuid"
)

// Machine status values
const (
	MachineStatusActive   = "ACTIVE"
	MachineStatusInactive = "INACTIVE"
)

// Sync run kinds
const (
	SyncKindFull   = "FULL"
	SyncKindTenant = "TENANT"
)

// Sync run statuses
const (
	SyncStatusRunning   = "RUNNING"
	SyncStatusCompleted = "COMPLETED"
	SyncStatusFailed    = "FAILED"
)

// Tenant is one store/entity with its own BMS database
type Tenant struct {
	ID           uuid.UUID
	Name         string
	SchemaName   string
	ExplicitHost *string
	IsActive     bool
}

// Category is a machine category lookup record, created on demand during sync
type Category struct {
	ID   uuid.UUID
	Name string
}

// Machine is the central store representation of a physical machine.
// Serial number is the natural key across all tenants; a machine moving
// between stores keeps one row and is reassigned.
type Machine struct {
	ID                    uuid.UUID
	SerialNumber          string
	TenantID              uuid.UUID
	CategoryID            *uuid.UUID
	BMSMachinesID         int64
	BMSMachineNo          *string
	MachineName           *string
	MakeName              *string
	ModelName             *string
	Status                string
	BMSStatus             *int64
	InstallDate           *time.Time
	StartDate             *time.Time
	ContractNumber        *string
	ContractType          *string
	RentalStartDate       *time.Time
	RentalEndDate         *time.Time
	RentalMonthsRemaining *int64
	RentalAmountExVat     *float64
	OtherFixedAmountExVat *float64
	IsLifted              bool
	CurrentBalance        *int64
	LastReadingDate       *time.Time
	LastSyncedAt          *time.Time
}

// MeterReading is a persisted reading with its computed incrementals.
// Keyed by (machine_id, reading_date, bms_meterreading_id) so repeated
// syncs over the same source rows update in place.
type MeterReading struct {
	ID                uuid.UUID
	MachineID         uuid.UUID
	BMSMeterReadingID int64
	BMSMeterReadingNo *string
	ReadingDate       time.Time
	ReadingDateTime   *time.Time
	Total             int64
	A3                *int64
	Black             *int64
	Large             *int64
	Colour            *int64
	ExtraLarge        *int64
	IncrementalTotal  *int64
	IncrementalA3     *int64
	IncrementalBlack  *int64
	IncrementalLarge  *int64
	IncrementalColour *int64
	IncrementalXl     *int64
	IsReported        bool
	ForBilling        bool
	IsOpeningReading  bool
	IsClosingReading  bool
	Source            string
}

// MachineRate is one row of FSMA rate history for a machine
type MachineRate struct {
	ID               uuid.UUID
	MachineID        uuid.UUID
	Category         *string
	RatesFrom        time.Time
	Meters           *int64
	A4Mono           *float64
	A3Mono           *float64
	A4Colour         *float64
	A3Colour         *float64
	ColourExtraLarge *float64
	DateSaved        *time.Time
	SavedBy          *int64
}

// SyncRun is one ledger entry per orchestrator invocation, append-only.
// JSON tags because runs travel on status report events.
type SyncRun struct {
	ID                uuid.UUID  `json:"id"`
	Kind              string     `json:"kind"`
	TargetTenant      *string    `json:"target_tenant,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	TenantsProcessed  int        `json:"tenants_processed"`
	MachinesProcessed int        `json:"machines_processed"`
	ReadingsProcessed int        `json:"readings_processed"`
	RatesProcessed    int        `json:"rates_processed"`
	Status            string     `json:"status"`
	Errors            *string    `json:"errors,omitempty"`
}
