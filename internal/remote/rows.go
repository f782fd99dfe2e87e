package remote

import "time"

// MachineRow is one machine as extracted from bms_machines, joined with
// its vtiger_crmentity record. Numeric-looking columns (machinestatus,
// rental amounts) are varchars in the BMS schema; database/sql converts
// them during Scan.
type MachineRow struct {
	MachinesID            int64
	SerialNumber          string
	MachineNo             *string
	MachineName           *string
	Category              *string
	ModelName             *string
	MachineStatus         *int64
	StartDate             *time.Time
	InstallDate           *time.Time
	ContractNo            *string
	ContractType          *string
	RentalStartDate       *time.Time
	RentalEndDate         *time.Time
	RentalMonthsRemaining *int64
	RentalAmountExVat     *float64
	OtherFixedAmountExVat *float64
	Lift                  *int64
	CreatedTime           *time.Time
	ModifiedTime          *time.Time
}

// MeterReadingRow is one row from bms_meterreading. Counters are
// cumulative hardware values; nil means the source column was NULL.
type MeterReadingRow struct {
	MeterReadingID   int64
	MeterReadingNo   *string
	Asset            int64
	ReadingDate      time.Time
	Total            *int64
	A3               *int64
	Black            *int64
	Large            *int64
	Colour           *int64
	ExtraLarge       *int64
	ForBilling       *int64
	IsOpeningReading *int64
	IsClosingReading *int64
	IsReported       *int64
	CreatedTime      *time.Time
}

// RateRow is one row of FSMA rate history from bms_machines_fsma_rates
type RateRow struct {
	MachineID        int64
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
