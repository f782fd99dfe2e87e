package remote

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/final-space-dev/jetline-machines-automation-sub000/tools/bmsdate"
)

// Fetcher issues read-only extraction queries against remote BMS
// databases, using pools from the registry. It never retries; retry
// policy belongs to the orchestrator.
type Fetcher struct {
	registry *Registry
}

// NewFetcher creates a fetcher backed by the given registry
func NewFetcher(registry *Registry) *Fetcher {
	return &Fetcher{registry: registry}
}

const machineColumns = `
		ma.machinesid, ma.serialnumber, ma.machinesno, ma.machines_machine_name,
		ma.machines_category, ma.machine_model_name, ma.machinestatus,
		ma.start_date, ma.original_installation_date,
		ma.machine_contract_no, ma.machine_contract_type,
		ma.rental_start_date, ma.rental_end_date, ma.rental_months_remaining,
		ma.rental_amount_ex_vat, ma.other_fixed_amount_ex_vat, ma.lift,
		crm.createdtime, crm.modifiedtime`

// FetchMachines returns the full machine inventory of a remote.
// Rows without a serial number are excluded at the source: the serial
// is the natural key the central store upserts by.
func (f *Fetcher) FetchMachines(ctx context.Context, cfg Config) ([]MachineRow, error) {
	query := `
	SELECT` + machineColumns + `
	FROM bms_machines ma
	LEFT JOIN vtiger_crmentity crm ON crm.crmid = ma.machinesid
	WHERE ma.serialnumber IS NOT NULL AND ma.serialnumber != ''
	ORDER BY ma.machinesid`

	pool, err := f.registry.GetPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rows, err := pool.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch machines from %s: %w", cfg.Schema, err)
	}
	defer rows.Close()

	var machines []MachineRow
	for rows.Next() {
		var m MachineRow
		var startDate, installDate, rentalStart, rentalEnd, created, modified sql.NullString
		if err := rows.Scan(
			&m.MachinesID, &m.SerialNumber, &m.MachineNo, &m.MachineName,
			&m.Category, &m.ModelName, &m.MachineStatus,
			&startDate, &installDate,
			&m.ContractNo, &m.ContractType,
			&rentalStart, &rentalEnd, &m.RentalMonthsRemaining,
			&m.RentalAmountExVat, &m.OtherFixedAmountExVat, &m.Lift,
			&created, &modified,
		); err != nil {
			return nil, fmt.Errorf("failed to scan machine row from %s: %w", cfg.Schema, err)
		}

		m.StartDate = parseDate(startDate)
		m.InstallDate = parseDate(installDate)
		m.RentalStartDate = parseDate(rentalStart)
		m.RentalEndDate = parseDate(rentalEnd)
		m.CreatedTime = parseDate(created)
		m.ModifiedTime = parseDate(modified)

		machines = append(machines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read machine rows from %s: %w", cfg.Schema, err)
	}

	return machines, nil
}

// FetchReadings returns the meter reading history of a remote, ordered
// by machine then reading date. A non-nil since bounds the extraction to
// reading_date >= since for incremental syncs. Rows whose reading date
// cannot be parsed are dropped: the date is part of the persistence key.
func (f *Fetcher) FetchReadings(ctx context.Context, cfg Config, since *time.Time) ([]MeterReadingRow, error) {
	query := `
	SELECT
		mrd.meterreadingid, mrd.meterreading_no, mrd.asset, mrd.reading_date,
		mrd.total, mrd.a3, mrd.black, mrd.large, mrd.colour, mrd.extralarge,
		mrd.for_billing, mrd.is_opening_reading, mrd.is_closing_reading, mrd.is_reported,
		crm.createdtime
	FROM bms_meterreading mrd
	LEFT JOIN vtiger_crmentity crm ON crm.crmid = mrd.meterreadingid
	WHERE mrd.asset IS NOT NULL`

	var args []interface{}
	if since != nil {
		query += `
	  AND mrd.reading_date >= ?`
		args = append(args, since.Format("2006-01-02"))
	}
	query += `
	ORDER BY mrd.asset, mrd.reading_date`

	pool, err := f.registry.GetPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rows, err := pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch meter readings from %s: %w", cfg.Schema, err)
	}
	defer rows.Close()

	var readings []MeterReadingRow
	for rows.Next() {
		var r MeterReadingRow
		var readingDate, created sql.NullString
		if err := rows.Scan(
			&r.MeterReadingID, &r.MeterReadingNo, &r.Asset, &readingDate,
			&r.Total, &r.A3, &r.Black, &r.Large, &r.Colour, &r.ExtraLarge,
			&r.ForBilling, &r.IsOpeningReading, &r.IsClosingReading, &r.IsReported,
			&created,
		); err != nil {
			return nil, fmt.Errorf("failed to scan meter reading row from %s: %w", cfg.Schema, err)
		}

		date := parseDate(readingDate)
		if date == nil {
			continue
		}
		r.ReadingDate = *date
		r.CreatedTime = parseDate(created)

		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read meter reading rows from %s: %w", cfg.Schema, err)
	}

	return readings, nil
}

// FetchRates returns the full FSMA rate history of a remote
func (f *Fetcher) FetchRates(ctx context.Context, cfg Config) ([]RateRow, error) {
	query := `
	SELECT
		machineid, category, rates_from, meters,
		a4_mono, a3_mono, a4_colour, a3_colour, colour_extra_large,
		date_saved, saved_by
	FROM bms_machines_fsma_rates
	WHERE machineid IS NOT NULL
	ORDER BY machineid, rates_from`

	pool, err := f.registry.GetPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rows, err := pool.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch machine rates from %s: %w", cfg.Schema, err)
	}
	defer rows.Close()

	var rates []RateRow
	for rows.Next() {
		var r RateRow
		var ratesFrom, dateSaved sql.NullString
		if err := rows.Scan(
			&r.MachineID, &r.Category, &ratesFrom, &r.Meters,
			&r.A4Mono, &r.A3Mono, &r.A4Colour, &r.A3Colour, &r.ColourExtraLarge,
			&dateSaved, &r.SavedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rate row from %s: %w", cfg.Schema, err)
		}

		from := parseDate(ratesFrom)
		if from == nil {
			continue
		}
		r.RatesFrom = *from
		r.DateSaved = parseDate(dateSaved)

		rates = append(rates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rate rows from %s: %w", cfg.Schema, err)
	}

	return rates, nil
}

// CountMachines returns the machine count of a remote, for cheap
// reachability and reporting queries
func (f *Fetcher) CountMachines(ctx context.Context, cfg Config) (int64, error) {
	return f.count(ctx, cfg, `
		SELECT COUNT(*) FROM bms_machines
		WHERE serialnumber IS NOT NULL AND serialnumber != ''`)
}

// CountReadings returns the meter reading count of a remote
func (f *Fetcher) CountReadings(ctx context.Context, cfg Config) (int64, error) {
	return f.count(ctx, cfg, `
		SELECT COUNT(*) FROM bms_meterreading
		WHERE asset IS NOT NULL`)
}

// CountRates returns the rate history count of a remote
func (f *Fetcher) CountRates(ctx context.Context, cfg Config) (int64, error) {
	return f.count(ctx, cfg, `
		SELECT COUNT(*) FROM bms_machines_fsma_rates
		WHERE machineid IS NOT NULL`)
}

func (f *Fetcher) count(ctx context.Context, cfg Config, query string) (int64, error) {
	pool, err := f.registry.GetPool(ctx, cfg)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := pool.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", cfg.Schema, err)
	}
	return count, nil
}

// parseDate turns a raw BMS date column into a timestamp. Unparseable
// and zero dates both come back nil; the calling query decides whether
// that drops the row.
func parseDate(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := bmsdate.Parse(ns.String)
	if err != nil {
		return nil
	}
	return t
}
