package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/db"
)

// ErrTenantNotFound is returned when a tenant id does not resolve to a
// known tenant. Callers treat this as a precondition violation, not a
// sync failure.
var ErrTenantNotFound = errors.New("tenant not found")

// Repository handles central store operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListActiveTenants returns the tenants participating in full syncs
func (r *Repository) ListActiveTenants(ctx context.Context) ([]db.Tenant, error) {
	query := `
		SELECT id, name, schema_name, explicit_host, is_active
		FROM tenants
		WHERE is_active = true
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tenants: %w", err)
	}
	defer rows.Close()

	var tenants []db.Tenant
	for rows.Next() {
		var t db.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.SchemaName, &t.ExplicitHost, &t.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tenants, nil
}

// GetTenant looks a tenant up by id
func (r *Repository) GetTenant(ctx context.Context, id uuid.UUID) (*db.Tenant, error) {
	query := `
		SELECT id, name, schema_name, explicit_host, is_active
		FROM tenants
		WHERE id = $1
	`

	var t db.Tenant
	err := r.pool.QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.SchemaName, &t.ExplicitHost, &t.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tenant: %w", err)
	}

	return &t, nil
}

// ListCategories returns all category lookup records
func (r *Repository) ListCategories(ctx context.Context) ([]db.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM categories`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []db.Category
	for rows.Next() {
		var c db.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return categories, nil
}

// CreateCategory creates a category lookup record by name
func (r *Repository) CreateCategory(ctx context.Context, name string) (uuid.UUID, error) {
	query := `
		INSERT INTO categories (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`

	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, query, uuid.New(), name).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return id, nil
}

// UpsertMachine writes a machine by its global serial number: looked up
// by serial first, then updated in place or inserted. A machine that
// moved between tenants keeps its row and is reassigned to the syncing
// tenant. Returns the central store machine id.
func (r *Repository) UpsertMachine(ctx context.Context, m *db.Machine) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM machines WHERE serial_number = $1`, m.SerialNumber,
	).Scan(&id)

	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("failed to query machine by serial: %w", err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		id = uuid.New()
		insertQuery := `
			INSERT INTO machines (
				id, serial_number, tenant_id, category_id,
				bms_machines_id, bms_machine_no, machine_name, make_name, model_name,
				status, bms_status, install_date, start_date,
				contract_number, contract_type,
				rental_start_date, rental_end_date, rental_months_remaining,
				rental_amount_ex_vat, other_fixed_amount_ex_vat,
				is_lifted, last_synced_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		`
		_, err = r.pool.Exec(ctx, insertQuery,
			id, m.SerialNumber, m.TenantID, m.CategoryID,
			m.BMSMachinesID, m.BMSMachineNo, m.MachineName, m.MakeName, m.ModelName,
			m.Status, m.BMSStatus, m.InstallDate, m.StartDate,
			m.ContractNumber, m.ContractType,
			m.RentalStartDate, m.RentalEndDate, m.RentalMonthsRemaining,
			m.RentalAmountExVat, m.OtherFixedAmountExVat,
			m.IsLifted, m.LastSyncedAt,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert machine %s: %w", m.SerialNumber, err)
		}
		return id, nil
	}

	updateQuery := `
		UPDATE machines SET
			tenant_id = $2, category_id = $3,
			bms_machines_id = $4, bms_machine_no = $5, machine_name = $6,
			make_name = $7, model_name = $8,
			status = $9, bms_status = $10, install_date = $11, start_date = $12,
			contract_number = $13, contract_type = $14,
			rental_start_date = $15, rental_end_date = $16, rental_months_remaining = $17,
			rental_amount_ex_vat = $18, other_fixed_amount_ex_vat = $19,
			is_lifted = $20, last_synced_at = $21
		WHERE id = $1
	`
	_, err = r.pool.Exec(ctx, updateQuery,
		id, m.TenantID, m.CategoryID,
		m.BMSMachinesID, m.BMSMachineNo, m.MachineName,
		m.MakeName, m.ModelName,
		m.Status, m.BMSStatus, m.InstallDate, m.StartDate,
		m.ContractNumber, m.ContractType,
		m.RentalStartDate, m.RentalEndDate, m.RentalMonthsRemaining,
		m.RentalAmountExVat, m.OtherFixedAmountExVat,
		m.IsLifted, m.LastSyncedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to update machine %s: %w", m.SerialNumber, err)
	}

	return id, nil
}

// MachineIDsByBMSID maps a tenant's BMS machine ids to central store
// ids, for resolving the owners of incoming readings and rates
func (r *Repository) MachineIDsByBMSID(ctx context.Context, tenantID uuid.UUID) (map[int64]uuid.UUID, error) {
	query := `
		SELECT bms_machines_id, id
		FROM machines
		WHERE tenant_id = $1
	`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query machine id map: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]uuid.UUID)
	for rows.Next() {
		var bmsID int64
		var id uuid.UUID
		if err := rows.Scan(&bmsID, &id); err != nil {
			return nil, fmt.Errorf("failed to scan machine id: %w", err)
		}
		ids[bmsID] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return ids, nil
}

// UpsertReading writes a meter reading keyed by
// (machine_id, reading_date, bms_meterreading_id), so re-running a sync
// over the same source rows updates in place instead of duplicating.
func (r *Repository) UpsertReading(ctx context.Context, rd *db.MeterReading) error {
	query := `
		INSERT INTO meter_readings (
			id, machine_id, bms_meterreading_id, bms_meterreading_no,
			reading_date, reading_datetime,
			total, a3, black, large, colour, extra_large,
			incremental_total, incremental_a3, incremental_black,
			incremental_large, incremental_colour, incremental_xl,
			is_reported, for_billing, is_opening_reading, is_closing_reading, source
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (machine_id, reading_date, bms_meterreading_id) DO UPDATE SET
			bms_meterreading_no = EXCLUDED.bms_meterreading_no,
			reading_datetime = EXCLUDED.reading_datetime,
			total = EXCLUDED.total,
			a3 = EXCLUDED.a3,
			black = EXCLUDED.black,
			large = EXCLUDED.large,
			colour = EXCLUDED.colour,
			extra_large = EXCLUDED.extra_large,
			incremental_total = EXCLUDED.incremental_total,
			incremental_a3 = EXCLUDED.incremental_a3,
			incremental_black = EXCLUDED.incremental_black,
			incremental_large = EXCLUDED.incremental_large,
			incremental_colour = EXCLUDED.incremental_colour,
			incremental_xl = EXCLUDED.incremental_xl,
			is_reported = EXCLUDED.is_reported,
			for_billing = EXCLUDED.for_billing,
			is_opening_reading = EXCLUDED.is_opening_reading,
			is_closing_reading = EXCLUDED.is_closing_reading
	`

	_, err := r.pool.Exec(ctx, query,
		uuid.New(), rd.MachineID, rd.BMSMeterReadingID, rd.BMSMeterReadingNo,
		rd.ReadingDate, rd.ReadingDateTime,
		rd.Total, rd.A3, rd.Black, rd.Large, rd.Colour, rd.ExtraLarge,
		rd.IncrementalTotal, rd.IncrementalA3, rd.IncrementalBlack,
		rd.IncrementalLarge, rd.IncrementalColour, rd.IncrementalXl,
		rd.IsReported, rd.ForBilling, rd.IsOpeningReading, rd.IsClosingReading, rd.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert meter reading %d: %w", rd.BMSMeterReadingID, err)
	}

	return nil
}

// UpsertRate writes one FSMA rate history row keyed by
// (machine_id, category, rates_from)
func (r *Repository) UpsertRate(ctx context.Context, rate *db.MachineRate) error {
	query := `
		INSERT INTO machine_rates (
			id, machine_id, category, rates_from, meters,
			a4_mono, a3_mono, a4_colour, a3_colour, colour_extra_large,
			date_saved, saved_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (machine_id, category, rates_from) DO UPDATE SET
			meters = EXCLUDED.meters,
			a4_mono = EXCLUDED.a4_mono,
			a3_mono = EXCLUDED.a3_mono,
			a4_colour = EXCLUDED.a4_colour,
			a3_colour = EXCLUDED.a3_colour,
			colour_extra_large = EXCLUDED.colour_extra_large,
			date_saved = EXCLUDED.date_saved,
			saved_by = EXCLUDED.saved_by
	`

	_, err := r.pool.Exec(ctx, query,
		uuid.New(), rate.MachineID, rate.Category, rate.RatesFrom, rate.Meters,
		rate.A4Mono, rate.A3Mono, rate.A4Colour, rate.A3Colour, rate.ColourExtraLarge,
		rate.DateSaved, rate.SavedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert machine rate: %w", err)
	}

	return nil
}

// UpdateMachineUsage stamps a machine's derived state from its latest
// reading. Only the persistence step ever writes these columns.
func (r *Repository) UpdateMachineUsage(ctx context.Context, machineID uuid.UUID, currentBalance int64, lastReadingDate time.Time) error {
	query := `
		UPDATE machines
		SET current_balance = $2, last_reading_date = $3
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, machineID, currentBalance, lastReadingDate)
	if err != nil {
		return fmt.Errorf("failed to update machine usage: %w", err)
	}

	return nil
}

// CreateSyncRun opens a ledger entry with status RUNNING
func (r *Repository) CreateSyncRun(ctx context.Context, kind string, targetTenant *string) (*db.SyncRun, error) {
	run := &db.SyncRun{
		ID:           uuid.New(),
		Kind:         kind,
		TargetTenant: targetTenant,
		StartedAt:    time.Now(),
		Status:       db.SyncStatusRunning,
	}

	query := `
		INSERT INTO sync_runs (id, kind, target_tenant, started_at, status)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, run.ID, run.Kind, run.TargetTenant, run.StartedAt, run.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync run: %w", err)
	}

	return run, nil
}

// CompleteSyncRun closes a ledger entry as COMPLETED with its aggregated
// totals. COMPLETED means the orchestration finished; per-tenant errors
// ride along in the errors column.
func (r *Repository) CompleteSyncRun(ctx context.Context, id uuid.UUID, tenants, machines, readings, rates int, errs []string) error {
	var joined *string
	if len(errs) > 0 {
		s := strings.Join(errs, "\n")
		joined = &s
	}

	query := `
		UPDATE sync_runs
		SET completed_at = $2, status = $3,
			tenants_processed = $4, machines_processed = $5,
			readings_processed = $6, rates_processed = $7, errors = $8
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, id, time.Now(), db.SyncStatusCompleted,
		tenants, machines, readings, rates, joined)
	if err != nil {
		return fmt.Errorf("failed to complete sync run: %w", err)
	}

	return nil
}

// FailSyncRun closes a ledger entry as FAILED with the batch-level error
func (r *Repository) FailSyncRun(ctx context.Context, id uuid.UUID, errMsg string) error {
	query := `
		UPDATE sync_runs
		SET completed_at = $2, status = $3, errors = $4
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, id, time.Now(), db.SyncStatusFailed, errMsg)
	if err != nil {
		return fmt.Errorf("failed to mark sync run failed: %w", err)
	}

	return nil
}

// ListSyncRuns returns recent ledger entries, newest first
func (r *Repository) ListSyncRuns(ctx context.Context, limit int) ([]db.SyncRun, error) {
	query := `
		SELECT id, kind, target_tenant, started_at, completed_at,
			tenants_processed, machines_processed, readings_processed, rates_processed,
			status, errors
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []db.SyncRun
	for rows.Next() {
		var run db.SyncRun
		if err := rows.Scan(
			&run.ID, &run.Kind, &run.TargetTenant, &run.StartedAt, &run.CompletedAt,
			&run.TenantsProcessed, &run.MachinesProcessed, &run.ReadingsProcessed, &run.RatesProcessed,
			&run.Status, &run.Errors,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return runs, nil
}

// LastCompletedFullSync returns the most recent COMPLETED full run, or
// nil when none exists yet
func (r *Repository) LastCompletedFullSync(ctx context.Context) (*db.SyncRun, error) {
	query := `
		SELECT id, kind, target_tenant, started_at, completed_at,
			tenants_processed, machines_processed, readings_processed, rates_processed,
			status, errors
		FROM sync_runs
		WHERE kind = $1 AND status = $2
		ORDER BY completed_at DESC
		LIMIT 1
	`

	var run db.SyncRun
	err := r.pool.QueryRow(ctx, query, db.SyncKindFull, db.SyncStatusCompleted).Scan(
		&run.ID, &run.Kind, &run.TargetTenant, &run.StartedAt, &run.CompletedAt,
		&run.TenantsProcessed, &run.MachinesProcessed, &run.ReadingsProcessed, &run.RatesProcessed,
		&run.Status, &run.Errors,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last completed full sync: %w", err)
	}

	return &run, nil
}
