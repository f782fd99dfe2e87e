package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/db"
	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/incremental"
	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/logging"
	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/remote"
)

// Store is the slice of central store persistence the orchestrator uses
type Store interface {
	ListActiveTenants(ctx context.Context) ([]db.Tenant, error)
	GetTenant(ctx context.Context, id uuid.UUID) (*db.Tenant, error)
	ListCategories(ctx context.Context) ([]db.Category, error)
	CreateCategory(ctx context.Context, name string) (uuid.UUID, error)
	UpsertMachine(ctx context.Context, m *db.Machine) (uuid.UUID, error)
	MachineIDsByBMSID(ctx context.Context, tenantID uuid.UUID) (map[int64]uuid.UUID, error)
	UpsertReading(ctx context.Context, rd *db.MeterReading) error
	UpsertRate(ctx context.Context, rate *db.MachineRate) error
	UpdateMachineUsage(ctx context.Context, machineID uuid.UUID, currentBalance int64, lastReadingDate time.Time) error
	CreateSyncRun(ctx context.Context, kind string, targetTenant *string) (*db.SyncRun, error)
	CompleteSyncRun(ctx context.Context, id uuid.UUID, tenants, machines, readings, rates int, errs []string) error
	FailSyncRun(ctx context.Context, id uuid.UUID, errMsg string) error
	ListSyncRuns(ctx context.Context, limit int) ([]db.SyncRun, error)
	LastCompletedFullSync(ctx context.Context) (*db.SyncRun, error)
}

// DataSource is the remote extraction surface
type DataSource interface {
	FetchMachines(ctx context.Context, cfg remote.Config) ([]remote.MachineRow, error)
	FetchReadings(ctx context.Context, cfg remote.Config, since *time.Time) ([]remote.MeterReadingRow, error)
	FetchRates(ctx context.Context, cfg remote.Config) ([]remote.RateRow, error)
	CountMachines(ctx context.Context, cfg remote.Config) (int64, error)
	CountReadings(ctx context.Context, cfg remote.Config) (int64, error)
	CountRates(ctx context.Context, cfg remote.Config) (int64, error)
}

// Pools is the remote pool lifecycle surface
type Pools interface {
	TestPool(ctx context.Context, cfg remote.Config) remote.TestResult
	ClosePool(cfg remote.Config)
}

// SyncResult is the outcome of one tenant's sync
type SyncResult struct {
	TenantID          string   `json:"tenant_id"`
	TenantName        string   `json:"tenant_name"`
	Schema            string   `json:"schema"`
	MachinesProcessed int      `json:"machines_processed"`
	ReadingsProcessed int      `json:"readings_processed"`
	RatesProcessed    int      `json:"rates_processed"`
	Errors            []string `json:"errors"`
	DurationMs        int64    `json:"duration_ms"`
}

// FullSyncSummary is the outcome of a full-batch sync
type FullSyncSummary struct {
	SyncID            string       `json:"sync_id"`
	StartedAt         time.Time    `json:"started_at"`
	CompletedAt       time.Time    `json:"completed_at"`
	TenantsProcessed  int          `json:"tenants_processed"`
	TotalMachines     int          `json:"total_machines"`
	TotalReadings     int          `json:"total_readings"`
	TotalRates        int          `json:"total_rates"`
	Errors            []string     `json:"errors"`
	TenantResults     []SyncResult `json:"tenant_results"`
}

// ConnectionTestReport is the outcome of a connection test, with row
// counts as a schema-level sanity check when the ping succeeds
type ConnectionTestReport struct {
	Success      bool   `json:"success"`
	LatencyMs    int64  `json:"latency_ms"`
	Error        string `json:"error,omitempty"`
	Host         string `json:"host"`
	Schema       string `json:"schema"`
	MachineCount *int64 `json:"machine_count,omitempty"`
	ReadingCount *int64 `json:"reading_count,omitempty"`
	RateCount    *int64 `json:"rate_count,omitempty"`
}

// StatusReport is the recent sync history plus the last completed full
// run
type StatusReport struct {
	History               []db.SyncRun `json:"history"`
	LastCompletedFullSync *db.SyncRun  `json:"last_completed_full_sync"`
}

// outcome accumulates row-level persistence results
type outcome struct {
	processed int
	errors    []string
}

// SyncService orchestrates tenant syncs: fetch, compute, persist, and
// the SyncRun ledger around them
type SyncService struct {
	store    Store
	source   DataSource
	pools    Pools
	resolver *remote.Resolver
	logger   *zap.Logger
}

// NewSyncService creates a new sync orchestrator
func NewSyncService(store Store, source DataSource, pools Pools, resolver *remote.Resolver, logger *zap.Logger) *SyncService {
	return &SyncService{
		store:    store,
		source:   source,
		pools:    pools,
		resolver: resolver,
		logger:   logger,
	}
}

// SyncTenant syncs one tenant by id and records the run in the ledger.
// An unknown tenant id is the only hard error; every other failure is
// reported inside the returned SyncResult.
func (s *SyncService) SyncTenant(ctx context.Context, tenantID uuid.UUID, since *time.Time) (*SyncResult, error) {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	run, err := s.store.CreateSyncRun(ctx, db.SyncKindTenant, &tenant.SchemaName)
	if err != nil {
		return nil, err
	}

	result := s.syncTenant(ctx, *tenant, since)

	if err := s.store.CompleteSyncRun(ctx, run.ID, 1,
		result.MachinesProcessed, result.ReadingsProcessed, result.RatesProcessed,
		result.Errors,
	); err != nil {
		s.logger.Error("failed to record tenant sync run", zap.Error(err))
	}

	return &result, nil
}

// RunFullSync syncs every active tenant sequentially. One tenant's
// failure never stops the batch; only batch-level failures (the tenant
// listing itself) mark the run FAILED and propagate.
func (s *SyncService) RunFullSync(ctx context.Context) (*FullSyncSummary, error) {
	run, err := s.store.CreateSyncRun(ctx, db.SyncKindFull, nil)
	if err != nil {
		return nil, err
	}

	runLogger := logging.WithRunID(s.logger, run.ID.String())

	tenants, err := s.store.ListActiveTenants(ctx)
	if err != nil {
		if failErr := s.store.FailSyncRun(ctx, run.ID, err.Error()); failErr != nil {
			runLogger.Error("failed to mark sync run failed", zap.Error(failErr))
		}
		return nil, fmt.Errorf("failed to list tenants for full sync: %w", err)
	}

	runLogger.Info("starting full sync", zap.Int("tenants", len(tenants)))

	summary := &FullSyncSummary{
		SyncID:    run.ID.String(),
		StartedAt: run.StartedAt,
		Errors:    []string{},
	}

	// Strictly sequential: the BMS hosts are shared third-party
	// infrastructure and full-table extractions must not pile up.
	for _, tenant := range tenants {
		result := s.syncTenant(ctx, tenant, nil)
		summary.TenantResults = append(summary.TenantResults, result)
		summary.TotalMachines += result.MachinesProcessed
		summary.TotalReadings += result.ReadingsProcessed
		summary.TotalRates += result.RatesProcessed

		if len(result.Errors) > 0 {
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("%s: %s", tenant.Name, strings.Join(result.Errors, "; ")))
		}
	}
	summary.TenantsProcessed = len(tenants)
	summary.CompletedAt = time.Now()

	if err := s.store.CompleteSyncRun(ctx, run.ID, summary.TenantsProcessed,
		summary.TotalMachines, summary.TotalReadings, summary.TotalRates,
		summary.Errors,
	); err != nil {
		runLogger.Error("failed to record full sync run", zap.Error(err))
	}

	runLogger.Info("full sync completed",
		zap.Int("machines", summary.TotalMachines),
		zap.Int("readings", summary.TotalReadings),
		zap.Int("rates", summary.TotalRates),
		zap.Int("tenant_errors", len(summary.Errors)),
	)

	return summary, nil
}

// TestConnection resolves a schema to a remote config, verifies the
// connection, and on success reports the remote's row counts so a
// reachable host with a wrong or empty schema still stands out
func (s *SyncService) TestConnection(ctx context.Context, schema string, explicitHost *string) ConnectionTestReport {
	cfg := s.resolver.Resolve(schema, explicitHost)

	result := s.pools.TestPool(ctx, cfg)
	report := ConnectionTestReport{
		Success:   result.Success,
		LatencyMs: result.LatencyMs,
		Error:     result.Error,
		Host:      cfg.Host,
		Schema:    cfg.Schema,
	}
	if !result.Success {
		return report
	}
	defer s.pools.ClosePool(cfg)

	if n, err := s.source.CountMachines(ctx, cfg); err == nil {
		report.MachineCount = &n
	}
	if n, err := s.source.CountReadings(ctx, cfg); err == nil {
		report.ReadingCount = &n
	}
	if n, err := s.source.CountRates(ctx, cfg); err == nil {
		report.RateCount = &n
	}
	return report
}

// SyncStatus reports the most recent sync runs and the last completed
// full run
func (s *SyncService) SyncStatus(ctx context.Context, limit int) (*StatusReport, error) {
	if limit <= 0 {
		limit = 10
	}

	history, err := s.store.ListSyncRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}

	last, err := s.store.LastCompletedFullSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load last completed full sync: %w", err)
	}

	return &StatusReport{History: history, LastCompletedFullSync: last}, nil
}

// syncTenant runs one tenant's fetch/compute/persist pass. It never
// fails: every error ends up in the result's error list, and the
// tenant's remote pool is closed on the way out regardless of outcome.
func (s *SyncService) syncTenant(ctx context.Context, tenant db.Tenant, since *time.Time) (result SyncResult) {
	start := time.Now()
	tenantLogger := logging.WithTenant(s.logger, tenant.Name, tenant.SchemaName)

	result = SyncResult{
		TenantID:   tenant.ID.String(),
		TenantName: tenant.Name,
		Schema:     tenant.SchemaName,
		Errors:     []string{},
	}
	defer func() {
		result.DurationMs = time.Since(start).Milliseconds()
	}()

	cfg := s.resolver.Resolve(tenant.SchemaName, tenant.ExplicitHost)
	defer s.pools.ClosePool(cfg)

	tenantLogger.Info("starting tenant sync", zap.String("host", cfg.Host))

	machines, err := s.source.FetchMachines(ctx, cfg)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("tenant sync failed: %v", err))
		tenantLogger.Error("tenant sync aborted", zap.Error(err))
		return result
	}
	tenantLogger.Info("fetched machines", zap.Int("count", len(machines)))

	machineOutcome := s.persistMachines(ctx, tenant.ID, machines)
	result.MachinesProcessed = machineOutcome.processed
	result.Errors = append(result.Errors, machineOutcome.errors...)

	// Machines must be persisted first so readings and rates can
	// resolve their owning machine's central id.
	idMap, err := s.store.MachineIDsByBMSID(ctx, tenant.ID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("tenant sync failed: %v", err))
		tenantLogger.Error("tenant sync aborted", zap.Error(err))
		return result
	}

	readings, err := s.source.FetchReadings(ctx, cfg, since)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("tenant sync failed: %v", err))
		tenantLogger.Error("tenant sync aborted", zap.Error(err))
		return result
	}
	tenantLogger.Info("fetched meter readings", zap.Int("count", len(readings)))

	readingOutcome := s.persistReadings(ctx, idMap, readings)
	result.ReadingsProcessed = readingOutcome.processed
	result.Errors = append(result.Errors, readingOutcome.errors...)

	rates, err := s.source.FetchRates(ctx, cfg)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("tenant sync failed: %v", err))
		tenantLogger.Error("tenant sync aborted", zap.Error(err))
		return result
	}

	rateOutcome := s.persistRates(ctx, idMap, rates)
	result.RatesProcessed = rateOutcome.processed
	result.Errors = append(result.Errors, rateOutcome.errors...)

	tenantLogger.Info("tenant sync completed",
		zap.Int("machines", result.MachinesProcessed),
		zap.Int("readings", result.ReadingsProcessed),
		zap.Int("rates", result.RatesProcessed),
		zap.Int("errors", len(result.Errors)),
	)

	return result
}

// persistMachines upserts extracted machine rows by serial number.
// A row failure is recorded and its siblings still processed.
func (s *SyncService) persistMachines(ctx context.Context, tenantID uuid.UUID, rows []remote.MachineRow) outcome {
	var out outcome

	categoryIDs := make(map[string]uuid.UUID)
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		out.errors = append(out.errors, fmt.Sprintf("list categories: %v", err))
		return out
	}
	for _, c := range categories {
		categoryIDs[c.Name] = c.ID
	}

	now := time.Now()
	for _, row := range rows {
		if row.SerialNumber == "" {
			continue
		}

		var categoryID *uuid.UUID
		if row.Category != nil && *row.Category != "" {
			id, ok := categoryIDs[*row.Category]
			if !ok {
				created, err := s.store.CreateCategory(ctx, *row.Category)
				if err != nil {
					out.errors = append(out.errors, fmt.Sprintf("machine %s: %v", row.SerialNumber, err))
					continue
				}
				categoryIDs[*row.Category] = created
				id = created
			}
			categoryID = &id
		}

		status := db.MachineStatusActive
		if row.MachineStatus != nil && *row.MachineStatus == 0 {
			status = db.MachineStatusInactive
		}

		machine := &db.Machine{
			SerialNumber:          row.SerialNumber,
			TenantID:              tenantID,
			CategoryID:            categoryID,
			BMSMachinesID:         row.MachinesID,
			BMSMachineNo:          row.MachineNo,
			MachineName:           row.MachineName,
			MakeName:              extractMakeName(row.ModelName),
			ModelName:             row.ModelName,
			Status:                status,
			BMSStatus:             row.MachineStatus,
			InstallDate:           row.InstallDate,
			StartDate:             row.StartDate,
			ContractNumber:        row.ContractNo,
			ContractType:          row.ContractType,
			RentalStartDate:       row.RentalStartDate,
			RentalEndDate:         row.RentalEndDate,
			RentalMonthsRemaining: row.RentalMonthsRemaining,
			RentalAmountExVat:     row.RentalAmountExVat,
			OtherFixedAmountExVat: row.OtherFixedAmountExVat,
			IsLifted:              row.Lift != nil && *row.Lift == 1,
			LastSyncedAt:          &now,
		}

		if _, err := s.store.UpsertMachine(ctx, machine); err != nil {
			out.errors = append(out.errors, fmt.Sprintf("machine %s: %v", row.SerialNumber, err))
			continue
		}
		out.processed++
	}

	return out
}

// persistReadings groups extracted readings per machine, computes
// incrementals over the timestamp-sorted sequence, upserts each reading
// by its composite key, and finally stamps the machine's derived state
// from the latest reading.
func (s *SyncService) persistReadings(ctx context.Context, idMap map[int64]uuid.UUID, rows []remote.MeterReadingRow) outcome {
	var out outcome

	byMachine := make(map[int64][]remote.MeterReadingRow)
	var order []int64
	for _, row := range rows {
		if _, seen := byMachine[row.Asset]; !seen {
			order = append(order, row.Asset)
		}
		byMachine[row.Asset] = append(byMachine[row.Asset], row)
	}

	for _, asset := range order {
		machineID, ok := idMap[asset]
		if !ok {
			continue
		}

		sequence := byMachine[asset]
		sort.Slice(sequence, func(i, j int) bool {
			return sequence[i].ReadingDate.Before(sequence[j].ReadingDate)
		})

		counters := make([]incremental.Counters, len(sequence))
		for i, row := range sequence {
			counters[i] = incremental.Counters{
				Total:      row.Total,
				A3:         row.A3,
				Black:      row.Black,
				Large:      row.Large,
				Colour:     row.Colour,
				ExtraLarge: row.ExtraLarge,
			}
		}
		deltas := incremental.Compute(counters)

		var latest *remote.MeterReadingRow
		for i := range sequence {
			row := sequence[i]

			total := int64(0)
			if row.Total != nil {
				total = *row.Total
			}

			reading := &db.MeterReading{
				MachineID:         machineID,
				BMSMeterReadingID: row.MeterReadingID,
				BMSMeterReadingNo: row.MeterReadingNo,
				ReadingDate:       row.ReadingDate,
				ReadingDateTime:   row.CreatedTime,
				Total:             total,
				A3:                row.A3,
				Black:             row.Black,
				Large:             row.Large,
				Colour:            row.Colour,
				ExtraLarge:        row.ExtraLarge,
				IncrementalTotal:  deltas[i].Total,
				IncrementalA3:     deltas[i].A3,
				IncrementalBlack:  deltas[i].Black,
				IncrementalLarge:  deltas[i].Large,
				IncrementalColour: deltas[i].Colour,
				IncrementalXl:     deltas[i].ExtraLarge,
				IsReported:        flagSet(row.IsReported),
				ForBilling:        flagSet(row.ForBilling),
				IsOpeningReading:  flagSet(row.IsOpeningReading),
				IsClosingReading:  flagSet(row.IsClosingReading),
				Source:            "BMS",
			}

			if err := s.store.UpsertReading(ctx, reading); err != nil {
				out.errors = append(out.errors, fmt.Sprintf("reading %d: %v", row.MeterReadingID, err))
				continue
			}
			out.processed++

			// Latest by timestamp, not by position: a row that failed
			// to upsert still never outranks a later successful one.
			if latest == nil || row.ReadingDate.After(latest.ReadingDate) {
				latest = &sequence[i]
			}
		}

		if latest != nil {
			balance := int64(0)
			if latest.Total != nil {
				balance = *latest.Total
			}
			if err := s.store.UpdateMachineUsage(ctx, machineID, balance, latest.ReadingDate); err != nil {
				out.errors = append(out.errors, fmt.Sprintf("update machine balance: %v", err))
			}
		}
	}

	return out
}

// persistRates upserts extracted rate history rows for known machines
func (s *SyncService) persistRates(ctx context.Context, idMap map[int64]uuid.UUID, rows []remote.RateRow) outcome {
	var out outcome

	for _, row := range rows {
		machineID, ok := idMap[row.MachineID]
		if !ok {
			continue
		}

		rate := &db.MachineRate{
			MachineID:        machineID,
			Category:         row.Category,
			RatesFrom:        row.RatesFrom,
			Meters:           row.Meters,
			A4Mono:           row.A4Mono,
			A3Mono:           row.A3Mono,
			A4Colour:         row.A4Colour,
			A3Colour:         row.A3Colour,
			ColourExtraLarge: row.ColourExtraLarge,
			DateSaved:        row.DateSaved,
			SavedBy:          row.SavedBy,
		}

		if err := s.store.UpsertRate(ctx, rate); err != nil {
			out.errors = append(out.errors, fmt.Sprintf("rate for machine %d: %v", row.MachineID, err))
			continue
		}
		out.processed++
	}

	return out
}

// extractMakeName takes the make as the first token of the model
// string, e.g. "Xerox VersaLink C7025" -> "Xerox"
func extractMakeName(modelName *string) *string {
	if modelName == nil {
		return nil
	}
	parts := strings.Fields(*modelName)
	if len(parts) == 0 {
		return nil
	}
	return &parts[0]
}

func flagSet(v *int64) bool {
	return v != nil && *v == 1
}
