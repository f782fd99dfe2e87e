package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/config"
	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/logging"
	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/mq"
	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/validator"
)

// TriggerMessage is the wire shape of a sync trigger
type TriggerMessage struct {
	RequestID string `json:"request_id"`
	Kind      string `json:"kind"`
	TenantID  string `json:"tenant_id,omitempty"`
	Schema    string `json:"schema,omitempty"`
	Host      string `json:"host,omitempty"`
	Since     string `json:"since,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// ProcessorService turns trigger messages into sync runs and publishes
// their outcome events
type ProcessorService struct {
	syncService *SyncService
	publisher   *mq.Publisher
	validator   *validator.Validator
	cfg         *config.Config
	logger      *zap.Logger
}

// NewProcessorService creates a new processor service
func NewProcessorService(
	syncService *SyncService,
	publisher *mq.Publisher,
	v *validator.Validator,
	cfg *config.Config,
	logger *zap.Logger,
) *ProcessorService {
	return &ProcessorService{
		syncService: syncService,
		publisher:   publisher,
		validator:   v,
		cfg:         cfg,
		logger:      logger,
	}
}

// ProcessMessage processes one trigger message. A returned error routes
// the message to the DLQ; recoverable per-tenant sync failures are part
// of the published result, not an error here.
func (s *ProcessorService) ProcessMessage(ctx context.Context, body []byte) error {
	var msg TriggerMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal trigger: %w", err)
	}

	reqLogger := s.logger.With(zap.String("request_id", msg.RequestID), zap.String("kind", msg.Kind))
	reqLogger.Info("processing sync trigger")

	trigger, validation := s.validator.ValidateTrigger(msg.Kind, msg.TenantID, msg.Schema, msg.Host, msg.Since)
	if !validation.IsValid {
		reqLogger.Error("invalid trigger", zap.String("reason", validation.Reason))
		return fmt.Errorf("invalid trigger: %s", validation.Reason)
	}

	switch trigger.Kind {
	case validator.KindFullSync:
		return s.processFullSync(ctx, msg, reqLogger)
	case validator.KindTenantSync:
		return s.processTenantSync(ctx, msg, trigger, reqLogger)
	case validator.KindConnectionTest:
		return s.processConnectionTest(ctx, msg, trigger, reqLogger)
	case validator.KindSyncStatus:
		return s.processSyncStatus(ctx, msg, reqLogger)
	}
	return nil
}

func (s *ProcessorService) processFullSync(ctx context.Context, msg TriggerMessage, logger *zap.Logger) error {
	summary, err := s.syncService.RunFullSync(ctx)
	if err != nil {
		s.publishEvent(ctx, failedEvent(msg, err), logger)
		return fmt.Errorf("full sync failed: %w", err)
	}

	runLogger := logging.WithRunID(logger, summary.SyncID)
	s.publishEvent(ctx, completedEvent(msg, summary), runLogger)
	return nil
}

func (s *ProcessorService) processTenantSync(ctx context.Context, msg TriggerMessage, trigger validator.Trigger, logger *zap.Logger) error {
	result, err := s.syncService.SyncTenant(ctx, trigger.TenantID, trigger.Since)
	if err != nil {
		s.publishEvent(ctx, failedEvent(msg, err), logger)
		return fmt.Errorf("tenant sync failed: %w", err)
	}

	s.publishEvent(ctx, completedEvent(msg, result), logger)
	return nil
}

func (s *ProcessorService) processConnectionTest(ctx context.Context, msg TriggerMessage, trigger validator.Trigger, logger *zap.Logger) error {
	var host *string
	if trigger.Host != "" {
		host = &trigger.Host
	}

	result := s.syncService.TestConnection(ctx, trigger.Schema, host)
	s.publishEvent(ctx, completedEvent(msg, result), logger)
	return nil
}

func (s *ProcessorService) processSyncStatus(ctx context.Context, msg TriggerMessage, logger *zap.Logger) error {
	report, err := s.syncService.SyncStatus(ctx, msg.Limit)
	if err != nil {
		s.publishEvent(ctx, failedEvent(msg, err), logger)
		return fmt.Errorf("sync status failed: %w", err)
	}

	s.publishEvent(ctx, completedEvent(msg, report), logger)
	return nil
}

func (s *ProcessorService) publishEvent(ctx context.Context, event mq.SyncEvent, logger *zap.Logger) {
	if err := s.publisher.PublishSyncEvent(ctx, event, s.cfg.RabbitMQ.EventsRoutingKey); err != nil {
		// The run itself already happened; losing the event is logged,
		// not fatal to the trigger.
		logger.Error("failed to publish sync event", zap.Error(err))
		return
	}
	logger.Info("sync trigger processed", zap.String("status", event.Status))
}

func completedEvent(msg TriggerMessage, result interface{}) mq.SyncEvent {
	payload, err := json.Marshal(result)
	if err != nil {
		return failedEvent(msg, fmt.Errorf("failed to marshal result: %w", err))
	}
	return mq.SyncEvent{
		RequestID: msg.RequestID,
		Kind:      msg.Kind,
		Status:    mq.EventStatusCompleted,
		Result:    payload,
	}
}

func failedEvent(msg TriggerMessage, err error) mq.SyncEvent {
	return mq.SyncEvent{
		RequestID: msg.RequestID,
		Kind:      msg.Kind,
		Status:    mq.EventStatusFailed,
		Error:     err.Error(),
	}
}
