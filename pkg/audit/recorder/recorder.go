package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"meridian-hq/vega/pkg/audit"
)

// Config contains configuration for the decision recorder.
type Config struct {
	// Enabled enables decision log recording.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder persists decision logs and outcomes. Decision logs are
// written asynchronously so the decision path never blocks on storage;
// outcomes are written inline because their callers are already
// off the hot path.
type Recorder struct {
	storage    audit.Storage
	config     *Config
	recordChan chan *audit.DecisionLog
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
}

// NewRecorder creates a recorder and starts its background writer.
func NewRecorder(storage audit.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *audit.DecisionLog, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("decision recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// RecordDecision enqueues a decision log for async writing. It returns
// immediately; a full channel drops the record with an error log rather
// than blocking the decision path.
func (r *Recorder) RecordDecision(log *audit.DecisionLog) {
	if !r.config.Enabled {
		return
	}
	if log.AuditID == "" {
		log.AuditID = audit.NewAuditID()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	select {
	case r.recordChan <- log:
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping decision log",
			"audit_id", log.AuditID,
		)
	default:
		r.logger.Error("decision log channel full, dropping record",
			"audit_id", log.AuditID,
			"channel_capacity", r.config.AsyncBuffer,
		)
	}
}

// RecordOutcome appends an outcome row. It reports success; storage
// failures are logged and swallowed so callers can treat outcome
// recording as best-effort telemetry.
func (r *Recorder) RecordOutcome(auditID, decisionType, outcome, code, reason string, latencyMS *float64, extra map[string]any) bool {
	if !r.config.Enabled {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	err := r.storage.StoreOutcome(ctx, &audit.Outcome{
		ID:           uuid.New().String(),
		AuditID:      auditID,
		DecisionType: decisionType,
		Outcome:      outcome,
		Code:         code,
		Reason:       reason,
		LatencyMS:    latencyMS,
		Extra:        extra,
	})
	if err != nil {
		r.logger.Error("failed to record outcome",
			"audit_id", auditID,
			"outcome", outcome,
			"error", err,
		)
		return false
	}

	r.logger.Debug("outcome recorded",
		"audit_id", auditID,
		"outcome", outcome,
	)
	return true
}

// Close shuts down the recorder, draining queued decision logs.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
	return nil
}

// worker drains the decision log channel and writes records to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case log := <-r.recordChan:
			r.writeRecord(log)

		case <-r.done:
			// Drain any queued records before exiting.
			for {
				select {
				case log := <-r.recordChan:
					r.writeRecord(log)
				default:
					r.logger.Debug("recorder worker stopped")
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(log *audit.DecisionLog) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.StoreDecision(ctx, log); err != nil {
		r.logger.Error("failed to write decision log",
			"audit_id", log.AuditID,
			"decision_type", log.DecisionType,
			"error", err,
		)
		return
	}

	r.logger.Debug("decision log written",
		"audit_id", log.AuditID,
		"decision_type", log.DecisionType,
	)
}
