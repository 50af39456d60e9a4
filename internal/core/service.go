package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/sheetflow/internal/logging"
)

// DefaultEmailTables are the labels attached to outgoing email.
var DefaultEmailTables = []string{"Table 1", "Table 4", "Table 5", "Table 6", "Table 8"}

// ServiceConfig holds the tunables the service needs from configuration.
type ServiceConfig struct {
	TempDir          string
	UploadTimeout    time.Duration
	WarehouseTimeout time.Duration
	MailTimeout      time.Duration
	SessionTTL       time.Duration
	MaxConcurrent    int
	MaxWait          time.Duration
	EmailTables      []string
}

// ServiceDeps are the pluggable stages and sinks. Warehouse may be nil when
// no backend is configured.
type ServiceDeps struct {
	Extractor   Extractor
	Validator   Validator
	Transformer Transformer
	Warehouse   WarehouseLoader
	Mailer      EmailSender
	Charts      ChartRenderer
}

// Service is the entry point for web handlers and the CLI.
type Service struct {
	cfg      ServiceConfig
	pipeline *Pipeline
	sessions *SessionStore
	limiter  *UploadLimiter

	warehouse WarehouseLoader
	mailer    EmailSender
	charts    ChartRenderer
}

// NewService wires the pipeline, session store and limiter.
func NewService(cfg ServiceConfig, deps ServiceDeps) (*Service, error) {
	if deps.Extractor == nil || deps.Validator == nil || deps.Transformer == nil {
		return nil, errors.New("extractor, validator and transformer are required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if len(cfg.EmailTables) == 0 {
		cfg.EmailTables = DefaultEmailTables
	}

	return &Service{
		cfg:       cfg,
		pipeline:  NewPipeline(deps.Extractor, deps.Validator, deps.Transformer, cfg.TempDir),
		sessions:  NewSessionStore(cfg.SessionTTL),
		limiter:   NewUploadLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		warehouse: deps.Warehouse,
		mailer:    deps.Mailer,
		charts:    deps.Charts,
	}, nil
}

// Sessions exposes the session store.
func (s *Service) Sessions() *SessionStore {
	return s.sessions
}

// Session returns the current state for sessionID, creating an idle session
// on first sight.
func (s *Service) Session(sessionID string) UploadSession {
	return s.sessions.Ensure(sessionID)
}

// Upload runs the pipeline for one file and publishes the result into the
// session. A blank credential falls back to the one remembered for the
// session. Any prior TableSet is dropped before the run starts.
func (s *Service) Upload(ctx context.Context, sessionID, fileName string, data []byte, credential string) (*RunResult, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		if prev, ok := s.sessions.Get(sessionID); ok {
			credential = prev.Credential
		}
	}
	if credential == "" {
		// Nothing runs and the session keeps whatever it had.
		return nil, ErrMissingCredential
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.cfg.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.UploadTimeout)
		defer cancel()
	}

	log := logging.WithFields(ctx,
		"session_id", sessionID,
		"file", fileName,
		"size", len(data),
		"ip", IPAddressFromContext(ctx),
	)
	log.Info("upload started")

	run := s.sessions.Begin(sessionID, fileName, credential)

	result, err := s.pipeline.Run(ctx, fileName, data, credential, func(ph Phase) {
		s.sessions.SetPhase(sessionID, run, ph)
	})
	if err != nil {
		s.sessions.Fail(sessionID, run, err)
		log.Warn("upload failed", "error", err)
		return nil, err
	}

	if !s.sessions.Publish(sessionID, run, result) {
		log.Info("upload superseded, result discarded")
		return nil, ErrSuperseded
	}
	log.Info("upload completed",
		"tables", result.Tables.Len(),
		"issues", len(result.Report.Issues),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// ReadyTables returns the published TableSet, or ErrNotReady.
func (s *Service) ReadyTables(sessionID string) (*TableSet, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !sess.Ready() {
		return nil, ErrNotReady
	}
	s.sessions.Touch(sessionID)
	return sess.Tables, nil
}

// Preview returns one published table without re-running any stage.
// An empty label selects the first table.
func (s *Service) Preview(sessionID, label string) (string, *Table, error) {
	tables, err := s.ReadyTables(sessionID)
	if err != nil {
		return "", nil, err
	}
	if label == "" {
		labels := tables.Labels()
		if len(labels) == 0 {
			return "", nil, ErrNoTables
		}
		label = labels[0]
	}
	t, ok := tables.Get(label)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownTable, label)
	}
	return label, t, nil
}

// WarehouseEnabled reports whether a warehouse backend is configured.
func (s *Service) WarehouseEnabled() bool {
	return s.warehouse != nil
}

// LoadWarehouse sends the full published TableSet to the warehouse loader.
// The session is never modified.
func (s *Service) LoadWarehouse(ctx context.Context, sessionID string) DeliveryResult {
	tables, err := s.ReadyTables(sessionID)
	if err != nil {
		return DeliveryResult{Warning: true, Message: FormatUserError(err)}
	}
	if s.warehouse == nil {
		return DeliveryResult{Warning: true, Message: FormatUserError(ErrWarehouseDisabled)}
	}

	if s.cfg.WarehouseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.WarehouseTimeout)
		defer cancel()
	}

	if err := s.warehouse.Load(ctx, tables); err != nil {
		logging.FromContext(ctx).Error("warehouse load failed", "session_id", sessionID, "error", err)
		return DeliveryResult{Message: fmt.Sprintf("Failed to load data into the warehouse: %v", err)}
	}

	logging.FromContext(ctx).Info("warehouse load completed", "session_id", sessionID, "tables", tables.Len())
	return DeliveryResult{OK: true, Message: fmt.Sprintf("Loaded %d tables into the warehouse.", tables.Len())}
}

// EmailTables returns the labels attached to outgoing email.
func (s *Service) EmailTables() []string {
	out := make([]string, len(s.cfg.EmailTables))
	copy(out, s.cfg.EmailTables)
	return out
}

// SendEmail mails the configured table subset as an xlsx attachment. Missing
// form fields produce a warning without contacting the relay. Send errors are
// reported in the result, never returned.
func (s *Service) SendEmail(ctx context.Context, sessionID string, req EmailRequest) DeliveryResult {
	if missing := req.Missing(); len(missing) > 0 {
		return DeliveryResult{
			Warning: true,
			Message: "Please fill in all email fields: " + strings.Join(missing, ", "),
		}
	}

	tables, err := s.ReadyTables(sessionID)
	if err != nil {
		return DeliveryResult{Warning: true, Message: FormatUserError(err)}
	}

	subset, err := tables.Select(s.cfg.EmailTables...)
	if err != nil {
		return DeliveryResult{Message: fmt.Sprintf("Cannot send email: %v", err)}
	}

	if s.mailer == nil {
		return DeliveryResult{Message: "Email delivery is not configured."}
	}

	if s.cfg.MailTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.MailTimeout)
		defer cancel()
	}

	if err := s.mailer.Send(ctx, req, subset); err != nil {
		logging.FromContext(ctx).Error("email send failed", "session_id", sessionID, "to", req.To, "error", err)
		return DeliveryResult{Message: fmt.Sprintf("Failed to send email: %v", err)}
	}

	logging.FromContext(ctx).Info("email sent", "session_id", sessionID, "to", req.To, "tables", subset.Len())
	return DeliveryResult{OK: true, Message: "Email sent successfully!"}
}

// Charts renders the figure set for the published TableSet.
func (s *Service) Charts(sessionID string) ([]Figure, error) {
	tables, err := s.ReadyTables(sessionID)
	if err != nil {
		return nil, err
	}
	if s.charts == nil {
		return nil, errors.New("chart rendering is not configured")
	}
	return s.charts.Render(tables)
}

// UploadLimiterStatus returns the current limiter state.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until running uploads finish or ctx ends.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
