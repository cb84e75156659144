package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Service orchestrates the import pipeline over a SessionStore and an
// EntityStore. It is the entry point for every transport.
type Service struct {
	sessions   SessionStore
	entities   EntityStore
	classifier *TypeClassifier
	validator  MappingValidator
	executor   *Executor
	aggregator Aggregator
	limiter    *ExecutionLimiter
	locker     Locker
	defaults   ImportOptions
	maxUpload  int64
	logger     *slog.Logger
	now        func() time.Time
}

// ServiceConfig wires a Service. Only the two stores are required.
type ServiceConfig struct {
	Sessions SessionStore
	Entities EntityStore

	Oracle        Classifier // optional
	OracleTimeout time.Duration
	Locker        Locker // optional, NopLocker when nil

	Defaults       ImportOptions
	MaxUploadBytes int64
	MaxConcurrent  int
	MaxWait        time.Duration
	ErrorLimit     int
	MaxIssues      int

	Logger *slog.Logger
}

// NewService validates cfg and builds a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Sessions == nil || cfg.Entities == nil {
		return nil, errors.New("service: session and entity stores are required")
	}
	if cfg.Defaults == (ImportOptions{}) {
		cfg.Defaults = DefaultImportOptions()
	}
	if err := cfg.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("service: default options: %w", err)
	}
	if cfg.Locker == nil {
		cfg.Locker = NopLocker{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		sessions:   cfg.Sessions,
		entities:   cfg.Entities,
		classifier: NewTypeClassifier(cfg.Oracle, cfg.OracleTimeout, cfg.Logger),
		validator:  NewMappingValidator(cfg.MaxIssues),
		executor:   NewExecutor(cfg.Entities, cfg.Logger),
		aggregator: NewAggregator(cfg.ErrorLimit),
		limiter:    NewExecutionLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		locker:     cfg.Locker,
		defaults:   cfg.Defaults,
		maxUpload:  cfg.MaxUploadBytes,
		logger:     cfg.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// UploadPreviewRows is the number of rows returned by Upload.
const UploadPreviewRows = 5

// UploadResult is returned by Upload.
type UploadResult struct {
	ImportID        string   `json:"importId"`
	FileName        string   `json:"fileName"`
	DetectedColumns []string `json:"detectedColumns"`
	TotalRows       int      `json:"totalRows"`
	PreviewRows     []Row    `json:"previewRows"`
}

// Upload parses the file and persists a pending session. File-level errors
// are returned before any session is created.
func (s *Service) Upload(ctx context.Context, ownerID, fileName string, r io.Reader) (*UploadResult, error) {
	data, err := ReadUpload(r, s.maxUpload)
	if err != nil {
		return nil, err
	}

	headers, rows, err := ParseFile(fileName, data)
	if err != nil {
		return nil, err
	}

	session := NewImportSession(ownerID, fileName, int64(len(data)), headers, rows, s.now())
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("import uploaded",
		"import_id", session.ID,
		"owner_id", ownerID,
		"file", fileName,
		"rows", len(rows),
		"columns", len(headers),
	)

	preview := session.PreviewRows
	if len(preview) > UploadPreviewRows {
		preview = preview[:UploadPreviewRows]
	}
	return &UploadResult{
		ImportID:        session.ID,
		FileName:        fileName,
		DetectedColumns: session.DetectedColumns,
		TotalRows:       len(rows),
		PreviewRows:     preview,
	}, nil
}

// Analyze classifies the session's file. Allowed while pending or analyzing;
// re-analysis discards any confirmed mapping.
func (s *Service) Analyze(ctx context.Context, ownerID, id string) (Classification, error) {
	session, err := s.sessions.GetSession(ctx, ownerID, id)
	if err != nil {
		return Classification{}, err
	}
	if err := session.advance("analyze", StatusAnalyzing, s.now()); err != nil {
		return Classification{}, err
	}

	c := s.classifier.Classify(ctx, session.DetectedColumns, session.RawRows, session.FileName)
	session.Classification = &c
	session.UserConfirmedMappings = nil

	switch schema, ok := SchemaFor(c.DataType); {
	case !ok:
		session.FailureReason = "could not determine the data type of the file"
		err = session.advance("analyze", StatusFailed, s.now())
	case len(c.ColumnMappings.Missing(schema)) == 0:
		err = session.advance("analyze", StatusReady, s.now())
	}
	if err != nil {
		return Classification{}, err
	}

	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		return Classification{}, fmt.Errorf("update session: %w", err)
	}

	s.logger.Info("import analyzed",
		"import_id", id,
		"data_type", c.DataType,
		"confidence", c.Confidence,
		"source", c.Source,
		"status", session.Status,
	)
	return c, nil
}

// Preview applies a candidate mapping to the preview rows without
// persisting anything. Output rows are keyed by field name.
func (s *Service) Preview(ctx context.Context, ownerID, id string, mapping ColumnMapping) ([]map[string]string, error) {
	session, err := s.sessions.GetSession(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	mapped := make([]map[string]string, 0, len(session.PreviewRows))
	for _, row := range session.PreviewRows {
		values := mapping.Apply(row)
		out := make(map[string]string, len(values))
		for f, v := range values {
			out[string(f)] = v
		}
		mapped = append(mapped, out)
	}
	return mapped, nil
}

// Validate checks mapping (or the session's effective mapping when nil)
// against every raw row.
func (s *Service) Validate(ctx context.Context, ownerID, id string, mapping ColumnMapping) (ValidationResult, error) {
	session, err := s.sessions.GetSession(ctx, ownerID, id)
	if err != nil {
		return ValidationResult{}, err
	}
	if session.DataType() == DataUnknown {
		return ValidationResult{}, &InvalidStateError{Op: "validate", Status: session.Status}
	}
	if mapping == nil {
		mapping = session.EffectiveMapping()
	}
	return s.validator.Validate(session.DetectedColumns, session.RawRows, mapping, session.DataType()), nil
}

// ConfirmMapping stores a user-confirmed mapping. A complete mapping moves the
// session to ready; an incomplete one keeps an analyzing session waiting and
// is rejected for a ready session.
func (s *Service) ConfirmMapping(ctx context.Context, ownerID, id string, mapping ColumnMapping) (*ImportSession, error) {
	session, err := s.sessions.GetSession(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if session.Status != StatusAnalyzing && session.Status != StatusReady {
		return nil, &InvalidStateError{Op: "confirm mapping for", Status: session.Status}
	}
	dt := session.DataType()
	schema, ok := SchemaFor(dt)
	if !ok {
		return nil, &InvalidStateError{Op: "confirm mapping for", Status: session.Status}
	}

	errs, _ := s.validator.CheckMapping(session.DetectedColumns, mapping, dt)
	missing := mapping.Missing(schema)
	for _, issue := range errs {
		// Column-less issues are unmapped required fields, handled below.
		if issue.Column == "" {
			continue
		}
		return nil, &ValidationError{Field: issue.Field, Message: issue.Message}
	}

	next := StatusReady
	if len(missing) > 0 {
		if session.Status == StatusReady {
			return nil, &ValidationError{Field: missing[0], Message: fmt.Sprintf("required field %s is not mapped", missing[0])}
		}
		next = StatusAnalyzing
	}

	session.UserConfirmedMappings = mapping.Clone()
	if err := session.advance("confirm mapping for", next, s.now()); err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return session, nil
}

// Execute runs a ready session to completion. Wrong-state calls fail with
// InvalidStateError and leave the session untouched. Once started the run
// ignores cancellation of ctx.
func (s *Service) Execute(ctx context.Context, ownerID, id string, override *OptionsOverride) (ExecutionSummary, error) {
	opts := override.Merge(s.defaults)
	if err := opts.Validate(); err != nil {
		return ExecutionSummary{}, err
	}

	session, err := s.sessions.GetSession(ctx, ownerID, id)
	if err != nil {
		return ExecutionSummary{}, err
	}
	if session.Status != StatusReady {
		return ExecutionSummary{}, &InvalidStateError{Op: "execute", Status: session.Status}
	}

	release, err := s.limiter.Acquire(ctx, id)
	if err != nil {
		return ExecutionSummary{}, err
	}
	defer release()

	unlock, err := s.locker.Obtain(ctx, ImportLockKey(id))
	if err != nil {
		return ExecutionSummary{}, err
	}

	runCtx := context.WithoutCancel(ctx)
	defer func() {
		if err := unlock(runCtx); err != nil {
			s.logger.Warn("release import lock", "import_id", id, "error", err)
		}
	}()

	if err := s.sessions.TransitionStatus(ctx, ownerID, id, StatusReady, StatusImporting); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			current := StatusImporting
			if fresh, getErr := s.sessions.GetSession(ctx, ownerID, id); getErr == nil {
				current = fresh.Status
			}
			return ExecutionSummary{}, &InvalidStateError{Op: "execute", Status: current}
		}
		return ExecutionSummary{}, fmt.Errorf("start import: %w", err)
	}

	session.Status = StatusImporting
	session.ImportedRowCount = 0
	session.FailedRowCount = 0
	session.DuplicateRowCount = 0
	session.ImportErrors = []string{}
	session.UpdatedAt = s.now()
	if err := s.sessions.UpdateSession(runCtx, session); err != nil {
		err = fmt.Errorf("update session: %w", err)
		summary, failErr := s.aggregator.Fail(session, ExecutionResult{}, err)
		if failErr != nil {
			return ExecutionSummary{}, failErr
		}
		s.settle(runCtx, session)
		return summary, err
	}

	s.logger.Info("import started", "import_id", id, "owner_id", ownerID, "rows", len(session.RawRows))

	result, runErr := s.executor.Execute(runCtx, session, opts)

	var summary ExecutionSummary
	if runErr != nil {
		summary, err = s.aggregator.Fail(session, result, runErr)
	} else {
		summary, err = s.aggregator.Complete(session, result)
	}
	if err != nil {
		return ExecutionSummary{}, err
	}
	if err := s.sessions.UpdateSession(runCtx, session); err != nil {
		s.settle(runCtx, session)
		return summary, fmt.Errorf("update session: %w", err)
	}
	return summary, runErr
}

// settle is the fallback when a finished session could not be written. It
// retries the full update once, then moves the stored status out of
// importing on its own so the session can be deleted, purged or inspected.
func (s *Service) settle(ctx context.Context, session *ImportSession) {
	log := s.logger.With("import_id", session.ID, "status", session.Status)
	if err := s.sessions.UpdateSession(ctx, session); err == nil {
		return
	}
	err := s.sessions.TransitionStatus(ctx, session.OwnerID, session.ID, StatusImporting, session.Status)
	if err != nil {
		log.Error("session left in importing", "error", err)
		return
	}
	log.Warn("session status stored without import results")
}

// Pagination describes a page of history.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// HistoryPage is one page of an owner's sessions.
type HistoryPage struct {
	Imports    []*ImportSession `json:"imports"`
	Pagination Pagination       `json:"pagination"`
}

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// History lists an owner's sessions, newest first. status may be empty.
func (s *Service) History(ctx context.Context, ownerID string, page, limit int, status Status) (HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if status != "" && !status.Valid() {
		return HistoryPage{}, &ValidationError{Value: string(status), Message: "invalid status filter"}
	}

	sessions, total, err := s.sessions.ListSessions(ctx, SessionFilter{
		OwnerID: ownerID,
		Status:  status,
		Limit:   limit,
		Offset:  (page - 1) * limit,
	})
	if err != nil {
		return HistoryPage{}, fmt.Errorf("list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []*ImportSession{}
	}

	return HistoryPage{
		Imports: sessions,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	}, nil
}

// Get returns one session.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*ImportSession, error) {
	return s.sessions.GetSession(ctx, ownerID, id)
}

// Delete removes a session. Running imports cannot be deleted.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	session, err := s.sessions.GetSession(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if session.Status == StatusImporting {
		return &InvalidStateError{Op: "delete", Status: session.Status}
	}
	if err := s.sessions.DeleteSession(ctx, ownerID, id); err != nil {
		return err
	}
	s.logger.Info("import deleted", "import_id", id, "owner_id", ownerID)
	return nil
}

// LimiterStatus exposes the execution limiter for health checks.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// Shutdown waits for running executions to finish.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
