package service

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/capture"
	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/internal/token"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type frameDecoder interface {
	Decode(frame image.Image) (int64, error)
}

type networkGate interface {
	Check(ctx context.Context) bool
}

// ScanConfig tunes attempt behaviour.
type ScanConfig struct {
	FrameInterval  time.Duration
	AttemptTimeout time.Duration
	// NewSource builds the capture source for an attempt. Defaults to a
	// channel source fed through PushFrame.
	NewSource func() capture.Source
}

// ScanService drives scan attempts: at most one in flight per student,
// each owning its capture source on a background goroutine and delivering
// exactly one terminal outcome.
type ScanService struct {
	gate    networkGate
	decoder frameDecoder
	engine  *AttendanceService
	metrics *MetricsService
	logger  *zap.Logger
	config  ScanConfig
	now     func() time.Time

	mu        sync.Mutex
	attempts  map[string]*scanAttempt
	byStudent map[int64]string
}

type scanAttempt struct {
	id        string
	studentID int64
	startedAt time.Time
	source    capture.Source
	push      func(image.Image) error
	cancel    context.CancelFunc

	once       sync.Once
	done       chan struct{}
	result     models.ScanResult
	finishedAt time.Time
}

// NewScanService constructs the orchestrator.
func NewScanService(gate networkGate, decoder frameDecoder, engine *AttendanceService, metrics *MetricsService, logger *zap.Logger, config ScanConfig) *ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.FrameInterval <= 0 {
		config.FrameInterval = 200 * time.Millisecond
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = 2 * time.Minute
	}
	if config.NewSource == nil {
		config.NewSource = func() capture.Source { return capture.NewChannelSource(8) }
	}
	return &ScanService{
		gate:      gate,
		decoder:   decoder,
		engine:    engine,
		metrics:   metrics,
		logger:    logger,
		config:    config,
		now:       time.Now,
		attempts:  make(map[string]*scanAttempt),
		byStudent: make(map[int64]string),
	}
}

// Begin starts a scan attempt for the student. A second attempt while one
// is live is rejected.
func (s *ScanService) Begin(studentID int64) (*models.ScanStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeFinishedLocked()

	if id, ok := s.byStudent[studentID]; ok {
		if att := s.attempts[id]; att != nil && !att.isDone() {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a scan attempt is already in progress")
		}
	}

	source := s.config.NewSource()
	att := &scanAttempt{
		id:        uuid.NewString(),
		studentID: studentID,
		startedAt: s.now().UTC(),
		source:    source,
		done:      make(chan struct{}),
	}
	if cs, ok := source.(*capture.ChannelSource); ok {
		att.push = cs.Push
	}

	// The attempt outlives the HTTP request that started it.
	ctx, cancel := context.WithTimeout(context.Background(), s.config.AttemptTimeout)
	att.cancel = cancel

	s.attempts[att.id] = att
	s.byStudent[studentID] = att.id

	go s.run(ctx, att)

	return att.status(), nil
}

// PushFrame feeds a captured frame into the student's live attempt.
func (s *ScanService) PushFrame(attemptID string, studentID int64, frame image.Image) error {
	att, err := s.lookup(attemptID, studentID)
	if err != nil {
		return err
	}
	if att.push == nil {
		return appErrors.Clone(appErrors.ErrValidation, "attempt does not accept pushed frames")
	}
	if att.isDone() {
		return appErrors.Clone(appErrors.ErrConflict, "scan attempt already finished")
	}
	if err := att.push(frame); err != nil {
		return appErrors.Clone(appErrors.ErrConflict, "scan attempt already finished")
	}
	return nil
}

// Status reports the attempt without blocking.
func (s *ScanService) Status(attemptID string, studentID int64) (*models.ScanStatus, error) {
	att, err := s.lookup(attemptID, studentID)
	if err != nil {
		return nil, err
	}
	return att.status(), nil
}

// Wait blocks until the attempt reaches its terminal outcome or ctx ends.
func (s *ScanService) Wait(ctx context.Context, attemptID string, studentID int64) (*models.ScanStatus, error) {
	att, err := s.lookup(attemptID, studentID)
	if err != nil {
		return nil, err
	}
	select {
	case <-att.done:
		return att.status(), nil
	case <-ctx.Done():
		return att.status(), nil
	}
}

// Cancel stops the attempt. The loop observes cancellation within one
// frame interval and releases the capture source before reporting.
func (s *ScanService) Cancel(attemptID string, studentID int64) error {
	att, err := s.lookup(attemptID, studentID)
	if err != nil {
		return err
	}
	att.cancel()
	return nil
}

func (s *ScanService) lookup(attemptID string, studentID int64) (*scanAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	att, ok := s.attempts[attemptID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown scan attempt")
	}
	if att.studentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "scan attempt belongs to another student")
	}
	return att, nil
}

// run owns the capture source for the attempt's lifetime. Every exit path
// releases the source and delivers exactly one terminal outcome; the
// release happens inside finish, before the outcome becomes observable.
func (s *ScanService) run(ctx context.Context, att *scanAttempt) {
	defer att.cancel()
	// Backstop only; finish has already released by the time it reports.
	defer func() { _ = att.source.Release() }()

	// Network gate comes first; on rejection no frame is ever read.
	if !s.gate.Check(ctx) {
		s.finish(att, models.NewScanResult(models.OutcomeNetworkRejected))
		return
	}

	if err := att.source.Open(ctx); err != nil {
		s.logger.Warn("capture open failed", zap.String("attempt_id", att.id), zap.Error(err))
		s.finish(att, models.NewScanResult(models.OutcomeCameraError))
		return
	}

	for {
		frame, err := att.source.ReadFrame(ctx)
		if err != nil {
			s.finish(att, s.readFailureResult(ctx, att, err))
			return
		}

		subjectID, err := s.decoder.Decode(frame)
		if err != nil {
			if errors.Is(err, token.ErrInvalidPayload) {
				s.finish(att, models.NewScanResult(models.OutcomeInvalidToken))
				return
			}
			if !errors.Is(err, token.ErrNoSymbol) {
				s.logger.Warn("frame decode failed", zap.String("attempt_id", att.id), zap.Error(err))
			}
			// Pace the loop before grabbing the next frame.
			select {
			case <-time.After(s.config.FrameInterval):
			case <-ctx.Done():
			}
			continue
		}

		result := s.engine.Evaluate(ctx, subjectID, att.studentID, s.now().UTC())
		s.finish(att, result)
		return
	}
}

func (s *ScanService) readFailureResult(ctx context.Context, att *scanAttempt, err error) models.ScanResult {
	switch {
	case errors.Is(err, context.Canceled):
		return models.NewScanResult(models.OutcomeCancelled)
	case errors.Is(err, context.DeadlineExceeded):
		result := models.NewScanResult(models.OutcomeCancelled)
		result.Message = "Scan attempt timed out"
		return result
	case errors.Is(err, capture.ErrClosed):
		return models.NewScanResult(models.OutcomeCancelled)
	default:
		s.logger.Warn("frame read failed", zap.String("attempt_id", att.id), zap.Error(err))
		return models.NewScanResult(models.OutcomeCameraError)
	}
}

// finish releases the capture source and records the terminal outcome
// exactly once. The release precedes closing done so no waiter can see
// the result while the device is still held.
func (s *ScanService) finish(att *scanAttempt, result models.ScanResult) {
	att.once.Do(func() {
		_ = att.source.Release()
		att.result = result
		att.finishedAt = s.now().UTC()
		close(att.done)

		if s.metrics != nil {
			s.metrics.ObserveScanOutcome(result.Outcome, att.finishedAt.Sub(att.startedAt))
		}
		s.logger.Info("scan attempt finished",
			zap.String("attempt_id", att.id),
			zap.Int64("student_id", att.studentID),
			zap.String("outcome", string(result.Outcome)),
		)

		s.mu.Lock()
		if s.byStudent[att.studentID] == att.id {
			delete(s.byStudent, att.studentID)
		}
		s.mu.Unlock()
	})
}

// purgeFinishedLocked drops attempts whose results are long since
// collectable. Caller holds s.mu.
func (s *ScanService) purgeFinishedLocked() {
	cutoff := s.now().UTC().Add(-s.config.AttemptTimeout)
	for id, att := range s.attempts {
		if att.isDone() && att.finishedAt.Before(cutoff) {
			delete(s.attempts, id)
		}
	}
}

func (a *scanAttempt) isDone() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

func (a *scanAttempt) status() *models.ScanStatus {
	status := &models.ScanStatus{
		AttemptID: a.id,
		StudentID: a.studentID,
		StartedAt: a.startedAt,
	}
	if a.isDone() {
		status.Done = true
		result := a.result
		status.Result = &result
	}
	return status
}
