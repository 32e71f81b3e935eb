// Package session owns the hand-out/hand-over session lifecycle: the
// expected tool set, the completion threshold, the append-only analysis
// log and the derived status.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/toolkitvision/toolcheck-go/internal/catalog"
	"github.com/toolkitvision/toolcheck-go/internal/conf"
	"github.com/toolkitvision/toolcheck-go/internal/datastore"
	"github.com/toolkitvision/toolcheck-go/internal/detection"
	"github.com/toolkitvision/toolcheck-go/internal/errors"
	"github.com/toolkitvision/toolcheck-go/internal/logging"
	"github.com/toolkitvision/toolcheck-go/internal/observability"
	"github.com/toolkitvision/toolcheck-go/internal/reconcile"
)

// Session modes.
const (
	ModeHandout  = "handout"
	ModeHandover = "handover"
)

// Session statuses. A session starts pending and is completed only while
// its most recent analysis satisfies the completion criteria.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

const serviceName = "session"

var logger *slog.Logger

func init() {
	logger = logging.ForService(serviceName)
	if logger == nil {
		logger = slog.Default().With("service", serviceName)
	}
}

// Manager applies the session lifecycle over a datastore and a detection
// backend. All methods are safe for concurrent use; analyses against the
// same session are serialized.
type Manager struct {
	store    datastore.Interface
	backend  detection.Backend
	settings *conf.Settings
	metrics  *observability.Metrics // may be nil

	mu    sync.Mutex
	locks map[string]*sessionLock // per-session critical sections
}

// sessionLock is a reference-counted mutex; the manager drops the map
// entry once the last holder releases, so the lock table does not grow
// with the number of sessions ever analysed.
type sessionLock struct {
	sync.Mutex
	refs int
}

// NewManager creates a session manager. metrics may be nil.
func NewManager(store datastore.Interface, backend detection.Backend, settings *conf.Settings, metrics *observability.Metrics) *Manager {
	return &Manager{
		store:    store,
		backend:  backend,
		settings: settings,
		metrics:  metrics,
		locks:    make(map[string]*sessionLock),
	}
}

// acquireLock blocks until the caller holds the critical section for
// the given session id. Every acquireLock is paired with releaseLock.
func (m *Manager) acquireLock(sessionID string) *sessionLock {
	m.mu.Lock()
	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		m.locks[sessionID] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.Lock()
	return lock
}

// releaseLock unlocks the critical section and removes the map entry
// when no other caller is waiting on it.
func (m *Manager) releaseLock(sessionID string, lock *sessionLock) {
	lock.Unlock()

	m.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(m.locks, sessionID)
	}
	m.mu.Unlock()
}

// Create validates the expected tool set and stores a new pending
// session. Unknown catalog ids are silently dropped and duplicates
// removed while preserving insertion order; an empty result is a
// validation error. A nil or empty expected set defaults to the full
// catalog. engineerID may be nil for anonymous sessions.
func (m *Manager) Create(mode string, expectedToolIDs []string, threshold float64, engineerID *uint) (datastore.Session, error) {
	if mode != ModeHandout && mode != ModeHandover {
		return datastore.Session{}, errors.ValidationError("invalid session mode %q", mode)
	}
	if threshold < 0 || threshold > 1 {
		return datastore.Session{}, errors.ValidationError("threshold must be between 0 and 1, got %f", threshold)
	}

	if len(expectedToolIDs) == 0 {
		expectedToolIDs = catalog.IDs()
	}
	validated := make([]string, 0, len(expectedToolIDs))
	seen := make(map[string]bool, len(expectedToolIDs))
	for _, toolID := range expectedToolIDs {
		if !catalog.Contains(toolID) || seen[toolID] {
			continue
		}
		seen[toolID] = true
		validated = append(validated, toolID)
	}
	if len(validated) == 0 {
		return datastore.Session{}, errors.ValidationError("at least one valid tool id must be provided")
	}

	session := datastore.Session{
		SessionID:       uuid.NewString(),
		Mode:            mode,
		ExpectedToolIDs: validated,
		Threshold:       threshold,
		Status:          StatusPending,
		EngineerID:      engineerID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := m.store.SaveSession(&session); err != nil {
		return datastore.Session{}, err
	}

	if m.metrics != nil {
		m.metrics.SessionsCreated.WithLabelValues(mode).Inc()
	}
	logger.Info("session created",
		"session_id", session.SessionID,
		"mode", mode,
		"expected_tools", len(validated),
		"threshold", threshold)
	return session, nil
}

// Get returns the session with its full analysis history.
func (m *Manager) Get(sessionID string) (datastore.Session, error) {
	return m.store.GetSession(sessionID)
}

// List returns all sessions, newest first.
func (m *Manager) List() ([]datastore.Session, error) {
	return m.store.ListSessions()
}

// Analyse stores the uploaded image, runs the detection backend,
// reconciles the result against the session's expected set, appends the
// analysis and recomputes the session status. Two concurrent calls for
// the same session are serialized so the appended ordering matches
// creation time and the stored status reflects the last applied
// analysis. A failed analysis appends nothing, the session keeps its
// prior status.
func (m *Manager) Analyse(ctx context.Context, sessionID, filename string, image io.Reader) (datastore.Analysis, datastore.Session, error) {
	lock := m.acquireLock(sessionID)
	defer m.releaseLock(sessionID, lock)

	session, err := m.store.GetSession(sessionID)
	if err != nil {
		return datastore.Analysis{}, datastore.Session{}, err
	}

	// The image must be fully durable before inference so the stored
	// artifact and the analysis stay consistent even if the caller
	// disconnects mid-request.
	imagePath, err := m.persistUpload(filename, image)
	if err != nil {
		m.countError()
		return datastore.Analysis{}, datastore.Session{}, err
	}

	start := time.Now()
	detected, err := m.backend.Detect(ctx, imagePath)
	if err != nil {
		m.countError()
		return datastore.Analysis{}, datastore.Session{}, err
	}
	if m.metrics != nil {
		m.metrics.ObserveDetection(m.backend.Describe().Backend, time.Since(start))
	}

	outcome := reconcile.Reconcile(session.ExpectedToolIDs, session.Threshold, detected)
	status := StatusPending
	if outcome.Complete() {
		status = StatusCompleted
	}

	analysis := datastore.Analysis{
		RequestID:        uuid.NewString(),
		SessionID:        session.SessionID,
		ImageFilename:    filepath.Base(imagePath),
		Detected:         detected,
		MatchedToolIDs:   outcome.MatchedToolIDs,
		MissingToolIDs:   outcome.MissingToolIDs,
		UnexpectedLabels: outcome.UnexpectedLabels,
		MatchRatio:       outcome.MatchRatio,
		BelowThreshold:   outcome.BelowThreshold,
		CreatedAt:        time.Now().UTC(),
	}
	if err := m.store.AppendAnalysis(&analysis, status); err != nil {
		m.countError()
		return datastore.Analysis{}, datastore.Session{}, err
	}

	if m.metrics != nil {
		m.metrics.AnalysesTotal.WithLabelValues(status).Inc()
	}
	logger.Info("analysis applied",
		"session_id", session.SessionID,
		"request_id", analysis.RequestID,
		"matched", len(outcome.MatchedToolIDs),
		"missing", len(outcome.MissingToolIDs),
		"unexpected", len(outcome.UnexpectedLabels),
		"match_ratio", outcome.MatchRatio,
		"status", status)

	updated, err := m.store.GetSession(session.SessionID)
	if err != nil {
		return datastore.Analysis{}, datastore.Session{}, err
	}
	return analysis, updated, nil
}

// persistUpload stores the image bytes under a generated unique name,
// keeping the original extension as a hint.
func (m *Manager) persistUpload(filename string, image io.Reader) (string, error) {
	suffix := filepath.Ext(filename)
	if suffix == "" {
		suffix = ".bin"
	}
	targetDir := m.settings.Uploads.Path
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", errors.New(fmt.Errorf("creating upload directory: %w", err)).
			Component(serviceName).
			Category(errors.CategoryFileIO).
			Context("upload_dir", targetDir).
			Build()
	}

	targetPath := filepath.Join(targetDir, uuid.NewString()+suffix)
	file, err := os.Create(targetPath)
	if err != nil {
		return "", errors.New(fmt.Errorf("creating upload file: %w", err)).
			Component(serviceName).
			Category(errors.CategoryFileIO).
			Context("target_path", targetPath).
			Build()
	}

	if _, err := io.Copy(file, image); err != nil {
		file.Close()
		os.Remove(targetPath)
		return "", errors.New(fmt.Errorf("writing upload file: %w", err)).
			Component(serviceName).
			Category(errors.CategoryFileIO).
			Context("target_path", targetPath).
			Build()
	}
	if err := file.Close(); err != nil {
		os.Remove(targetPath)
		return "", errors.New(fmt.Errorf("closing upload file: %w", err)).
			Component(serviceName).
			Category(errors.CategoryFileIO).
			Context("target_path", targetPath).
			Build()
	}
	return targetPath, nil
}

func (m *Manager) countError() {
	if m.metrics != nil {
		m.metrics.AnalysisErrors.Inc()
	}
}
