// Package dashboard aggregates session activity for the overview endpoint.
package dashboard

import (
	"time"

	"github.com/toolkitvision/toolcheck-go/internal/datastore"
	"github.com/toolkitvision/toolcheck-go/internal/session"
)

const latestSessionCount = 10

// SessionSummary is a compact session row for the dashboard list.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
	ToolCount int       `json:"tool_count"`
	Engineer  string    `json:"engineer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Overview is the aggregate picture of all sessions.
type Overview struct {
	TotalSessions     int64            `json:"total_sessions"`
	PendingSessions   int64            `json:"pending_sessions"`
	CompletedSessions int64            `json:"completed_sessions"`
	TotalAnalyses     int64            `json:"total_analyses"`
	TotalEngineers    int64            `json:"total_engineers"`
	SessionsByMode    map[string]int64 `json:"sessions_by_mode"`
	LatestSessions    []SessionSummary `json:"latest_sessions"`
}

// Builder computes dashboard overviews from the datastore.
type Builder struct {
	store datastore.Interface
}

func NewBuilder(store datastore.Interface) *Builder {
	return &Builder{store: store}
}

// Build assembles a full overview. Counts are read individually, the
// result is a best-effort snapshot rather than a transactional view.
func (b *Builder) Build() (Overview, error) {
	overview := Overview{}

	total, err := b.store.CountSessions("")
	if err != nil {
		return Overview{}, err
	}
	overview.TotalSessions = total

	pending, err := b.store.CountSessions(session.StatusPending)
	if err != nil {
		return Overview{}, err
	}
	overview.PendingSessions = pending

	completed, err := b.store.CountSessions(session.StatusCompleted)
	if err != nil {
		return Overview{}, err
	}
	overview.CompletedSessions = completed

	analyses, err := b.store.CountAnalyses()
	if err != nil {
		return Overview{}, err
	}
	overview.TotalAnalyses = analyses

	engineers, err := b.store.CountEngineers()
	if err != nil {
		return Overview{}, err
	}
	overview.TotalEngineers = engineers

	byMode, err := b.store.SessionsByMode()
	if err != nil {
		return Overview{}, err
	}
	overview.SessionsByMode = byMode

	latest, err := b.store.LatestSessions(latestSessionCount)
	if err != nil {
		return Overview{}, err
	}
	overview.LatestSessions = make([]SessionSummary, 0, len(latest))
	for i := range latest {
		overview.LatestSessions = append(overview.LatestSessions, summarize(&latest[i]))
	}

	return overview, nil
}

func summarize(s *datastore.Session) SessionSummary {
	summary := SessionSummary{
		SessionID: s.SessionID,
		Mode:      s.Mode,
		Status:    s.Status,
		ToolCount: len(s.ExpectedToolIDs),
		CreatedAt: s.CreatedAt,
	}
	if s.Engineer != nil {
		summary.Engineer = s.Engineer.Username
	}
	return summary
}
