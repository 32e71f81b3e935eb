package datastore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolkitvision/toolcheck-go/internal/conf"
	"github.com/toolkitvision/toolcheck-go/internal/detection"
	"github.com/toolkitvision/toolcheck-go/internal/errors"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	store := &SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSession(sessionID string) *Session {
	return &Session{
		SessionID:       sessionID,
		Mode:            "handout",
		ExpectedToolIDs: []string{"flat_screwdriver", "pliers"},
		Threshold:       0.9,
		Status:          "pending",
		CreatedAt:       time.Now(),
	}
}

func TestSaveAndGetSession(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveSession(sampleSession("s-1")))

	got, err := store.GetSession("s-1")
	require.NoError(t, err)
	assert.Equal(t, "handout", got.Mode)
	assert.Equal(t, []string{"flat_screwdriver", "pliers"}, got.ExpectedToolIDs)
	assert.InDelta(t, 0.9, got.Threshold, 1e-9)
	assert.Equal(t, "pending", got.Status)
	assert.Empty(t, got.Analyses)
}

func TestGetSessionNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSession("missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestListSessionsNewestFirst(t *testing.T) {
	store := newTestStore(t)

	older := sampleSession("older")
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.SaveSession(older))
	require.NoError(t, store.SaveSession(sampleSession("newer")))

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "newer", sessions[0].SessionID)
	assert.Equal(t, "older", sessions[1].SessionID)
}

func TestAppendAnalysisUpdatesStatus(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveSession(sampleSession("s-1")))

	analysis := &Analysis{
		RequestID:     "r-1",
		SessionID:     "s-1",
		ImageFilename: "abc.jpg",
		Detected: []detection.Detection{
			{ToolID: "pliers", Label: "Пассатижи универсальные", Confidence: 0.91},
		},
		MatchedToolIDs: []string{"pliers"},
		MissingToolIDs: []string{"flat_screwdriver"},
		MatchRatio:     0.5,
		BelowThreshold: true,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, store.AppendAnalysis(analysis, "pending"))

	got, err := store.GetSession("s-1")
	require.NoError(t, err)
	require.Len(t, got.Analyses, 1)
	assert.Equal(t, "r-1", got.Analyses[0].RequestID)
	assert.Equal(t, []string{"flat_screwdriver"}, got.Analyses[0].MissingToolIDs)
	assert.Equal(t, "pending", got.Status)

	second := &Analysis{
		RequestID:      "r-2",
		SessionID:      "s-1",
		MatchedToolIDs: []string{"flat_screwdriver", "pliers"},
		MatchRatio:     1.0,
		CreatedAt:      time.Now().Add(time.Second),
	}
	require.NoError(t, store.AppendAnalysis(second, "completed"))

	got, err = store.GetSession("s-1")
	require.NoError(t, err)
	require.Len(t, got.Analyses, 2)
	// chronological order
	assert.Equal(t, "r-1", got.Analyses[0].RequestID)
	assert.Equal(t, "r-2", got.Analyses[1].RequestID)
	assert.Equal(t, "completed", got.Status)
}

func TestAppendAnalysisKeepsUnchangedStatus(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveSession(sampleSession("s-1")))

	// two consecutive failing analyses leave the status at "pending";
	// the second append must not be mistaken for a missing session just
	// because the status update changes nothing
	for i, requestID := range []string{"r-1", "r-2"} {
		err := store.AppendAnalysis(&Analysis{
			RequestID:      requestID,
			SessionID:      "s-1",
			MissingToolIDs: []string{"pliers"},
			MatchRatio:     0.5,
			BelowThreshold: true,
			CreatedAt:      time.Now().Add(time.Duration(i) * time.Second),
		}, "pending")
		require.NoError(t, err)
	}

	got, err := store.GetSession("s-1")
	require.NoError(t, err)
	assert.Len(t, got.Analyses, 2)
	assert.Equal(t, "pending", got.Status)
}

func TestAppendAnalysisUnknownSession(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendAnalysis(&Analysis{RequestID: "r-1", SessionID: "missing"}, "pending")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	// nothing must have been inserted
	count, err := store.CountAnalyses()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEngineerAndTokenRoundTrip(t *testing.T) {
	store := newTestStore(t)

	engineer := &Engineer{Username: "admin", PasswordHash: "hash", Role: "admin"}
	require.NoError(t, store.SaveEngineer(engineer))
	require.NotZero(t, engineer.ID)

	got, err := store.GetEngineerByUsername("admin")
	require.NoError(t, err)
	assert.Equal(t, engineer.ID, got.ID)

	_, err = store.GetEngineerByUsername("ghost")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, store.IssueToken(&AccessToken{Token: "t-1", EngineerID: engineer.ID}))
	require.NoError(t, store.IssueToken(&AccessToken{Token: "t-2", EngineerID: engineer.ID}))

	// issuing a new token revokes the previous one
	_, err = store.GetTokenWithEngineer("t-1")
	assert.True(t, errors.IsNotFound(err))

	token, err := store.GetTokenWithEngineer("t-2")
	require.NoError(t, err)
	assert.Equal(t, "admin", token.Engineer.Username)

	require.NoError(t, store.DeleteToken("t-2"))
	_, err = store.GetTokenWithEngineer("t-2")
	assert.True(t, errors.IsNotFound(err))
}

func TestDashboardAggregates(t *testing.T) {
	store := newTestStore(t)

	completed := sampleSession("s-done")
	completed.Status = "completed"
	completed.Mode = "handover"
	require.NoError(t, store.SaveSession(completed))
	require.NoError(t, store.SaveSession(sampleSession("s-pending")))

	total, err := store.CountSessions("")
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	pending, err := store.CountSessions("pending")
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending)

	byMode, err := store.SessionsByMode()
	require.NoError(t, err)
	assert.EqualValues(t, 1, byMode["handout"])
	assert.EqualValues(t, 1, byMode["handover"])

	latest, err := store.LatestSessions(1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
}
