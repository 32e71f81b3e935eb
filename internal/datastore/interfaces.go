// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/toolkitvision/toolcheck-go/internal/conf"
	"github.com/toolkitvision/toolcheck-go/internal/errors"
)

// Interface abstracts the underlying database implementation and defines
// the operations the rest of the application performs.
type Interface interface {
	Open() error
	Close() error

	// sessions
	SaveSession(session *Session) error
	GetSession(sessionID string) (Session, error)
	ListSessions() ([]Session, error)
	// AppendAnalysis inserts the analysis row and updates the owning
	// session's status in a single transaction.
	AppendAnalysis(analysis *Analysis, status string) error

	// engineers and tokens
	GetEngineerByUsername(username string) (Engineer, error)
	SaveEngineer(engineer *Engineer) error
	IssueToken(token *AccessToken) error
	DeleteToken(tokenValue string) error
	GetTokenWithEngineer(tokenValue string) (AccessToken, error)

	// dashboard aggregates
	CountSessions(status string) (int64, error)
	CountEngineers() (int64, error)
	CountAnalyses() (int64, error)
	SessionsByMode() (map[string]int64, error)
	LatestSessions(limit int) ([]Session, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// New creates a new datastore instance based on the enabled output.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// SaveSession inserts a new session record.
func (ds *DataStore) SaveSession(session *Session) error {
	if err := ds.DB.Create(session).Error; err != nil {
		return errors.New(fmt.Errorf("saving session: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("session_id", session.SessionID).
			Build()
	}
	return nil
}

// GetSession retrieves a session with its engineer and full analysis
// history in chronological order.
func (ds *DataStore) GetSession(sessionID string) (Session, error) {
	var session Session
	err := ds.DB.
		Preload("Engineer").
		Preload("Analyses", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("session_id = ?", sessionID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Session{}, errors.NotFoundError("session %s not found", sessionID)
		}
		return Session{}, errors.New(fmt.Errorf("getting session: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("session_id", sessionID).
			Build()
	}
	return session, nil
}

// ListSessions returns all sessions, newest first, with analyses preloaded.
func (ds *DataStore) ListSessions() ([]Session, error) {
	var sessions []Session
	err := ds.DB.
		Preload("Engineer").
		Preload("Analyses", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Order("created_at DESC, id DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, errors.New(fmt.Errorf("listing sessions: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return sessions, nil
}

// AppendAnalysis appends the analysis and recomputes the session status as
// one logical unit, so a concurrent reader never observes the analysis
// without the matching status.
func (ds *DataStore) AppendAnalysis(analysis *Analysis, status string) error {
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		// Existence is checked explicitly: the MySQL driver reports rows
		// changed rather than rows matched, so a status update that
		// leaves the value unchanged would be indistinguishable from a
		// missing session if inferred from RowsAffected.
		var count int64
		if err := tx.Model(&Session{}).
			Where("session_id = ?", analysis.SessionID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Create(analysis).Error; err != nil {
			return err
		}
		return tx.Model(&Session{}).
			Where("session_id = ?", analysis.SessionID).
			Update("status", status).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFoundError("session %s not found", analysis.SessionID)
		}
		return errors.New(fmt.Errorf("appending analysis: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("session_id", analysis.SessionID).
			Context("request_id", analysis.RequestID).
			Build()
	}
	return nil
}

// GetEngineerByUsername looks up an engineer account.
func (ds *DataStore) GetEngineerByUsername(username string) (Engineer, error) {
	var engineer Engineer
	err := ds.DB.Where("username = ?", username).First(&engineer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Engineer{}, errors.NotFoundError("engineer %s not found", username)
		}
		return Engineer{}, errors.New(fmt.Errorf("getting engineer: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return engineer, nil
}

// SaveEngineer inserts or updates an engineer account.
func (ds *DataStore) SaveEngineer(engineer *Engineer) error {
	if err := ds.DB.Save(engineer).Error; err != nil {
		return errors.New(fmt.Errorf("saving engineer: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("username", engineer.Username).
			Build()
	}
	return nil
}

// IssueToken stores a new token after removing any previous tokens of the
// same engineer, in one transaction.
func (ds *DataStore) IssueToken(token *AccessToken) error {
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("engineer_id = ?", token.EngineerID).Delete(&AccessToken{}).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
	if err != nil {
		return errors.New(fmt.Errorf("issuing token: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// DeleteToken revokes a token. Deleting an unknown token is not an error.
func (ds *DataStore) DeleteToken(tokenValue string) error {
	if err := ds.DB.Where("token = ?", tokenValue).Delete(&AccessToken{}).Error; err != nil {
		return errors.New(fmt.Errorf("deleting token: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// GetTokenWithEngineer resolves a token to its engineer.
func (ds *DataStore) GetTokenWithEngineer(tokenValue string) (AccessToken, error) {
	var token AccessToken
	err := ds.DB.Preload("Engineer").Where("token = ?", tokenValue).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AccessToken{}, errors.NotFoundError("token not found")
		}
		return AccessToken{}, errors.New(fmt.Errorf("getting token: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return token, nil
}

// CountSessions counts sessions, optionally filtered by status.
func (ds *DataStore) CountSessions(status string) (int64, error) {
	var count int64
	query := ds.DB.Model(&Session{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, errors.New(fmt.Errorf("counting sessions: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return count, nil
}

// CountEngineers counts engineer accounts.
func (ds *DataStore) CountEngineers() (int64, error) {
	var count int64
	if err := ds.DB.Model(&Engineer{}).Count(&count).Error; err != nil {
		return 0, errors.New(fmt.Errorf("counting engineers: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return count, nil
}

// CountAnalyses counts analysis records across all sessions.
func (ds *DataStore) CountAnalyses() (int64, error) {
	var count int64
	if err := ds.DB.Model(&Analysis{}).Count(&count).Error; err != nil {
		return 0, errors.New(fmt.Errorf("counting analyses: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return count, nil
}

// SessionsByMode returns the session count per mode.
func (ds *DataStore) SessionsByMode() (map[string]int64, error) {
	var rows []struct {
		Mode  string
		Count int64
	}
	err := ds.DB.Model(&Session{}).
		Select("mode, count(*) as count").
		Group("mode").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.New(fmt.Errorf("grouping sessions by mode: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.Mode] = row.Count
	}
	return result, nil
}

// LatestSessions returns the most recent sessions without their analyses.
func (ds *DataStore) LatestSessions(limit int) ([]Session, error) {
	var sessions []Session
	err := ds.DB.
		Preload("Engineer").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, errors.New(fmt.Errorf("listing latest sessions: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return sessions, nil
}

// performAutoMigration runs gorm auto-migration for all models.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Session{}, &Analysis{}, &Engineer{}, &AccessToken{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}
	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}
	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}
