// model.go this code defines the data model for the application
package datastore

import (
	"time"

	"github.com/toolkitvision/toolcheck-go/internal/detection"
)

// Session represents one hand-out or hand-over flow: the expected tool
// set, the completion threshold, the derived status and the append-only
// analysis log.
type Session struct {
	ID              uint     `gorm:"primaryKey"`
	SessionID       string   `gorm:"uniqueIndex;not null"`
	Mode            string   `gorm:"type:varchar(20);index"` // "handout" or "handover"
	ExpectedToolIDs []string `gorm:"serializer:json"`        // insertion-ordered, deduplicated catalog ids
	Threshold       float64
	Status          string     `gorm:"type:varchar(20);index:idx_sessions_status"` // "pending" or "completed"
	EngineerID      *uint      `gorm:"index"`
	Engineer        *Engineer  `gorm:"foreignKey:EngineerID"`
	CreatedAt       time.Time  `gorm:"index:idx_sessions_created_at"`
	Analyses        []Analysis `gorm:"foreignKey:SessionID;references:SessionID;constraint:OnDelete:CASCADE"`
}

// Analysis is one detection run against a session. Rows are append-only,
// never mutated after creation.
type Analysis struct {
	ID               uint                  `gorm:"primaryKey"`
	RequestID        string                `gorm:"uniqueIndex;not null"`
	SessionID        string                `gorm:"index;not null"`
	ImageFilename    string                // stored artifact name under the upload directory
	Detected         []detection.Detection `gorm:"serializer:json"`
	MatchedToolIDs   []string              `gorm:"serializer:json"`
	MissingToolIDs   []string              `gorm:"serializer:json"`
	UnexpectedLabels []string              `gorm:"serializer:json"`
	MatchRatio       float64
	BelowThreshold   bool
	CreatedAt        time.Time `gorm:"index"`
}

// Engineer is an operator account.
type Engineer struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"type:varchar(20)"` // "engineer" or "admin"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccessToken is a bearer token issued to an engineer. One active token
// per engineer, older tokens are removed on issue.
type AccessToken struct {
	ID         uint   `gorm:"primaryKey"`
	Token      string `gorm:"uniqueIndex;not null"`
	EngineerID uint   `gorm:"index;not null"`
	Engineer   Engineer
	CreatedAt  time.Time
}
