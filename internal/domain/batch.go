package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	BatchStatusStaged    = "staged"
	BatchStatusCommitted = "committed"
	BatchStatusCancelled = "cancelled"
)

// Batch is one ingestion run. Status moves staged -> committed or
// staged -> cancelled, never out of a terminal state. Rows are never deleted.
type Batch struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SourceName    string    `gorm:"column:source_name;not null" json:"source_name"`
	UploadedAt    time.Time `gorm:"column:uploaded_at;not null;default:now()" json:"uploaded_at"`
	Status        string    `gorm:"column:status;not null;default:'staged';index" json:"status"`
	UploadedCount int       `gorm:"column:uploaded_count;not null;default:0" json:"uploaded_count"`
	SkippedCount  int       `gorm:"column:skipped_count;not null;default:0" json:"skipped_count"`
	ErrorCount    int       `gorm:"column:error_count;not null;default:0" json:"error_count"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Batch) TableName() string { return "batch" }
