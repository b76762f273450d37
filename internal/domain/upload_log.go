package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UploadLog is the immutable per-batch ingestion report.
type UploadLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BatchID   uuid.UUID      `gorm:"column:batch_id;type:uuid;not null;uniqueIndex" json:"batch_id"`
	Batch     *Batch         `gorm:"foreignKey:BatchID;references:ID" json:"batch,omitempty"`
	Uploaded  datatypes.JSON `gorm:"column:uploaded;type:jsonb" json:"uploaded"`
	Skipped   datatypes.JSON `gorm:"column:skipped;type:jsonb" json:"skipped"`
	Errors    datatypes.JSON `gorm:"column:errors;type:jsonb" json:"errors"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (UploadLog) TableName() string { return "upload_log" }

// Entry shapes serialized into UploadLog JSONB columns.

type UploadedItem struct {
	Name         string    `json:"name"`
	ID           uuid.UUID `json:"id"`
	HadThumbnail bool      `json:"had_thumbnail"`
}

type SkippedItem struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type ErroredItem struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}
