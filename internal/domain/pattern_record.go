package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PatternRecord is one catalog pattern. Staged rows belong to a batch under
// review; committed rows are publicly visible. Embedding is computed from the
// thumbnail and must be cleared whenever the thumbnail changes.
type PatternRecord struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FileName      string         `gorm:"column:file_name;not null;index" json:"file_name"`
	FileExtension string         `gorm:"column:file_extension;not null" json:"file_extension"`
	Author        *string        `gorm:"column:author" json:"author,omitempty"`
	FileKey       string         `gorm:"column:file_key" json:"file_key"`
	FileURL       string         `gorm:"column:file_url" json:"file_url"`
	ThumbnailKey  *string        `gorm:"column:thumbnail_key" json:"thumbnail_key,omitempty"`
	ThumbnailURL  *string        `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`
	Embedding     datatypes.JSON `gorm:"column:embedding;type:jsonb" json:"embedding,omitempty"`
	BatchID       *uuid.UUID     `gorm:"column:batch_id;type:uuid;index" json:"batch_id,omitempty"`
	Batch         *Batch         `gorm:"foreignKey:BatchID;references:ID" json:"batch,omitempty"`
	IsStaged      bool           `gorm:"column:is_staged;not null;default:true;index" json:"is_staged"`
	Keywords      []*Keyword     `gorm:"many2many:pattern_keyword;joinForeignKey:PatternID;joinReferences:KeywordID" json:"keywords,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (PatternRecord) TableName() string { return "pattern" }
