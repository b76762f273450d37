package domain

import (
	"time"

	"github.com/google/uuid"
)

type Keyword struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Keyword) TableName() string { return "keyword" }

// PatternKeyword is the pattern<->keyword association. The composite unique
// index is what makes bulk apply idempotent.
type PatternKeyword struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PatternID uuid.UUID `gorm:"column:pattern_id;type:uuid;not null;uniqueIndex:idx_pattern_keyword" json:"pattern_id"`
	KeywordID uuid.UUID `gorm:"column:keyword_id;type:uuid;not null;uniqueIndex:idx_pattern_keyword" json:"keyword_id"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (PatternKeyword) TableName() string { return "pattern_keyword" }
