package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Well-known action kinds. Dotted namespace: <target>.<verb>.
const (
	ActionBatchIngest      = "batch.ingest"
	ActionBatchCommit      = "batch.commit"
	ActionBatchCancel      = "batch.cancel"
	ActionPatternDelete    = "pattern.delete"
	ActionPatternTransform = "pattern.transform"
	ActionPatternThumbnail = "pattern.thumbnail"
	ActionPatternKeywords  = "pattern.keywords"
	ActionKeywordUpdate    = "keyword.update"
	ActionAdminApprove     = "admin.approve"
	ActionActivityUndo     = "activity.undo"
)

// ActivityLog is the append-only audit trail of admin mutations. An undo is a
// new row whose UndoneActivityID points at the reversed entry; the unique
// index guarantees an entry is undone at most once.
type ActivityLog struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ActorID          uuid.UUID      `gorm:"column:actor_id;type:uuid;not null;index" json:"actor_id"`
	ActionKind       string         `gorm:"column:action_kind;not null;index" json:"action_kind"`
	TargetType       string         `gorm:"column:target_type" json:"target_type"`
	TargetID         *uuid.UUID     `gorm:"column:target_id;type:uuid" json:"target_id,omitempty"`
	Description      string         `gorm:"column:description" json:"description"`
	Details          datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	UndoneActivityID *uuid.UUID     `gorm:"column:undone_activity_id;type:uuid;uniqueIndex" json:"undone_activity_id,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_log" }
