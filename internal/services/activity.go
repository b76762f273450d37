package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/stitchfolk/patternhub-backend/internal/data/repos"
	types "github.com/stitchfolk/patternhub-backend/internal/domain"
	"github.com/stitchfolk/patternhub-backend/internal/platform/apierr"
	"github.com/stitchfolk/patternhub-backend/internal/platform/dbctx"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

// RecordInput is one audit entry to append. Details is action-specific JSON;
// reversible kinds must include enough prior state to compensate from.
type RecordInput struct {
	ActorID     uuid.UUID
	ActionKind  string
	TargetType  string
	TargetID    *uuid.UUID
	Description string
	Details     []byte
}

type ActivityService interface {
	// Record appends one entry. Failures are logged and swallowed: the audit
	// trail must never fail the mutation it describes.
	Record(dbc dbctx.Context, input RecordInput)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ActivityLog, error)
	List(dbc dbctx.Context, limit, offset int) ([]*types.ActivityLog, error)

	// Undo reverses a reversible entry exactly once and appends a new entry
	// documenting the reversal.
	Undo(dbc dbctx.Context, actorID uuid.UUID, activityID uuid.UUID) (*types.ActivityLog, error)
}

// compensator reverses one reversible action kind using the original entry's
// recorded details. It returns a short description for the undo entry.
type compensator func(dbc dbctx.Context, original *types.ActivityLog) (string, error)

type activityService struct {
	log        *logger.Logger
	activities repos.ActivityLogRepo
	keywords   repos.KeywordRepo
	admins     repos.AdminUserRepo

	// Closed registry: an action kind is reversible iff it has an entry here.
	compensators map[string]compensator
}

func NewActivityService(
	baseLog *logger.Logger,
	activities repos.ActivityLogRepo,
	keywords repos.KeywordRepo,
	admins repos.AdminUserRepo,
) ActivityService {
	s := &activityService{
		log:        baseLog.With("service", "ActivityService"),
		activities: activities,
		keywords:   keywords,
		admins:     admins,
	}
	s.compensators = map[string]compensator{
		types.ActionKeywordUpdate: s.undoKeywordUpdate,
		types.ActionAdminApprove:  s.undoAdminApprove,
	}
	return s
}

func (s *activityService) Record(dbc dbctx.Context, input RecordInput) {
	entry := &types.ActivityLog{
		ID:          uuid.New(),
		ActorID:     input.ActorID,
		ActionKind:  input.ActionKind,
		TargetType:  input.TargetType,
		TargetID:    input.TargetID,
		Description: input.Description,
	}
	if len(input.Details) > 0 {
		entry.Details = datatypes.JSON(input.Details)
	}
	if _, err := s.activities.Create(dbc, []*types.ActivityLog{entry}); err != nil {
		s.log.Error("activity record failed",
			"action_kind", input.ActionKind, "actor_id", input.ActorID, "error", err)
	}
}

func (s *activityService) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ActivityLog, error) {
	entry, err := s.activities.GetByID(dbc, id)
	if err != nil {
		return nil, apierr.Persistence("activity_lookup_failed", err)
	}
	if entry == nil {
		return nil, apierr.NotFound("activity_not_found", fmt.Errorf("activity %s not found", id))
	}
	return entry, nil
}

func (s *activityService) List(dbc dbctx.Context, limit, offset int) ([]*types.ActivityLog, error) {
	entries, err := s.activities.List(dbc, limit, offset)
	if err != nil {
		return nil, apierr.Persistence("activity_list_failed", err)
	}
	return entries, nil
}

func (s *activityService) Undo(dbc dbctx.Context, actorID uuid.UUID, activityID uuid.UUID) (*types.ActivityLog, error) {
	original, err := s.GetByID(dbc, activityID)
	if err != nil {
		return nil, err
	}

	comp, reversible := s.compensators[original.ActionKind]
	if !reversible {
		return nil, apierr.Undo("action_not_reversible",
			fmt.Errorf("action kind %q is not reversible", original.ActionKind))
	}
	if original.UndoneActivityID != nil {
		// An undo entry is never itself undoable.
		return nil, apierr.Undo("cannot_undo_an_undo",
			fmt.Errorf("activity %s is itself an undo", activityID))
	}
	existing, err := s.activities.GetByUndoneActivityID(dbc, activityID)
	if err != nil {
		return nil, apierr.Persistence("undo_lookup_failed", err)
	}
	if existing != nil {
		return nil, apierr.Undo("already_undone",
			fmt.Errorf("activity %s was already undone by %s", activityID, existing.ID))
	}

	description, err := comp(dbc, original)
	if err != nil {
		return nil, err
	}

	details, _ := json.Marshal(map[string]interface{}{
		"undone_activity_id": activityID.String(),
		"undone_action_kind": original.ActionKind,
	})
	entry := &types.ActivityLog{
		ID:               uuid.New(),
		ActorID:          actorID,
		ActionKind:       types.ActionActivityUndo,
		TargetType:       original.TargetType,
		TargetID:         original.TargetID,
		Description:      description,
		Details:          datatypes.JSON(details),
		UndoneActivityID: &activityID,
	}
	if _, err := s.activities.Create(dbc, []*types.ActivityLog{entry}); err != nil {
		// Unique index on undone_activity_id closes the race between two
		// concurrent undo requests: the loser lands here.
		if isUniqueViolation(err) {
			return nil, apierr.Undo("already_undone",
				fmt.Errorf("activity %s was concurrently undone", activityID))
		}
		return nil, apierr.Persistence("undo_record_failed", err)
	}
	return entry, nil
}

// keywordUpdateDetails is the shape keyword.update entries record so the
// rename can be walked back.
type keywordUpdateDetails struct {
	KeywordID string `json:"keyword_id"`
	OldName   string `json:"old_name"`
	NewName   string `json:"new_name"`
}

func (s *activityService) undoKeywordUpdate(dbc dbctx.Context, original *types.ActivityLog) (string, error) {
	var details keywordUpdateDetails
	if err := json.Unmarshal(original.Details, &details); err != nil {
		return "", apierr.Undo("undo_details_unreadable", err)
	}
	keywordID, err := uuid.Parse(details.KeywordID)
	if err != nil {
		return "", apierr.Undo("undo_details_unreadable", err)
	}
	keyword, err := s.keywords.GetByID(dbc, keywordID)
	if err != nil {
		return "", apierr.Persistence("keyword_lookup_failed", err)
	}
	if keyword == nil {
		return "", apierr.Undo("undo_target_missing",
			fmt.Errorf("keyword %s no longer exists", keywordID))
	}
	if err := s.keywords.UpdateFields(dbc, keywordID, map[string]interface{}{
		"name": details.OldName,
	}); err != nil {
		return "", apierr.Persistence("keyword_rename_failed", err)
	}
	return fmt.Sprintf("Reverted keyword rename %q back to %q", details.NewName, details.OldName), nil
}

// adminApproveDetails is the shape admin.approve entries record.
type adminApproveDetails struct {
	AdminID string `json:"admin_id"`
	Email   string `json:"email"`
}

func (s *activityService) undoAdminApprove(dbc dbctx.Context, original *types.ActivityLog) (string, error) {
	var details adminApproveDetails
	if err := json.Unmarshal(original.Details, &details); err != nil {
		return "", apierr.Undo("undo_details_unreadable", err)
	}
	adminID, err := uuid.Parse(details.AdminID)
	if err != nil {
		return "", apierr.Undo("undo_details_unreadable", err)
	}
	admin, err := s.admins.GetByID(dbc, adminID)
	if err != nil {
		return "", apierr.Persistence("admin_lookup_failed", err)
	}
	if admin == nil {
		return "", apierr.Undo("undo_target_missing",
			fmt.Errorf("admin %s no longer exists", adminID))
	}
	if err := s.admins.UpdateFields(dbc, adminID, map[string]interface{}{
		"approved": false,
	}); err != nil {
		return "", apierr.Persistence("admin_revoke_failed", err)
	}
	return fmt.Sprintf("Revoked approval for %s", details.Email), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
