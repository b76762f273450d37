package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/stitchfolk/patternhub-backend/internal/domain"
)

func SeedAdmin(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.AdminUser {
	tb.Helper()
	a := &types.AdminUser{
		ID:       uuid.New(),
		Email:    email,
		Password: "pw",
		Name:     "Admin",
		Approved: true,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed admin: %v", err)
	}
	return a
}

func SeedBatch(tb testing.TB, ctx context.Context, tx *gorm.DB, status string) *types.Batch {
	tb.Helper()
	b := &types.Batch{
		ID:         uuid.New(),
		SourceName: "vendor.zip",
		UploadedAt: time.Now().UTC(),
		Status:     status,
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed batch: %v", err)
	}
	return b
}

func SeedPattern(tb testing.TB, ctx context.Context, tx *gorm.DB, batchID *uuid.UUID, fileName string, staged bool) *types.PatternRecord {
	tb.Helper()
	p := &types.PatternRecord{
		ID:            uuid.New(),
		FileName:      fileName,
		FileExtension: ".oxs",
		FileKey:       "pattern/" + fileName,
		FileURL:       "https://cdn.test/pattern/" + fileName,
		BatchID:       batchID,
		IsStaged:      staged,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed pattern: %v", err)
	}
	return p
}

func SeedKeyword(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Keyword {
	tb.Helper()
	k := &types.Keyword{ID: uuid.New(), Name: name}
	if err := tx.WithContext(ctx).Create(k).Error; err != nil {
		tb.Fatalf("seed keyword: %v", err)
	}
	return k
}

func SeedActivity(tb testing.TB, ctx context.Context, tx *gorm.DB, actorID uuid.UUID, kind string, details []byte) *types.ActivityLog {
	tb.Helper()
	e := &types.ActivityLog{
		ID:         uuid.New(),
		ActorID:    actorID,
		ActionKind: kind,
		Details:    datatypes.JSON(details),
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed activity: %v", err)
	}
	return e
}
