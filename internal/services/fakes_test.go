package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	types "github.com/stitchfolk/patternhub-backend/internal/domain"
	"github.com/stitchfolk/patternhub-backend/internal/platform/dbctx"
	"github.com/stitchfolk/patternhub-backend/internal/platform/gcp"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// makeTestPNG renders a small solid-color PNG for preview and thumbnail
// fixtures.
func makeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func bytesReader(data []byte) io.Reader {
	return bytes.NewReader(data)
}

func seedStagedPattern(t *testing.T, repo *fakePatternRepo, fileName string) *types.PatternRecord {
	t.Helper()
	batchID := uuid.New()
	p := &types.PatternRecord{
		ID:            uuid.New(),
		FileName:      fileName,
		FileExtension: ".oxs",
		BatchID:       &batchID,
		IsStaged:      true,
	}
	if _, err := repo.Create(dbctx.Context{Ctx: context.Background()}, []*types.PatternRecord{p}); err != nil {
		t.Fatalf("seed pattern: %v", err)
	}
	return p
}

// fakeBucket is an in-memory object store.
type fakeBucket struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr func(category gcp.BucketCategory, key string) error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func (b *fakeBucket) objectKey(category gcp.BucketCategory, key string) string {
	return string(category) + "/" + key
}

func (b *fakeBucket) UploadFile(ctx context.Context, category gcp.BucketCategory, key string, file io.Reader) error {
	if b.uploadErr != nil {
		if err := b.uploadErr(category, key); err != nil {
			return err
		}
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[b.objectKey(category, key)] = data
	return nil
}

func (b *fakeBucket) DownloadFile(ctx context.Context, category gcp.BucketCategory, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[b.objectKey(category, key)]
	if !ok {
		return nil, fmt.Errorf("object %s not found", b.objectKey(category, key))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBucket) DeleteFile(ctx context.Context, category gcp.BucketCategory, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, b.objectKey(category, key))
	return nil
}

func (b *fakeBucket) ListKeys(ctx context.Context, category gcp.BucketCategory, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	full := b.objectKey(category, prefix)
	for k := range b.objects {
		if strings.HasPrefix(k, full) {
			keys = append(keys, strings.TrimPrefix(k, string(category)+"/"))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *fakeBucket) GetPublicURL(category gcp.BucketCategory, key string) string {
	return "https://cdn.test/" + string(category) + "/" + key
}

func (b *fakeBucket) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// fakePatternRepo keeps pattern rows in insertion order.
type fakePatternRepo struct {
	rows           map[uuid.UUID]*types.PatternRecord
	order          []uuid.UUID
	committedNames []string

	createErr error
	updateErr error
}

func newFakePatternRepo() *fakePatternRepo {
	return &fakePatternRepo{rows: map[uuid.UUID]*types.PatternRecord{}}
}

func (r *fakePatternRepo) Create(dbc dbctx.Context, patterns []*types.PatternRecord) ([]*types.PatternRecord, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, p := range patterns {
		cp := *p
		r.rows[p.ID] = &cp
		r.order = append(r.order, p.ID)
	}
	return patterns, nil
}

func (r *fakePatternRepo) GetByID(dbc dbctx.Context, patternID uuid.UUID) (*types.PatternRecord, error) {
	p, ok := r.rows[patternID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePatternRepo) GetByIDs(dbc dbctx.Context, patternIDs []uuid.UUID) ([]*types.PatternRecord, error) {
	var out []*types.PatternRecord
	for _, id := range patternIDs {
		if p, ok := r.rows[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePatternRepo) GetByBatchID(dbc dbctx.Context, batchID uuid.UUID) ([]*types.PatternRecord, error) {
	var out []*types.PatternRecord
	for _, id := range r.order {
		p, ok := r.rows[id]
		if !ok || p.BatchID == nil || *p.BatchID != batchID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakePatternRepo) UpdateFields(dbc dbctx.Context, patternID uuid.UUID, fields map[string]interface{}) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	p, ok := r.rows[patternID]
	if !ok {
		return fmt.Errorf("pattern %s not found", patternID)
	}
	for k, v := range fields {
		switch k {
		case "file_key":
			p.FileKey = v.(string)
		case "file_url":
			p.FileURL = v.(string)
		case "thumbnail_key":
			s := v.(string)
			p.ThumbnailKey = &s
		case "thumbnail_url":
			s := v.(string)
			p.ThumbnailURL = &s
		case "embedding":
			if v == nil {
				p.Embedding = nil
			}
		case "is_staged":
			p.IsStaged = v.(bool)
		}
	}
	return nil
}

func (r *fakePatternRepo) ClearStagedByBatchID(dbc dbctx.Context, batchID uuid.UUID) error {
	for _, p := range r.rows {
		if p.BatchID != nil && *p.BatchID == batchID {
			p.IsStaged = false
		}
	}
	return nil
}

func (r *fakePatternRepo) FullDeleteByIDs(dbc dbctx.Context, patternIDs []uuid.UUID) error {
	for _, id := range patternIDs {
		delete(r.rows, id)
	}
	return nil
}

func (r *fakePatternRepo) ListCommittedNames(dbc dbctx.Context, limit, offset int) ([]string, error) {
	names := append([]string{}, r.committedNames...)
	for _, id := range r.order {
		if p, ok := r.rows[id]; ok && !p.IsStaged {
			names = append(names, p.FileName)
		}
	}
	sort.Strings(names)
	if offset >= len(names) {
		return nil, nil
	}
	end := offset + limit
	if end > len(names) {
		end = len(names)
	}
	return names[offset:end], nil
}

// fakeBatchRepo keeps batch rows keyed by id.
type fakeBatchRepo struct {
	rows map[uuid.UUID]*types.Batch
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{rows: map[uuid.UUID]*types.Batch{}}
}

func (r *fakeBatchRepo) Create(dbc dbctx.Context, batches []*types.Batch) ([]*types.Batch, error) {
	for _, b := range batches {
		cp := *b
		r.rows[b.ID] = &cp
	}
	return batches, nil
}

func (r *fakeBatchRepo) GetByID(dbc dbctx.Context, batchID uuid.UUID) (*types.Batch, error) {
	b, ok := r.rows[batchID]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBatchRepo) LockByID(dbc dbctx.Context, batchID uuid.UUID) (*types.Batch, error) {
	return r.GetByID(dbc, batchID)
}

func (r *fakeBatchRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.Batch, error) {
	var out []*types.Batch
	for _, b := range r.rows {
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeBatchRepo) UpdateFields(dbc dbctx.Context, batchID uuid.UUID, fields map[string]interface{}) error {
	b, ok := r.rows[batchID]
	if !ok {
		return fmt.Errorf("batch %s not found", batchID)
	}
	for k, v := range fields {
		switch k {
		case "status":
			b.Status = v.(string)
		case "uploaded_count":
			b.UploadedCount = v.(int)
		case "skipped_count":
			b.SkippedCount = v.(int)
		case "error_count":
			b.ErrorCount = v.(int)
		}
	}
	return nil
}

// fakeUploadLogRepo enforces one log per batch, like the real unique index.
type fakeUploadLogRepo struct {
	logs      map[uuid.UUID]*types.UploadLog
	createErr error
}

func newFakeUploadLogRepo() *fakeUploadLogRepo {
	return &fakeUploadLogRepo{logs: map[uuid.UUID]*types.UploadLog{}}
}

func (r *fakeUploadLogRepo) Create(dbc dbctx.Context, logs []*types.UploadLog) ([]*types.UploadLog, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, l := range logs {
		if _, exists := r.logs[l.BatchID]; exists {
			return nil, fmt.Errorf("duplicate key value violates unique constraint")
		}
		cp := *l
		r.logs[l.BatchID] = &cp
	}
	return logs, nil
}

func (r *fakeUploadLogRepo) GetByBatchID(dbc dbctx.Context, batchID uuid.UUID) (*types.UploadLog, error) {
	l, ok := r.logs[batchID]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

// fakeKeywordRepo keeps keywords and the pattern association set.
type fakeKeywordRepo struct {
	keywords  map[uuid.UUID]*types.Keyword
	assocs    map[string]bool
	attachErr func(patternID, keywordID uuid.UUID) error
}

func newFakeKeywordRepo() *fakeKeywordRepo {
	return &fakeKeywordRepo{
		keywords: map[uuid.UUID]*types.Keyword{},
		assocs:   map[string]bool{},
	}
}

func assocKey(patternID, keywordID uuid.UUID) string {
	return patternID.String() + "|" + keywordID.String()
}

func (r *fakeKeywordRepo) Create(dbc dbctx.Context, keywords []*types.Keyword) ([]*types.Keyword, error) {
	for _, k := range keywords {
		cp := *k
		r.keywords[k.ID] = &cp
	}
	return keywords, nil
}

func (r *fakeKeywordRepo) GetByID(dbc dbctx.Context, keywordID uuid.UUID) (*types.Keyword, error) {
	k, ok := r.keywords[keywordID]
	if !ok {
		return nil, nil
	}
	cp := *k
	return &cp, nil
}

func (r *fakeKeywordRepo) GetByIDs(dbc dbctx.Context, keywordIDs []uuid.UUID) ([]*types.Keyword, error) {
	var out []*types.Keyword
	for _, id := range keywordIDs {
		if k, ok := r.keywords[id]; ok {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeKeywordRepo) UpdateFields(dbc dbctx.Context, keywordID uuid.UUID, fields map[string]interface{}) error {
	k, ok := r.keywords[keywordID]
	if !ok {
		return fmt.Errorf("keyword %s not found", keywordID)
	}
	if name, present := fields["name"]; present {
		newName := name.(string)
		for id, other := range r.keywords {
			if id != keywordID && other.Name == newName {
				return fmt.Errorf("duplicate key value violates unique constraint")
			}
		}
		k.Name = newName
	}
	return nil
}

func (r *fakeKeywordRepo) Attach(dbc dbctx.Context, patternID, keywordID uuid.UUID) (bool, error) {
	if r.attachErr != nil {
		if err := r.attachErr(patternID, keywordID); err != nil {
			return false, err
		}
	}
	key := assocKey(patternID, keywordID)
	if r.assocs[key] {
		return false, nil
	}
	r.assocs[key] = true
	return true, nil
}

func (r *fakeKeywordRepo) Detach(dbc dbctx.Context, patternID, keywordID uuid.UUID) (bool, error) {
	key := assocKey(patternID, keywordID)
	if !r.assocs[key] {
		return false, nil
	}
	delete(r.assocs, key)
	return true, nil
}

func (r *fakeKeywordRepo) ListByPatternID(dbc dbctx.Context, patternID uuid.UUID) ([]*types.Keyword, error) {
	var out []*types.Keyword
	for id, k := range r.keywords {
		if r.assocs[assocKey(patternID, id)] {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeKeywordRepo) CountAssociations(dbc dbctx.Context, patternID, keywordID uuid.UUID) (int64, error) {
	if r.assocs[assocKey(patternID, keywordID)] {
		return 1, nil
	}
	return 0, nil
}

// fakeActivityLogRepo enforces the unique undone_activity_id constraint like
// the real index does.
type fakeActivityLogRepo struct {
	entries []*types.ActivityLog
}

func newFakeActivityLogRepo() *fakeActivityLogRepo {
	return &fakeActivityLogRepo{}
}

func (r *fakeActivityLogRepo) Create(dbc dbctx.Context, entries []*types.ActivityLog) ([]*types.ActivityLog, error) {
	for _, e := range entries {
		if e.UndoneActivityID != nil {
			for _, existing := range r.entries {
				if existing.UndoneActivityID != nil && *existing.UndoneActivityID == *e.UndoneActivityID {
					return nil, fmt.Errorf("duplicate key value violates unique constraint")
				}
			}
		}
		cp := *e
		r.entries = append(r.entries, &cp)
	}
	return entries, nil
}

func (r *fakeActivityLogRepo) GetByID(dbc dbctx.Context, entryID uuid.UUID) (*types.ActivityLog, error) {
	for _, e := range r.entries {
		if e.ID == entryID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeActivityLogRepo) GetByUndoneActivityID(dbc dbctx.Context, originalID uuid.UUID) (*types.ActivityLog, error) {
	for _, e := range r.entries {
		if e.UndoneActivityID != nil && *e.UndoneActivityID == originalID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeActivityLogRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.ActivityLog, error) {
	out := make([]*types.ActivityLog, 0, len(r.entries))
	for _, e := range r.entries {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

// fakeAdminUserRepo keeps admin rows keyed by id and email.
type fakeAdminUserRepo struct {
	rows map[uuid.UUID]*types.AdminUser
}

func newFakeAdminUserRepo() *fakeAdminUserRepo {
	return &fakeAdminUserRepo{rows: map[uuid.UUID]*types.AdminUser{}}
}

func (r *fakeAdminUserRepo) Create(dbc dbctx.Context, admins []*types.AdminUser) ([]*types.AdminUser, error) {
	for _, a := range admins {
		for _, existing := range r.rows {
			if existing.Email == a.Email {
				return nil, fmt.Errorf("duplicate key value violates unique constraint")
			}
		}
		cp := *a
		r.rows[a.ID] = &cp
	}
	return admins, nil
}

func (r *fakeAdminUserRepo) GetByID(dbc dbctx.Context, adminID uuid.UUID) (*types.AdminUser, error) {
	a, ok := r.rows[adminID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAdminUserRepo) GetByEmail(dbc dbctx.Context, email string) (*types.AdminUser, error) {
	for _, a := range r.rows {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeAdminUserRepo) UpdateFields(dbc dbctx.Context, adminID uuid.UUID, fields map[string]interface{}) error {
	a, ok := r.rows[adminID]
	if !ok {
		return fmt.Errorf("admin %s not found", adminID)
	}
	if v, present := fields["approved"]; present {
		a.Approved = v.(bool)
	}
	return nil
}

// recordingActivity captures Record calls for assertion without a database.
type recordingActivity struct {
	records []RecordInput
}

func (a *recordingActivity) Record(dbc dbctx.Context, input RecordInput) {
	a.records = append(a.records, input)
}

func (a *recordingActivity) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ActivityLog, error) {
	return nil, nil
}

func (a *recordingActivity) List(dbc dbctx.Context, limit, offset int) ([]*types.ActivityLog, error) {
	return nil, nil
}

func (a *recordingActivity) Undo(dbc dbctx.Context, actorID uuid.UUID, activityID uuid.UUID) (*types.ActivityLog, error) {
	return nil, nil
}
