package services

import (
	"strings"

	"github.com/stitchfolk/patternhub-backend/internal/data/repos"
	types "github.com/stitchfolk/patternhub-backend/internal/domain"
	"github.com/stitchfolk/patternhub-backend/internal/platform/dbctx"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

const dedupePageSize = 1000

const SkipReasonDuplicate = "Duplicate"

// DuplicateDetector partitions archive candidates into fresh entries and
// duplicates of the committed catalog. The name set is a point-in-time
// snapshot: concurrent batches staging the same new name are only caught
// later, at insert time, as a per-item error.
type DuplicateDetector interface {
	Partition(dbc dbctx.Context, candidates []CandidateEntry) (fresh []CandidateEntry, skipped []types.SkippedItem, err error)
}

type duplicateDetector struct {
	log      *logger.Logger
	patterns repos.PatternRepo
}

func NewDuplicateDetector(log *logger.Logger, patterns repos.PatternRepo) DuplicateDetector {
	return &duplicateDetector{
		log:      log.With("service", "DuplicateDetector"),
		patterns: patterns,
	}
}

func (d *duplicateDetector) Partition(dbc dbctx.Context, candidates []CandidateEntry) ([]CandidateEntry, []types.SkippedItem, error) {
	existing, err := d.committedNameSet(dbc)
	if err != nil {
		return nil, nil, err
	}

	fresh := make([]CandidateEntry, 0, len(candidates))
	var skipped []types.SkippedItem
	for _, c := range candidates {
		if existing[normalizePatternName(c.FullName())] {
			skipped = append(skipped, types.SkippedItem{
				Name:   c.FullName(),
				Reason: SkipReasonDuplicate,
			})
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh, skipped, nil
}

// committedNameSet pages through the committed catalog rather than loading it
// in one query; a full scan per ingestion run is the accepted cost.
func (d *duplicateDetector) committedNameSet(dbc dbctx.Context) (map[string]bool, error) {
	set := map[string]bool{}
	for offset := 0; ; offset += dedupePageSize {
		names, err := d.patterns.ListCommittedNames(dbc, dedupePageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			set[normalizePatternName(n)] = true
		}
		if len(names) < dedupePageSize {
			return set, nil
		}
	}
}

// normalizePatternName makes the duplicate check case-insensitive, so
// "Rose.OXS" collides with "rose.oxs".
func normalizePatternName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
