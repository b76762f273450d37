package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stitchfolk/patternhub-backend/internal/platform/dbctx"
)

func TestDuplicateDetectorPartition(t *testing.T) {
	patterns := newFakePatternRepo()
	patterns.committedNames = []string{"Rose.oxs", "tulip.oxs"}

	det := NewDuplicateDetector(testLogger(t), patterns)
	dbc := dbctx.Context{Ctx: context.Background()}

	candidates := []CandidateEntry{
		{BaseName: "rose", Extension: ".oxs"},
		{BaseName: "daisy", Extension: ".oxs"},
		{BaseName: "TULIP", Extension: ".oxs"},
		{BaseName: "ivy", Extension: ".oxs"},
	}
	fresh, skipped, err := det.Partition(dbc, candidates)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}

	if len(fresh) != 2 {
		t.Fatalf("fresh: want=2 got=%d (%v)", len(fresh), fresh)
	}
	// Non-duplicates keep their original order.
	if fresh[0].BaseName != "daisy" || fresh[1].BaseName != "ivy" {
		t.Fatalf("fresh order: got %q then %q", fresh[0].BaseName, fresh[1].BaseName)
	}
	if len(skipped) != 2 {
		t.Fatalf("skipped: want=2 got=%d", len(skipped))
	}
	for _, s := range skipped {
		if s.Reason != SkipReasonDuplicate {
			t.Fatalf("skip reason: want=%q got=%q", SkipReasonDuplicate, s.Reason)
		}
	}
	if skipped[0].Name != "rose.oxs" || skipped[1].Name != "TULIP.oxs" {
		t.Fatalf("skipped names: %v", skipped)
	}
}

func TestDuplicateDetectorPagesThroughCatalog(t *testing.T) {
	patterns := newFakePatternRepo()
	for i := 0; i < dedupePageSize+50; i++ {
		patterns.committedNames = append(patterns.committedNames, fmt.Sprintf("chart-%04d.oxs", i))
	}

	det := NewDuplicateDetector(testLogger(t), patterns)
	dbc := dbctx.Context{Ctx: context.Background()}

	// A name from the second page must still be flagged.
	fresh, skipped, err := det.Partition(dbc, []CandidateEntry{
		{BaseName: fmt.Sprintf("chart-%04d", dedupePageSize+10), Extension: ".oxs"},
		{BaseName: "brand-new", Extension: ".oxs"},
	})
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if len(fresh) != 1 || fresh[0].BaseName != "brand-new" {
		t.Fatalf("fresh: %v", fresh)
	}
	if len(skipped) != 1 {
		t.Fatalf("skipped: %v", skipped)
	}
}

func TestDuplicateDetectorIgnoresStagedPatterns(t *testing.T) {
	patterns := newFakePatternRepo()
	seedStagedPattern(t, patterns, "pending.oxs")

	det := NewDuplicateDetector(testLogger(t), patterns)
	fresh, skipped, err := det.Partition(dbctx.Context{Ctx: context.Background()}, []CandidateEntry{
		{BaseName: "pending", Extension: ".oxs"},
	})
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	// Staged rows are not part of the committed catalog, so the same name in
	// a concurrent batch passes through; the collision surfaces later.
	if len(fresh) != 1 || len(skipped) != 0 {
		t.Fatalf("fresh=%v skipped=%v", fresh, skipped)
	}
}
