package services

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/stitchfolk/patternhub-backend/internal/platform/apierr"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

// CandidateEntry is one pattern file pulled out of a vendor archive, with the
// bytes of a same-basename preview image when the archive carried one.
type CandidateEntry struct {
	BaseName  string
	Extension string
	Content   []byte
	Companion []byte
}

// FullName is the file name the candidate would be cataloged under.
func (c CandidateEntry) FullName() string {
	return c.BaseName + c.Extension
}

type ArchiveService interface {
	// Extract validates raw as a zip archive and returns its pattern-file
	// candidates in archive order. Rejects with a validation error before
	// any storage or database write can happen.
	Extract(raw []byte) ([]CandidateEntry, error)
}

var companionExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

type archiveService struct {
	log        *logger.Logger
	patternExt string
}

func NewArchiveService(log *logger.Logger, patternExt string) ArchiveService {
	ext := strings.ToLower(strings.TrimSpace(patternExt))
	if ext == "" {
		ext = ".oxs"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &archiveService{
		log:        log.With("service", "ArchiveService"),
		patternExt: ext,
	}
}

func (s *archiveService) Extract(raw []byte) ([]CandidateEntry, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, apierr.Validation("not_an_archive", fmt.Errorf("upload is not a readable zip archive: %w", err))
	}

	// First pass: collect companion previews keyed by normalized base name,
	// so a preview can live anywhere in the archive.
	companions := map[string][]byte{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || isJunkEntry(f.Name) {
			continue
		}
		base := path.Base(f.Name)
		ext := strings.ToLower(path.Ext(base))
		if !companionExtensions[ext] {
			continue
		}
		key := strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))
		data, err := readZipEntry(f)
		if err != nil {
			s.log.Warn("skipping unreadable preview entry", "entry", f.Name, "error", err)
			continue
		}
		companions[key] = data
	}

	// Second pass: pattern files, in archive order.
	var candidates []CandidateEntry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || isJunkEntry(f.Name) {
			continue
		}
		base := path.Base(f.Name)
		ext := path.Ext(base)
		if !strings.EqualFold(ext, s.patternExt) {
			continue
		}
		data, err := readZipEntry(f)
		if err != nil {
			return nil, apierr.Validation("not_an_archive", fmt.Errorf("corrupt archive entry %q: %w", f.Name, err))
		}
		stem := strings.TrimSuffix(base, ext)
		candidates = append(candidates, CandidateEntry{
			BaseName:  stem,
			Extension: strings.ToLower(ext),
			Content:   data,
			Companion: companions[strings.ToLower(stem)],
		})
	}

	if len(candidates) == 0 {
		return nil, apierr.Validation("no_matching_files",
			fmt.Errorf("archive contains no %s pattern files", s.patternExt))
	}
	return candidates, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// isJunkEntry filters archive noise added by OS archivers.
func isJunkEntry(name string) bool {
	clean := strings.TrimPrefix(name, "./")
	if strings.HasPrefix(clean, "__MACOSX/") {
		return true
	}
	base := path.Base(clean)
	return strings.HasPrefix(base, ".") || base == "Thumbs.db"
}
