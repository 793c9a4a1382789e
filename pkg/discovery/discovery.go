// Package discovery resolves a study identifier to the slice files that make it up.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrInvalidStudyID is returned for identifiers that are not a single path element
	ErrInvalidStudyID = errors.New("invalid study id")

	// ErrStudyNotFound is returned when no study exists for an identifier
	ErrStudyNotFound = errors.New("study not found")
)

// Resolver maps an opaque study identifier to slice file locations
type Resolver interface {
	Resolve(ctx context.Context, studyID string) ([]string, error)
}

// DirResolver serves studies stored as one directory per study under Root
type DirResolver struct {
	Root string
}

// Resolve lists every regular file in Root/studyID in lexical order. Hidden
// files are ignored.
func (d DirResolver) Resolve(ctx context.Context, studyID string) ([]string, error) {
	if err := validateStudyID(studyID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(d.Root, studyID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrStudyNotFound, studyID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing study %s: %w", studyID, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s has no slice files", ErrStudyNotFound, studyID)
	}
	sort.Strings(files)
	return files, nil
}

func validateStudyID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidStudyID, id)
	}
	return nil
}
