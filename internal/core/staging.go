package core

// staging.go writes uploaded bytes to disk so extractors can work on a path.
//
// Every staged file is paired with a release function. The pipeline defers
// release immediately after staging, so the file is gone when Run returns,
// whether the run succeeded, failed or panicked.

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultExtension is used when the source filename has no usable extension.
const DefaultExtension = ".xlsx"

// stagedPrefix prefixes every staged file name.
const stagedPrefix = "sheetflow-"

var extensionRegex = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// StagedFile is an uploaded payload persisted to a uniquely named temp file.
type StagedFile struct {
	Path string
}

// StageFile writes data to dir (os.TempDir() when empty) under a unique name
// that keeps the extension of sourceName.
func StageFile(dir, sourceName string, data []byte) (*StagedFile, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	path := filepath.Join(dir, stagedPrefix+uuid.NewString()+stagedExtension(sourceName))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	return &StagedFile{Path: path}, nil
}

// Release removes the staged file. Safe to call more than once.
func (s *StagedFile) Release() {
	if s == nil || s.Path == "" {
		return
	}
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to remove staged file", "path", s.Path, "error", err)
	}
	s.Path = ""
}

// stagedExtension returns the lowercased extension of name, or
// DefaultExtension when it is missing or unusual.
func stagedExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if !extensionRegex.MatchString(ext) {
		return DefaultExtension
	}
	return ext
}
