package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingCredential is returned before any work when no API key was given.
	ErrMissingCredential = errors.New("missing API key: provide a valid API key before processing the file")

	// ErrEmptyFile is returned when the uploaded payload has no bytes.
	ErrEmptyFile = errors.New("empty file")

	// ErrNoTables is returned when extraction finds nothing to process.
	ErrNoTables = errors.New("no tables found in spreadsheet")

	// ErrLabelDrift is returned when a stage adds, drops or reorders table labels.
	ErrLabelDrift = errors.New("stage changed table labels")

	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("upload session not found")

	// ErrNotReady is returned when a sink action is requested before a
	// successful pipeline run published tables.
	ErrNotReady = errors.New("no processed tables: upload a spreadsheet first")

	// ErrMissingTables is matched by *MissingTablesError.
	ErrMissingTables = errors.New("required tables missing")

	// ErrWarehouseDisabled is returned when no warehouse backend is configured.
	ErrWarehouseDisabled = errors.New("warehouse delivery is not configured")

	// ErrUnknownTable is returned when previewing a label that does not exist.
	ErrUnknownTable = errors.New("unknown table")

	// ErrSuperseded is returned by a run that finished after a newer upload
	// for the same session began. Its tables are discarded.
	ErrSuperseded = errors.New("upload superseded by a newer upload")
)

// Stage names a pipeline step for error reporting.
type Stage string

const (
	StageStaging   Stage = "staging"
	StageExtract   Stage = "extraction"
	StageValidate  Stage = "validation"
	StageTransform Stage = "transformation"
)

// StageError wraps a failure from one pipeline stage. Its message carries the
// original description so it can be shown to the user verbatim.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// MissingTablesError lists labels a sink needed but the TableSet lacks.
type MissingTablesError struct {
	Labels []string
}

func (e *MissingTablesError) Error() string {
	return fmt.Sprintf("required tables missing: %s", strings.Join(e.Labels, ", "))
}

func (e *MissingTablesError) Is(target error) bool {
	return target == ErrMissingTables
}
