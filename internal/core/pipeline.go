package core

// pipeline.go sequences extraction, validation and transformation for one
// uploaded spreadsheet.
//
// The run is all-or-nothing: any stage error (or panic) aborts the remaining
// stages and Run returns a *StageError with no tables. Callers publish the
// result only when err is nil, so a failed run never leaves partial state.

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Pipeline runs Extractor -> Validator -> Transformer once per upload.
type Pipeline struct {
	extractor   Extractor
	validator   Validator
	transformer Transformer
	tempDir     string
}

// NewPipeline creates a pipeline. tempDir may be empty to use the OS default.
func NewPipeline(extractor Extractor, validator Validator, transformer Transformer, tempDir string) *Pipeline {
	return &Pipeline{
		extractor:   extractor,
		validator:   validator,
		transformer: transformer,
		tempDir:     tempDir,
	}
}

// Run processes one uploaded file.
//
// Preconditions are checked before anything touches disk: an empty credential
// returns ErrMissingCredential and an empty payload returns ErrEmptyFile.
// onPhase, if non-nil, is called on every stage transition.
func (p *Pipeline) Run(ctx context.Context, fileName string, data []byte, credential string, onPhase PhaseFunc) (result *RunResult, err error) {
	if strings.TrimSpace(credential) == "" {
		return nil, ErrMissingCredential
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	notify := func(ph Phase) {
		if onPhase != nil {
			onPhase(ph)
		}
	}

	start := time.Now()

	staged, err := StageFile(p.tempDir, fileName, data)
	if err != nil {
		return nil, &StageError{Stage: StageStaging, Err: err}
	}
	defer staged.Release()
	notify(PhaseStaged)

	stage := StageExtract
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in pipeline", "stage", stage, "file", fileName, "panic", r)
			result = nil
			err = &StageError{Stage: stage, Err: fmt.Errorf("internal error: %v", r)}
		}
	}()

	// Extraction
	notify(PhaseExtracting)
	extracted, err := p.extractor.Extract(ctx, staged.Path, fileName, credential)
	if err != nil {
		return nil, &StageError{Stage: stage, Err: err}
	}
	if len(extracted) == 0 {
		return nil, &StageError{Stage: stage, Err: ErrNoTables}
	}
	labeled := Relabel(extracted)

	// Validation
	stage = StageValidate
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: stage, Err: err}
	}
	notify(PhaseValidating)
	validated, report, err := p.validator.Validate(ctx, labeled)
	if err != nil {
		return nil, &StageError{Stage: stage, Err: err}
	}
	if !sameLabels(labeled, validated) {
		return nil, &StageError{Stage: stage, Err: ErrLabelDrift}
	}
	if report == nil {
		report = NewValidationReport()
	}

	// Transformation
	stage = StageTransform
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: stage, Err: err}
	}
	notify(PhaseTransforming)
	transformed, err := p.transformer.Transform(ctx, validated)
	if err != nil {
		return nil, &StageError{Stage: stage, Err: err}
	}
	if !sameLabels(labeled, transformed) {
		return nil, &StageError{Stage: stage, Err: ErrLabelDrift}
	}

	return &RunResult{
		Tables:   transformed,
		Report:   report,
		Duration: time.Since(start),
	}, nil
}
