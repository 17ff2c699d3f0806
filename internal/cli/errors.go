package cli

import (
	"errors"
	"fmt"
)

type stage string

const (
	stageConfig        stage = "config"
	stageTranscription stage = "transcription"
	stageAggregation   stage = "aggregation"
	stageWrite         stage = "write"
)

// stageError tags a terminal error with the pipeline stage that produced it.
type stageError struct {
	stage stage
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s error: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error {
	return e.err
}

func withStage(s stage, err error) error {
	if err == nil {
		return nil
	}
	var existing *stageError
	if errors.As(err, &existing) {
		return err
	}
	return &stageError{stage: s, err: err}
}

// StageOf reports the pipeline stage recorded on err, or "" if there is none.
func StageOf(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return string(se.stage)
	}
	return ""
}
