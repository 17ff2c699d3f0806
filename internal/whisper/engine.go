package whisper

import (
	"context"

	"github.com/fmueller/voxscribe/internal/transcript"
)

type TranscriptionRequest struct {
	AudioPath string
	ModelPath string
	Language  string
}

// Engine turns a whisper-compatible audio file into chronologically ordered
// speech segments. Model loading and decoding both happen inside Transcribe.
type Engine interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) ([]transcript.Segment, error)
}
