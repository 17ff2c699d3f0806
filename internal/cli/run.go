package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fmueller/voxscribe/internal/media"
	"github.com/fmueller/voxscribe/internal/transcript"
	"github.com/fmueller/voxscribe/internal/whisper"
	"go.uber.org/zap"
)

const defaultSnippetSize = 5.0

// runConfig is the validated input of one transcription run.
type runConfig struct {
	inputPath    string
	outputPath   string
	model        string
	snippetSize  float64
	language     string
	modelDir     string
	autoDownload bool
	silenceGate  bool
	silenceDBFS  float64
}

func (a *appState) newRunConfig(inputPath, outputPath string) (runConfig, error) {
	model := strings.ToLower(strings.TrimSpace(a.model))
	if err := whisper.ValidateModelName(model); err != nil {
		return runConfig{}, err
	}

	if err := transcript.ValidateWindow(a.snippetSize); err != nil {
		return runConfig{}, err
	}

	inputPath = filepath.Clean(strings.TrimSpace(inputPath))
	if err := checkInputFile(inputPath); err != nil {
		return runConfig{}, err
	}

	outputPath = strings.TrimSpace(outputPath)
	if outputPath == "" {
		return runConfig{}, errors.New("output file path must not be empty")
	}
	outputPath = filepath.Clean(outputPath)
	if samePath(inputPath, outputPath) {
		return runConfig{}, fmt.Errorf("output file %s would overwrite the input file", outputPath)
	}
	if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
		return runConfig{}, fmt.Errorf("output path %s is a directory", outputPath)
	}

	return runConfig{
		inputPath:    inputPath,
		outputPath:   outputPath,
		model:        model,
		snippetSize:  a.snippetSize,
		language:     sanitizeLanguage(a.language),
		modelDir:     a.modelDir,
		autoDownload: a.autoDownload,
		silenceGate:  a.silenceGate,
		silenceDBFS:  a.silenceDBFS,
	}, nil
}

func checkInputFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("input file not found: %s", path)
		}
		return fmt.Errorf("input file not accessible: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path %s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("input file not readable: %w", err)
	}
	_ = f.Close()

	if !media.IsSupported(path) {
		ext := filepath.Ext(path)
		if ext == "" {
			ext = "(none)"
		}
		return fmt.Errorf("unsupported file format %s (supported: %s)", ext, strings.Join(media.SupportedExtensions(), ", "))
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}

// run transcribes cfg.inputPath, buckets the segments into snippets and
// writes the transcript. Nothing is written unless every earlier stage succeeded.
func (a *appState) run(ctx context.Context, cfg runConfig) error {
	transcribeFn := a.transcribeFn
	if transcribeFn == nil {
		transcribeFn = a.transcribeMedia
	}

	segments, err := transcribeFn(ctx, cfg)
	if err != nil {
		return withStage(stageTranscription, err)
	}
	segments = dropBlankMarkers(segments)

	snippets, err := transcript.Aggregate(segments, cfg.snippetSize)
	if err != nil {
		return withStage(stageAggregation, err)
	}
	a.log().Debug("snippets aggregated", zap.Int("segments", len(segments)), zap.Int("snippets", len(snippets)), zap.Float64("snippet_size", cfg.snippetSize))

	if isBlankTranscript(snippets) {
		a.log().Warn(noSpeechHint())
	}

	if err := transcript.WriteFile(cfg.outputPath, snippets, cfg.snippetSize); err != nil {
		return withStage(stageWrite, err)
	}

	a.log().Info("transcript saved", zap.String("output", cfg.outputPath), zap.Int("lines", len(snippets)))
	return nil
}
