package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fmueller/voxscribe/internal/download"
	"github.com/fmueller/voxscribe/internal/media"
	"github.com/fmueller/voxscribe/internal/transcript"
	"github.com/fmueller/voxscribe/internal/whisper"
	"go.uber.org/zap"
)

// transcribeMedia makes sure the model is available, converts the input to
// whisper-compatible audio and runs the engine once over it.
func (a *appState) transcribeMedia(ctx context.Context, cfg runConfig) ([]transcript.Segment, error) {
	newEngineFn := a.newEngineFn
	if newEngineFn == nil {
		newEngineFn = newBundledEngine
	}

	engine, err := newEngineFn(a.log())
	if err != nil {
		return nil, err
	}

	model, err := a.ensureModelAvailable(ctx, cfg.model, cfg.modelDir, cfg.autoDownload)
	if err != nil {
		return nil, err
	}

	converter := media.NewConverter(a.log())
	stopSpinner := startSpinner(a.progressEnabled(), "Decoding audio")
	prepared, err := converter.Prepare(ctx, cfg.inputPath, "")
	stopSpinner()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := prepared.Cleanup(); err != nil {
			a.log().Warn("failed to remove converted audio", zap.String("path", prepared.Path), zap.Error(err))
		}
	}()

	a.log().Debug("audio prepared",
		zap.String("audio", prepared.Path),
		zap.Bool("converted", prepared.Converted),
		zap.Duration("duration", prepared.Info.Duration),
	)

	if cfg.silenceGate && prepared.Info.IsSilent(cfg.silenceDBFS) {
		a.log().Info(
			"audio considered silent; skipping transcription",
			zap.String("audio", cfg.inputPath),
			zap.Float64("rms_dbfs", prepared.Info.RMSdBFS),
			zap.Float64("peak_dbfs", prepared.Info.PeakdBFS),
			zap.Float64("threshold_dbfs", cfg.silenceDBFS),
		)
		return silentSegments(prepared.Info.Duration), nil
	}

	a.log().Info("transcribing...", zap.String("input", cfg.inputPath), zap.String("model", model.Name), zap.String("language", cfg.language))
	stopSpinner = startSpinner(a.progressEnabled(), "Transcribing")
	started := time.Now()

	segments, err := engine.Transcribe(ctx, whisper.TranscriptionRequest{
		AudioPath: prepared.Path,
		ModelPath: model.Path,
		Language:  cfg.language,
	})
	stopSpinner()
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return nil, err
	}
	a.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)), zap.Int("segments", len(segments)))

	return segments, nil
}

func (a *appState) ensureModelAvailable(ctx context.Context, name, modelDirOverride string, autoDownload bool) (whisper.ResolvedModel, error) {
	modelDir, err := modelStorageDir(modelDirOverride)
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	resolved, err := whisper.ResolveModel(name, modelDir)
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	if !resolved.NeedsDownload {
		return resolved, nil
	}

	if !autoDownload {
		return whisper.ResolvedModel{}, fmt.Errorf("model %q is missing at %s; run `voxscribe setup --model %s` or use --auto-download=true", resolved.Name, resolved.Path, resolved.Name)
	}

	a.log().Info("model not found, downloading", zap.String("model", resolved.Name), zap.String("destination", resolved.Path))
	if err := download.DownloadFile(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		Description:    "model " + resolved.Name,
		NoProgress:     !a.progressEnabled(),
		Logger:         a.log(),
	}); err != nil {
		return whisper.ResolvedModel{}, fmt.Errorf("download model %q: %w", resolved.Name, err)
	}

	resolved.NeedsDownload = false
	return resolved, nil
}

// silentSegments stands in for the engine on gated audio: one blank segment
// covering the recording, like whisper's own [BLANK_AUDIO] output.
func silentSegments(duration time.Duration) []transcript.Segment {
	if duration <= 0 {
		return nil
	}
	return []transcript.Segment{{Start: 0, End: duration.Seconds()}}
}

func sanitizeLanguage(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return "auto"
	}
	return trimmed
}
