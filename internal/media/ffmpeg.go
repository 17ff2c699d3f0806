package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fmueller/voxscribe/internal/audio"
	"go.uber.org/zap"
)

const ffmpegPathEnv = "VOXSCRIBE_FFMPEG_PATH"

var ErrFFmpegNotFound = errors.New("ffmpeg not found")

var supportedExtensions = []string{
	".aac", ".flac", ".m4a", ".mkv", ".mov", ".mp3", ".mp4", ".ogg", ".opus", ".wav", ".webm",
}

// SupportedExtensions lists the input file extensions voxscribe accepts.
func SupportedExtensions() []string {
	out := make([]string, len(supportedExtensions))
	copy(out, supportedExtensions)
	return out
}

func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range supportedExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

type Converter struct {
	Executable string
	Logger     *zap.Logger
}

// NewConverter locates ffmpeg via VOXSCRIBE_FFMPEG_PATH or PATH. A missing
// ffmpeg is not an error here; Prepare reports it only when conversion is needed.
func NewConverter(logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}

	if override := strings.TrimSpace(os.Getenv(ffmpegPathEnv)); override != "" {
		return &Converter{Executable: override, Logger: logger}
	}

	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return &Converter{Logger: logger}
	}
	return &Converter{Executable: path, Logger: logger}
}

// Prepared is a whisper-compatible WAV ready for transcription. Cleanup
// removes any temporary file Prepare created.
type Prepared struct {
	Path      string
	Info      audio.Info
	Converted bool
}

func (p Prepared) Cleanup() error {
	if !p.Converted {
		return nil
	}
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Prepare returns a 16 kHz mono 16-bit WAV for inputPath. WAV inputs already
// in that format are used as-is; everything else is converted with ffmpeg
// into tmpDir.
func (c *Converter) Prepare(ctx context.Context, inputPath, tmpDir string) (Prepared, error) {
	if strings.EqualFold(filepath.Ext(inputPath), ".wav") {
		info, err := audio.Inspect(inputPath)
		if err == nil && info.WhisperReady() {
			c.log().Debug("input already whisper-ready; skipping conversion", zap.String("input", inputPath))
			return Prepared{Path: inputPath, Info: info}, nil
		}
		if err != nil {
			c.log().Debug("wav inspection failed; converting with ffmpeg", zap.String("input", inputPath), zap.Error(err))
		}
	}

	out, err := c.ToWAV(ctx, inputPath, tmpDir)
	if err != nil {
		return Prepared{}, err
	}

	info, err := audio.Inspect(out)
	if err != nil {
		_ = os.Remove(out)
		return Prepared{}, fmt.Errorf("inspect converted audio: %w", err)
	}

	return Prepared{Path: out, Info: info, Converted: true}, nil
}

// ToWAV extracts the audio track of inputPath as 16 kHz mono PCM WAV.
func (c *Converter) ToWAV(ctx context.Context, inputPath, tmpDir string) (string, error) {
	if strings.TrimSpace(c.Executable) == "" {
		return "", fmt.Errorf("%w; install ffmpeg or set %s to decode %s files", ErrFFmpegNotFound, ffmpegPathEnv, filepath.Ext(inputPath))
	}

	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	out, err := os.CreateTemp(tmpDir, "voxscribe-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp wav: %w", err)
	}
	outPath := out.Name()
	_ = out.Close()

	args := []string{
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-y", "-i", inputPath,
		"-vn", "-ac", "1", "-ar", strconv.Itoa(audio.WhisperSampleRate),
		"-c:a", "pcm_s16le", "-f", "wav",
		outPath,
	}

	cmd := exec.CommandContext(ctx, c.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.log().Debug("running ffmpeg", zap.String("ffmpeg", c.Executable), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		_ = os.Remove(outPath)
		return "", fmt.Errorf("ffmpeg could not decode %s: %w (%s)", inputPath, err, strings.TrimSpace(stderr.String()))
	}

	return outPath, nil
}

func (c *Converter) log() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
