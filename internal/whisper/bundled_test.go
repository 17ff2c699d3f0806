package whisper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/fmueller/voxscribe/internal/platform"
	"github.com/fmueller/voxscribe/internal/transcript"
	"github.com/stretchr/testify/require"
)

const sampleJSONOutput = `{
  "systeminfo": "AVX = 1",
  "model": {"type": "base"},
  "result": {"language": "en"},
  "transcription": [
    {"timestamps": {"from": "00:00:00,000", "to": "00:00:03,000"}, "offsets": {"from": 0, "to": 3000}, "text": " hello"},
    {"timestamps": {"from": "00:00:03,500", "to": "00:00:06,000"}, "offsets": {"from": 3500, "to": 6000}, "text": " world"}
  ]
}`

func TestResolveBundledEnginePathFindsLibexecSibling(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	binDir := filepath.Join(root, "bin")
	engineDir := filepath.Join(root, "libexec", "whisper")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	require.NoError(t, os.MkdirAll(engineDir, 0o755))

	self := filepath.Join(binDir, "voxscribe")
	require.NoError(t, os.WriteFile(self, []byte(""), 0o755))

	enginePath := filepath.Join(engineDir, engineBinaryName())
	require.NoError(t, os.WriteFile(enginePath, []byte(""), 0o755))

	resolved, err := ResolveBundledEnginePath(self)
	require.NoError(t, err)
	require.Equal(t, enginePath, resolved)
}

func TestResolveBundledEnginePathMissing(t *testing.T) {
	t.Parallel()

	self := filepath.Join(t.TempDir(), "bin", "voxscribe")
	require.NoError(t, os.MkdirAll(filepath.Dir(self), 0o755))
	require.NoError(t, os.WriteFile(self, []byte(""), 0o755))

	_, err := ResolveBundledEnginePath(self)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bundled whisper engine not found")
}

func TestResolveBundledEnginePathFindsPackagingPathForLocalDev(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	self := filepath.Join(root, "voxscribe")
	require.NoError(t, os.WriteFile(self, []byte(""), 0o755))

	host := platform.CurrentRuntime()
	targetDir := filepath.Join(root, "packaging", "whisper", fmt.Sprintf("%s_%s", host.OS, host.Arch))
	require.NoError(t, os.MkdirAll(targetDir, 0o755))
	enginePath := filepath.Join(targetDir, engineBinaryName())
	require.NoError(t, os.WriteFile(enginePath, []byte(""), 0o755))

	resolved, err := ResolveBundledEnginePath(self)
	require.NoError(t, err)
	require.Equal(t, enginePath, resolved)
}

func TestParseJSONOutput(t *testing.T) {
	t.Parallel()

	segments, err := ParseJSONOutput([]byte(sampleJSONOutput))
	require.NoError(t, err)
	require.Equal(t, []transcript.Segment{
		{Start: 0, End: 3, Text: " hello"},
		{Start: 3.5, End: 6, Text: " world"},
	}, segments)
}

func TestParseJSONOutputWithoutSpeech(t *testing.T) {
	t.Parallel()

	segments, err := ParseJSONOutput([]byte(`{"transcription": []}`))
	require.NoError(t, err)
	require.Empty(t, segments)
}

func TestParseJSONOutputRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := ParseJSONOutput([]byte("not json"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse whisper output")
}

func TestBundledEngineTranscribeReadsJSONOutput(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}

	dir := t.TempDir()
	fixture := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(fixture, []byte(sampleJSONOutput), 0o644))

	script := fmt.Sprintf(`#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-of" ]; then out="$2"; fi
  shift
done
cp %q "$out.json"
`, fixture)
	engine := filepath.Join(dir, "whisper-cli")
	require.NoError(t, os.WriteFile(engine, []byte(script), 0o755))

	segments, err := (&BundledEngine{Executable: engine}).Transcribe(context.Background(), TranscriptionRequest{
		AudioPath: filepath.Join(dir, "audio.wav"),
		ModelPath: filepath.Join(dir, "ggml-base.bin"),
		Language:  "en",
	})
	require.NoError(t, err)
	require.Len(t, segments, 2)
	require.Equal(t, 3.5, segments[1].Start)
}

func TestBundledEngineTranscribeReportsFailure(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}

	dir := t.TempDir()
	engine := filepath.Join(dir, "whisper-cli")
	require.NoError(t, os.WriteFile(engine, []byte("#!/bin/sh\necho 'failed to read audio' >&2\nexit 2\n"), 0o755))

	_, err := (&BundledEngine{Executable: engine}).Transcribe(context.Background(), TranscriptionRequest{
		AudioPath: filepath.Join(dir, "audio.wav"),
		ModelPath: filepath.Join(dir, "ggml-base.bin"),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read audio")
}

func TestBundledEngineTranscribeValidatesRequest(t *testing.T) {
	t.Parallel()

	engine := &BundledEngine{Executable: "/does/not/exist"}
	_, err := engine.Transcribe(context.Background(), TranscriptionRequest{ModelPath: "m.bin"})
	require.EqualError(t, err, "audio path is required")

	_, err = engine.Transcribe(context.Background(), TranscriptionRequest{AudioPath: "a.wav"})
	require.EqualError(t, err, "model path is required")

	_, err = engine.Transcribe(context.Background(), TranscriptionRequest{AudioPath: "a.wav", ModelPath: "m.bin"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not executable")
}

func TestIsMissingSharedLibraryError(t *testing.T) {
	t.Parallel()

	require.True(t, isMissingSharedLibraryError("error while loading shared libraries: libwhisper.so.1: cannot open shared object file"))
	require.True(t, isMissingSharedLibraryError("dyld: Library not loaded: @rpath/libwhisper.dylib"))
	require.False(t, isMissingSharedLibraryError("some other runtime error"))
}

func TestIsIllegalInstructionError(t *testing.T) {
	t.Parallel()

	require.True(t, isIllegalInstructionError("signal: illegal instruction (core dumped)"))
	require.False(t, isIllegalInstructionError("some other runtime error"))
	require.False(t, isIllegalInstructionError(""))
}
