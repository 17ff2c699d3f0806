package cli

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fmueller/voxscribe/internal/transcript"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	return runAppCommand(t, newAppState(), args)
}

func runAppCommand(t *testing.T, app *appState, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := newRootCmd(app)
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetContext(context.Background())
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

// fixedSegments returns a transcribe hook that always yields segments and
// counts how often it was called.
func fixedSegments(segments []transcript.Segment, calls *int) func(context.Context, runConfig) ([]transcript.Segment, error) {
	return func(context.Context, runConfig) ([]transcript.Segment, error) {
		if calls != nil {
			*calls++
		}
		return segments, nil
	}
}

func writeInputFile(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("media"), 0o644))
	return path
}

func writeToneWAV(t *testing.T, dir string, seconds int, amplitude float64) string {
	t.Helper()

	const rate = 16000
	samples := make([]int, rate*seconds)
	for i := range samples {
		samples[i] = int(amplitude * 32767 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}

	path := filepath.Join(dir, "speech.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}
