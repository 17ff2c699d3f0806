package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fmueller/voxscribe/internal/transcript"
	"github.com/stretchr/testify/require"
)

func TestRunWritesSnippetTranscript(t *testing.T) {
	t.Parallel()

	input := writeInputFile(t, "meeting.mp4")
	output := filepath.Join(t.TempDir(), "meeting.txt")

	calls := 0
	app := newAppState()
	app.transcribeFn = fixedSegments([]transcript.Segment{
		{Start: 0.0, End: 3.0, Text: " hello"},
		{Start: 3.5, End: 6.0, Text: " world"},
		{Start: 7.0, End: 7.0, Text: "!"},
	}, &calls)

	_, _, err := runAppCommand(t, app, []string{input, output})
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, "[00:00] hello world\n[00:05] world !\n", string(content))
}

func TestRunHonorsSnippetSizeAndModel(t *testing.T) {
	t.Parallel()

	input := writeInputFile(t, "talk.M4A")
	output := filepath.Join(t.TempDir(), "talk.txt")

	var got runConfig
	app := newAppState()
	app.transcribeFn = func(_ context.Context, cfg runConfig) ([]transcript.Segment, error) {
		got = cfg
		return []transcript.Segment{{Start: 4, End: 9, Text: "bridge"}}, nil
	}

	_, _, err := runAppCommand(t, app, []string{"--model", "Small", "--snippet-size", "2.5", "--language", " DE ", input, output})
	require.NoError(t, err)
	require.Equal(t, "small", got.model)
	require.Equal(t, 2.5, got.snippetSize)
	require.Equal(t, "de", got.language)
	require.Equal(t, input, got.inputPath)

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, "[00:00.000]\n[00:02.500] bridge\n[00:05.000] bridge\n[00:07.500] bridge\n", string(content))
}

func TestRunEmptyTranscriptWritesEmptyFile(t *testing.T) {
	t.Parallel()

	input := writeInputFile(t, "silence.wav")
	output := filepath.Join(t.TempDir(), "silence.txt")

	app := newAppState()
	app.transcribeFn = fixedSegments(nil, nil)

	_, stderr, err := runAppCommand(t, app, []string{input, output})
	require.NoError(t, err)
	require.Contains(t, stderr, "No speech detected")

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Empty(t, content)
}

func TestRunClearsBlankAudioMarkers(t *testing.T) {
	t.Parallel()

	input := writeInputFile(t, "intro.mp3")
	output := filepath.Join(t.TempDir(), "intro.txt")

	app := newAppState()
	app.transcribeFn = fixedSegments([]transcript.Segment{
		{Start: 0, End: 6, Text: " [BLANK_AUDIO]"},
		{Start: 6, End: 8, Text: " welcome"},
	}, nil)

	_, _, err := runAppCommand(t, app, []string{input, output})
	require.NoError(t, err)

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, "[00:00]\n[00:05] welcome\n", string(content))
}

func TestRunReportsTranscriptionStage(t *testing.T) {
	t.Parallel()

	input := writeInputFile(t, "broken.mp4")
	output := filepath.Join(t.TempDir(), "broken.txt")

	app := newAppState()
	app.transcribeFn = func(context.Context, runConfig) ([]transcript.Segment, error) {
		return nil, errors.New("ffmpeg could not decode broken.mp4")
	}

	_, _, err := runAppCommand(t, app, []string{input, output})
	require.Error(t, err)
	require.Equal(t, "transcription", StageOf(err))
	require.Contains(t, err.Error(), "transcription error: ffmpeg could not decode")

	_, statErr := os.Stat(output)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunReportsAggregationStageForMalformedSegments(t *testing.T) {
	t.Parallel()

	input := writeInputFile(t, "odd.wav")
	output := filepath.Join(t.TempDir(), "odd.txt")
	require.NoError(t, os.WriteFile(output, []byte("previous transcript\n"), 0o644))

	app := newAppState()
	app.transcribeFn = fixedSegments([]transcript.Segment{
		{Start: 0, End: 2, Text: "fine"},
		{Start: 5, End: 4, Text: "backwards"},
	}, nil)

	_, _, err := runAppCommand(t, app, []string{input, output})
	require.Error(t, err)
	require.Equal(t, "aggregation", StageOf(err))
	require.ErrorIs(t, err, transcript.ErrMalformedSegment)

	content, readErr := os.ReadFile(output)
	require.NoError(t, readErr)
	require.Equal(t, "previous transcript\n", string(content), "a failed run must leave the old output untouched")
}

func TestRunReportsWriteStage(t *testing.T) {
	t.Parallel()

	input := writeInputFile(t, "talk.wav")
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	output := filepath.Join(blocker, "sub", "talk.txt")

	app := newAppState()
	app.transcribeFn = fixedSegments([]transcript.Segment{{Start: 0, End: 1, Text: "hi"}}, nil)

	_, _, err := runAppCommand(t, app, []string{input, output})
	require.Error(t, err)
	require.Equal(t, "write", StageOf(err))
}

func TestWithStageKeepsInnermostStage(t *testing.T) {
	t.Parallel()

	inner := withStage(stageAggregation, errors.New("boom"))
	outer := withStage(stageWrite, inner)
	require.Equal(t, "aggregation", StageOf(outer))
	require.Nil(t, withStage(stageConfig, nil))
	require.Empty(t, StageOf(errors.New("plain")))
}

func TestRunReportsAggregationStageForTooManyWindows(t *testing.T) {
	t.Parallel()

	input := writeInputFile(t, "marathon.wav")
	output := filepath.Join(t.TempDir(), "marathon.txt")

	app := newAppState()
	app.transcribeFn = fixedSegments([]transcript.Segment{{Start: 0, End: 100_000, Text: "talk"}}, nil)

	_, _, err := runAppCommand(t, app, []string{"--snippet-size", "0.001", input, output})
	require.Error(t, err)
	require.Equal(t, "aggregation", StageOf(err))
	require.ErrorIs(t, err, transcript.ErrTooManyWindows)

	_, statErr := os.Stat(output)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}
