package cli

import (
	"strings"

	"github.com/fmueller/voxscribe/internal/transcript"
)

const blankAudioToken = "[BLANK_AUDIO]"

func isBlankText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}

	return strings.EqualFold(trimmed, blankAudioToken)
}

// dropBlankMarkers clears whisper's no-speech markers but keeps their timing,
// so silent stretches still count towards the transcript length.
func dropBlankMarkers(segments []transcript.Segment) []transcript.Segment {
	out := make([]transcript.Segment, len(segments))
	for i, seg := range segments {
		if isBlankText(seg.Text) {
			seg.Text = ""
		}
		out[i] = seg
	}
	return out
}

func isBlankTranscript(snippets []transcript.Snippet) bool {
	for _, snippet := range snippets {
		if !isBlankText(snippet.Text) {
			return false
		}
	}
	return true
}

func noSpeechHint() string {
	return "No speech detected. Check that the recording has an audible voice track."
}
