package transcript

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// FormatTimestamp renders seconds as MM:SS or HH:MM:SS, optionally with milliseconds.
func FormatTimestamp(seconds float64, withHours, withMillis bool) string {
	totalMillis := int64(math.Round(seconds * 1000))
	if totalMillis < 0 {
		totalMillis = 0
	}

	millis := totalMillis % 1000
	totalSeconds := totalMillis / 1000
	s := totalSeconds % 60
	m := (totalSeconds / 60) % 60
	h := totalSeconds / 3600

	var out string
	if withHours {
		out = fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	} else {
		out = fmt.Sprintf("%02d:%02d", totalSeconds/60, s)
	}
	if withMillis {
		out += fmt.Sprintf(".%03d", millis)
	}
	return out
}

// Render writes one "[timestamp] text" line per snippet. The timestamp layout
// is chosen once for the whole transcript so lines stay aligned.
func Render(w io.Writer, snippets []Snippet, window float64) error {
	if err := ValidateWindow(window); err != nil {
		return err
	}

	withHours := false
	if len(snippets) > 0 && snippets[len(snippets)-1].Start >= 3600 {
		withHours = true
	}
	withMillis := window != math.Trunc(window)

	bw := bufio.NewWriter(w)
	for _, snippet := range snippets {
		ts := FormatTimestamp(float64(snippet.Index)*window, withHours, withMillis)
		var err error
		if snippet.Text == "" {
			_, err = fmt.Fprintf(bw, "[%s]\n", ts)
		} else {
			_, err = fmt.Fprintf(bw, "[%s] %s\n", ts, snippet.Text)
		}
		if err != nil {
			return fmt.Errorf("write snippet %d: %w", snippet.Index, err)
		}
	}

	return bw.Flush()
}

// WriteFile renders snippets into path. The content goes to a temporary
// sibling first and is renamed into place, so failures never leave a
// half-written transcript behind.
func WriteFile(path string, snippets []Snippet, window float64) error {
	if err := ValidateWindow(window); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tmp.Name()

	success := false
	defer func() {
		_ = tmp.Close()
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	if err := Render(tmp, snippets, window); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0o644); err != nil {
		return fmt.Errorf("set transcript permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("move transcript into place: %w", err)
	}

	success = true
	return nil
}
