package transcript

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// MinWindow is the smallest window whose timestamps stay distinct at
	// millisecond resolution.
	MinWindow = 0.001

	// MaxWindows caps how many windows one transcript may produce.
	MaxWindows = 10_000_000
)

var (
	ErrInvalidWindow    = errors.New("snippet size must be a positive number of seconds")
	ErrMalformedSegment = errors.New("malformed segment")
	ErrTooManyWindows   = errors.New("too many snippets")
)

// Segment is one span of recognized speech, in seconds from the start of the media.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Snippet is one fixed-size display window of the transcript.
type Snippet struct {
	Index int
	Start float64
	Text  string
}

// Aggregate buckets segments into consecutive windows of the given size.
// Every window from 0 up to the one containing the last segment end is
// returned, including windows nobody spoke in. A segment spanning several
// windows contributes its full text to each of them.
func Aggregate(segments []Segment, window float64) ([]Snippet, error) {
	if err := ValidateWindow(window); err != nil {
		return nil, err
	}

	for i, seg := range segments {
		if err := validateSegment(seg); err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
	}

	count, err := windowCount(segments, window)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	buckets := make([][]string, count)
	for _, seg := range segments {
		text := strings.Join(strings.Fields(seg.Text), " ")
		if text == "" {
			continue
		}

		k := int(math.Floor(seg.Start / window))
		if k > 0 && intersects(seg, k-1, window) {
			k--
		}
		if k < count && !intersects(seg, k, window) {
			k++
		}
		for ; k < count && intersects(seg, k, window); k++ {
			buckets[k] = append(buckets[k], text)
		}
	}

	snippets := make([]Snippet, count)
	for k := range snippets {
		snippets[k] = Snippet{
			Index: k,
			Start: float64(k) * window,
			Text:  strings.Join(buckets[k], " "),
		}
	}

	return snippets, nil
}

func ValidateWindow(window float64) error {
	if math.IsNaN(window) || math.IsInf(window, 0) || window <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidWindow, window)
	}
	if window < MinWindow {
		return fmt.Errorf("%w: got %v, minimum is %v", ErrInvalidWindow, window, MinWindow)
	}
	return nil
}

func validateSegment(seg Segment) error {
	switch {
	case math.IsNaN(seg.Start) || math.IsNaN(seg.End) || math.IsInf(seg.Start, 0) || math.IsInf(seg.End, 0):
		return fmt.Errorf("%w: non-finite time [%v, %v]", ErrMalformedSegment, seg.Start, seg.End)
	case seg.Start < 0:
		return fmt.Errorf("%w: negative start %v", ErrMalformedSegment, seg.Start)
	case seg.End < seg.Start:
		return fmt.Errorf("%w: end %v before start %v", ErrMalformedSegment, seg.End, seg.Start)
	}
	return nil
}

// windowCount is ceil(maxEnd/window). A zero-length segment sitting exactly on
// the last boundary opens one more window so its text is not lost. The count
// is checked against MaxWindows in float space before it becomes an int.
func windowCount(segments []Segment, window float64) (int, error) {
	var count float64
	for _, seg := range segments {
		n := math.Ceil(seg.End / window)
		if seg.Start == seg.End {
			n = math.Max(n, math.Floor(seg.Start/window)+1)
		}
		count = math.Max(count, n)
	}
	if count > MaxWindows {
		return 0, fmt.Errorf("%w: %.0f windows of %v seconds exceed the limit of %d", ErrTooManyWindows, count, window, MaxWindows)
	}
	return int(count), nil
}

func intersects(seg Segment, k int, window float64) bool {
	lo := float64(k) * window
	hi := float64(k+1) * window
	if seg.Start == seg.End {
		return lo <= seg.Start && seg.Start < hi
	}
	return seg.Start < hi && seg.End > lo
}
