package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// WhisperSampleRate is the only sample rate whisper-cli accepts.
	WhisperSampleRate = 16000

	formatPCM        = 1
	formatExtensible = 0xFFFE

	// readChunkSamples bounds memory use while measuring long recordings.
	readChunkSamples = 8192
)

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

// Info describes a decoded PCM WAV file.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Samples    int64
	Duration   time.Duration
	RMSdBFS    float64
	PeakdBFS   float64
}

// IsSilent reports whether the audio stays below thresholdDBFS. The peak may
// exceed the threshold by 6 dB to tolerate isolated clicks.
func (i Info) IsSilent(thresholdDBFS float64) bool {
	if i.Samples == 0 {
		return true
	}
	if math.IsInf(i.RMSdBFS, -1) && math.IsInf(i.PeakdBFS, -1) {
		return true
	}

	peakGate := thresholdDBFS + 6
	return i.RMSdBFS <= thresholdDBFS && i.PeakdBFS <= peakGate
}

// WhisperReady reports whether the file can be passed to whisper-cli without conversion.
func (i Info) WhisperReady() bool {
	return i.SampleRate == WhisperSampleRate && i.Channels == 1 && i.BitDepth == 16
}

// Inspect streams an integer PCM WAV file in fixed-size chunks and measures
// its length and loudness.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Info{}, ErrInvalidWAV
	}
	if dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible {
		return Info{}, fmt.Errorf("%w: audio format %d", ErrUnsupportedWAV, dec.WavAudioFormat)
	}

	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return Info{}, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedWAV, dec.BitDepth)
	}

	info := Info{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}

	buf := &goaudio.IntBuffer{Data: make([]int, readChunkSamples)}
	scale := math.Ldexp(1, info.BitDepth-1)
	var peak, sumSquares float64
	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return Info{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		if n == 0 {
			break
		}

		for _, raw := range buf.Data[:n] {
			value := float64(raw)
			if info.BitDepth == 8 {
				value -= 128
			}
			value /= scale

			abs := math.Abs(value)
			if abs > peak {
				peak = abs
			}
			sumSquares += value * value
		}
		info.Samples += int64(n)
	}

	if info.Channels > 0 && info.SampleRate > 0 {
		frames := info.Samples / int64(info.Channels)
		info.Duration = time.Duration(frames) * time.Second / time.Duration(info.SampleRate)
	}

	if info.Samples == 0 {
		info.RMSdBFS = math.Inf(-1)
		info.PeakdBFS = math.Inf(-1)
		return info, nil
	}

	info.RMSdBFS = amplitudeToDBFS(math.Sqrt(sumSquares / float64(info.Samples)))
	info.PeakdBFS = amplitudeToDBFS(peak)
	return info, nil
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
