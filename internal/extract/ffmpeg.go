package extract

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Extract decodes the first audio track of mediaPath to raw float32 PCM on stdout
func (f *implFFmpeg) Extract(ctx context.Context, mediaPath string) ([]float32, error) {
	f.logger.Info(ctx, "Extracting audio: %s", mediaPath)

	// -vn: drop video
	// -ac 1 / -ar: mono at the engine sample rate
	// -f f32le: headerless little-endian float32, written to stdout
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-i", mediaPath,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(f.sampleRate),
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"pipe:1",
	}

	raw, err := f.executor.Output(ctx, f.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg extract audio: %w", err)
	}

	samples, err := decodeF32LE(raw)
	if err != nil {
		return nil, err
	}

	f.logger.Info(ctx, "Audio extracted: %d samples (%.1fs)", len(samples), float64(len(samples))/float64(f.sampleRate))
	return samples, nil
}

func decodeF32LE(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("decode pcm: %d bytes is not a whole number of float32 samples", len(raw))
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return samples, nil
}
