package extract

import "context"

// Extractor decodes a media file into mono float32 samples at a fixed rate
type Extractor interface {
	Extract(ctx context.Context, mediaPath string) ([]float32, error)
}
