package pipeline

import (
	"bytes"
	"errors"
	"fmt"
)

// Raw camera formats (CR2, NEF, ARW and friends) are TIFF containers that
// carry at least one full-size JPEG preview. Scanning for the JPEG start
// and end markers pulls that preview out without a raw decoder.

var (
	jpegSOI = []byte{0xFF, 0xD8, 0xFF}
	jpegEOI = []byte{0xFF, 0xD9}
)

// minPreviewSize rejects the tiny embedded thumbnails some raws carry
// before the real preview.
const minPreviewSize = 32 * 1024

// ErrNoPreview reports that no usable embedded JPEG was found.
var ErrNoPreview = errors.New("no embedded JPEG preview found")

// ExtractEmbeddedPreview returns the largest embedded JPEG in a raw
// camera file.
func ExtractEmbeddedPreview(data []byte) ([]byte, error) {
	var best []byte

	offset := 0
	for offset < len(data) {
		start := bytes.Index(data[offset:], jpegSOI)
		if start < 0 {
			break
		}
		start += offset

		end := bytes.Index(data[start:], jpegEOI)
		if end < 0 {
			break
		}
		end += start + len(jpegEOI)

		candidate := data[start:end]
		if len(candidate) > len(best) {
			best = candidate
		}
		offset = end
	}

	if best == nil {
		return nil, ErrNoPreview
	}
	if len(best) < minPreviewSize {
		return nil, fmt.Errorf("%w: largest candidate is %d bytes", ErrNoPreview, len(best))
	}
	return best, nil
}
