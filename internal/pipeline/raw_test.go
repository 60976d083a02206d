package pipeline

import (
	"bytes"
	"errors"
	"testing"
)

// syntheticRaw builds a fake raw container: TIFF-ish header bytes, then
// embedded JPEG candidates of the given payload sizes.
func syntheticRaw(payloadSizes ...int) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x49, 0x49, 0x2A, 0x00}) // little-endian TIFF magic
	for i, size := range payloadSizes {
		buf.Write(jpegSOI)
		payload := bytes.Repeat([]byte{byte(i + 1)}, size)
		buf.Write(payload)
		buf.Write(jpegEOI)
		buf.Write([]byte{0x00, 0x00, 0x00, 0x00})
	}
	return buf.Bytes()
}

func TestExtractEmbeddedPreviewPicksLargest(t *testing.T) {
	data := syntheticRaw(1024, 64*1024, 8*1024)

	preview, err := ExtractEmbeddedPreview(data)
	if err != nil {
		t.Fatalf("ExtractEmbeddedPreview failed: %v", err)
	}
	wantLen := len(jpegSOI) + 64*1024 + len(jpegEOI)
	if len(preview) != wantLen {
		t.Errorf("preview length = %d; want %d (the largest candidate)", len(preview), wantLen)
	}
	if !bytes.HasPrefix(preview, jpegSOI) || !bytes.HasSuffix(preview, jpegEOI) {
		t.Error("preview is not a complete JPEG stream")
	}
}

func TestExtractEmbeddedPreviewNoMarkers(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 128*1024)

	_, err := ExtractEmbeddedPreview(data)
	if !errors.Is(err, ErrNoPreview) {
		t.Errorf("expected ErrNoPreview, got: %v", err)
	}
}

func TestExtractEmbeddedPreviewUnterminated(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(jpegSOI)
	buf.Write(bytes.Repeat([]byte{0x42}, 128*1024)) // no EOI anywhere

	_, err := ExtractEmbeddedPreview(buf.Bytes())
	if !errors.Is(err, ErrNoPreview) {
		t.Errorf("expected ErrNoPreview, got: %v", err)
	}
}

func TestExtractEmbeddedPreviewTooSmall(t *testing.T) {
	data := syntheticRaw(512, 2048)

	_, err := ExtractEmbeddedPreview(data)
	if !errors.Is(err, ErrNoPreview) {
		t.Errorf("expected ErrNoPreview for thumbnail-sized candidates, got: %v", err)
	}
}
