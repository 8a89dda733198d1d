package chat

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/arran4/chat2png/internal/resource"
)

// MaxImageBytes caps avatar and wallpaper uploads.
const MaxImageBytes = 5 * 1024 * 1024

var (
	ErrNotImage      = errors.New("chat: file is not an image")
	ErrImageTooLarge = errors.New("chat: image exceeds 5MB")
)

// Ingest reads an uploaded image and returns it as a data URL. The media
// type is sniffed from the content; anything other than image/* is
// rejected.
func Ingest(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("chat: read image: %w", err)
	}
	return IngestBytes(data)
}

// IngestBytes is Ingest for data already in memory.
func IngestBytes(data []byte) (string, error) {
	if len(data) > MaxImageBytes {
		return "", ErrImageTooLarge
	}
	mediaType := http.DetectContentType(data)
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mediaType)
	}
	return resource.EncodeDataURL(mediaType, data), nil
}

// IngestFile is Ingest for a path on disk.
func IngestFile(path string) (string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("chat: stat image: %w", err)
	}
	if st.Size() > MaxImageBytes {
		return "", ErrImageTooLarge
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("chat: open image: %w", err)
	}
	defer f.Close()
	return Ingest(f)
}
