// Package mediatype classifies byte streams by their content rather than by
// any client supplied filename.
package mediatype

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// SniffLen is the number of leading bytes inspected.
const SniffLen = 3072

// ErrEmpty is returned for zero-length input.
var ErrEmpty = errors.New("empty file")

// Category is the coarse media class stored with every entry.
type Category string

const (
	Document Category = "document"
	Image    Category = "image"
	Audio    Category = "audio"
	Video    Category = "video"
	Other    Category = "other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Document, Image, Audio, Video, Other:
		return true
	}
	return false
}

// Info is the outcome of a detection.
type Info struct {
	MIME      string
	Extension string
	Category  Category
}

// Detect reads up to SniffLen bytes from r and classifies them.
func Detect(r io.Reader) (Info, error) {
	info, _, err := Sniff(r)
	return info, err
}

// Sniff classifies r and returns a reader that replays the inspected bytes
// followed by the rest of r, so callers can keep streaming the content.
func Sniff(r io.Reader) (Info, io.Reader, error) {
	head := make([]byte, SniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Info{}, nil, fmt.Errorf("read content: %w", err)
	}
	if n == 0 {
		return Info{}, nil, ErrEmpty
	}
	head = head[:n]

	info := FromBytes(head)
	return info, io.MultiReader(bytes.NewReader(head), r), nil
}

// FromBytes classifies an in-memory prefix.
func FromBytes(head []byte) Info {
	detected := mimetype.Detect(head)
	base := baseType(detected.String())
	return Info{
		MIME:      detected.String(),
		Extension: detected.Extension(),
		Category:  CategoryOf(base),
	}
}

var documentTypes = map[string]struct{}{
	"application/pdf":               {},
	"application/rtf":               {},
	"application/msword":            {},
	"application/epub+zip":          {},
	"application/x-ole-storage":     {},
	"application/vnd.ms-excel":      {},
	"application/vnd.ms-powerpoint": {},
}

var documentPrefixes = []string{
	"text/",
	"application/vnd.openxmlformats-officedocument.",
	"application/vnd.oasis.opendocument.",
	"application/vnd.ms-",
}

// CategoryOf maps a MIME type to a Category. Parameters such as charset are ignored.
func CategoryOf(mime string) Category {
	mime = baseType(mime)
	switch {
	case strings.HasPrefix(mime, "image/"):
		return Image
	case strings.HasPrefix(mime, "audio/"):
		return Audio
	case strings.HasPrefix(mime, "video/"):
		return Video
	}
	if _, ok := documentTypes[mime]; ok {
		return Document
	}
	for _, prefix := range documentPrefixes {
		if strings.HasPrefix(mime, prefix) {
			return Document
		}
	}
	return Other
}

func baseType(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
