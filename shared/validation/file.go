package validation

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	internal_errors "github.com/labportal/portal/shared/errors"
)

const (
	MaxFileSize       int64 = 50 << 20
	MaxFilenameLength       = 255
)

// allowedExtensions spans office documents, images, video, audio and archives.
var allowedExtensions = map[string]bool{
	// documents
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".hwp": true, ".hwpx": true, ".odt": true,
	".ods": true, ".odp": true, ".rtf": true, ".txt": true, ".csv": true, ".md": true,
	// images
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".webp": true, ".svg": true,
	// video
	".mp4": true, ".avi": true, ".mov": true, ".wmv": true, ".mkv": true, ".webm": true,
	// audio
	".mp3": true, ".wav": true, ".ogg": true, ".m4a": true, ".flac": true, ".aac": true,
	// archives
	".zip": true, ".rar": true, ".7z": true, ".tar": true, ".gz": true,
}

// IsAllowedExtension reports whether the filename's extension is on the allow-list.
func IsAllowedExtension(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ValidateFileUpload applies the advisory client-side policy before any network call.
// The portal remains the authority and may reject files for other reasons.
func ValidateFileUpload(filename string, size int64) error {
	if filename == "" {
		return &internal_errors.ValidationError{Field: "filename", Message: "filename is empty"}
	}
	if size > MaxFileSize {
		return fmt.Errorf("%w: %w", ErrFileTooLarge, &internal_errors.ValidationError{
			Field:   filename,
			Message: fmt.Sprintf("file is %s, the limit is %s", humanize.IBytes(uint64(size)), humanize.IBytes(uint64(MaxFileSize))),
		})
	}
	if !IsAllowedExtension(filename) {
		return fmt.Errorf("%w: %w", ErrExtensionNotAllowed, &internal_errors.ValidationError{
			Field:   filename,
			Message: fmt.Sprintf("extension %q is not supported", filepath.Ext(filename)),
		})
	}
	if n := utf8.RuneCountInString(filename); n > MaxFilenameLength {
		return fmt.Errorf("%w: %w", ErrFilenameTooLong, &internal_errors.ValidationError{
			Field:   "filename",
			Message: fmt.Sprintf("filename has %d characters, the limit is %d", n, MaxFilenameLength),
		})
	}
	return nil
}

// DetectMimeType sniffs content first and falls back to the extension.
func DetectMimeType(filename string, content io.ReaderAt, size int64) string {
	if content != nil && size > 0 {
		if m, err := mimetype.DetectReader(io.NewSectionReader(content, 0, size)); err == nil {
			if t := m.String(); t != "" && !strings.HasPrefix(t, "application/octet-stream") {
				return t
			}
		}
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); t != "" {
		return t
	}
	return "application/octet-stream"
}

// ExtractImageDimensions returns nil, nil for non-images or undecodable headers.
func ExtractImageDimensions(content io.ReaderAt, size int64, mimeType string) (*int, *int) {
	// Only process images
	if !strings.HasPrefix(mimeType, "image/") || content == nil {
		return nil, nil
	}

	cfg, _, err := image.DecodeConfig(io.NewSectionReader(content, 0, size))
	if err != nil {
		return nil, nil
	}

	width, height := cfg.Width, cfg.Height
	return &width, &height
}
