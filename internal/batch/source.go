package batch

import (
	"bytes"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Source is one candidate file for import.
type Source struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// BytesSource wraps an in-memory upload.
func BytesSource(name, contentType string, data []byte) Source {
	return Source{
		Name:        name,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FileSource reads path lazily; its content type comes from the extension.
func FileSource(path string) Source {
	return Source{
		Name:        filepath.Base(path),
		ContentType: ContentTypeByExt(path),
		Open: func() (io.ReadCloser, error) {
			f, err := os.Open(filepath.Clean(path))
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",
}

// ContentTypeByExt guesses a content type from a file name. Scanner output
// formats are known locally since the system mime table often lacks TIFF.
func ContentTypeByExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := imageTypes[ext]; ok {
		return ct
	}
	return mime.TypeByExtension(ext)
}

// IsImage reports whether contentType is an image/* type.
func IsImage(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "image/")
}

// filterImages keeps image sources in their original order.
func filterImages(sources []Source) []Source {
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if IsImage(s.ContentType) {
			out = append(out, s)
		}
	}
	return out
}
