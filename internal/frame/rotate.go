package frame

import (
	"bytes"
	"image"
	"path"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultExportQuality is the JPEG quality used for exported halves.
const DefaultExportQuality = 100

// Normalize reduces an accumulated rotation to [0, 360).
func Normalize(deg int) int {
	n := deg % 360
	if n < 0 {
		n += 360
	}
	return n
}

// SwapsExtent reports whether rotating by deg swaps width and height.
func SwapsExtent(deg int) bool {
	n := Normalize(deg)
	return n == 90 || n == 270
}

// Rotate turns img clockwise by deg, which must be a multiple of 90.
// Rotating by the accumulated angle and by its normalized form give the
// same raster, so only the normalized value is used to pick a transform.
func Rotate(img image.Image, deg int) image.Image {
	// imaging rotates counter-clockwise.
	switch Normalize(deg) {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// Encoder re-orients halves and serializes them for download.
type Encoder struct {
	// Format is imaging.JPEG (default) or imaging.PNG.
	Format  imaging.Format
	Quality int
}

// Ext returns the file extension without the dot.
func (e *Encoder) Ext() string {
	if e.Format == imaging.PNG {
		return "png"
	}
	return "jpg"
}

// RotateAndEncode decodes an original half, rotates it by deg and encodes
// the result in the export format.
func (e *Encoder) RotateAndEncode(src []byte, deg int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	out, err := e.Encode(Rotate(img, deg))
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	return out, nil
}

// Encode serializes img in the export format.
func (e *Encoder) Encode(img image.Image) ([]byte, error) {
	if e.Format == imaging.PNG {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	q := e.Quality
	if q <= 0 {
		q = DefaultExportQuality
	}
	return encodeJPEG(img, q)
}

// ExportName builds "<base>_<side>.<ext>" where base is fileName without
// its last dot extension. Any directory part of fileName is ignored.
func ExportName(fileName string, side Side, ext string) string {
	base := path.Base(strings.ReplaceAll(fileName, `\`, "/"))
	if base == "." || base == "/" {
		base = ""
	}
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[:i]
	}
	return base + "_" + side.String() + "." + strings.TrimPrefix(ext, ".")
}
