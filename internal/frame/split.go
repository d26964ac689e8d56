// Package frame cuts half-frame scans into their two exposures and
// re-encodes halves for export.
package frame

import (
	"bytes"
	"errors"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // imaging already registers bmp and tiff
)

// Defaults used when a Splitter field is left zero.
const (
	DefaultPreviewMaxEdge  = 1200
	DefaultPreviewQuality  = 70
	DefaultOriginalQuality = 98
)

var errTooSmall = errors.New("image too small to split")

// Splitter decodes a scan and produces a SplitPair. The zero value is
// usable and encodes originals as PNG.
type Splitter struct {
	PreviewMaxEdge int
	PreviewQuality int

	// OriginalJPEG stores originals as JPEG at OriginalQuality instead
	// of lossless PNG.
	OriginalJPEG    bool
	OriginalQuality int

	// NewID overrides pair ID generation (tests).
	NewID func() string
}

// Split decodes r, cuts it along the detected axis and encodes a preview
// and an original for each half. Both halves start unrotated and
// unselected.
func (s *Splitter) Split(r io.Reader, fileName string) (SplitPair, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return SplitPair{}, &DecodeError{Name: fileName, Err: err}
	}

	b := img.Bounds()
	axis := Detect(b.Dx(), b.Dy())
	rects := halfRects(b, axis)
	if rects[0].Empty() {
		return SplitPair{}, &DecodeError{Name: fileName, Err: errTooSmall}
	}

	pair := SplitPair{
		ID:       s.newID(),
		FileName: fileName,
		Axis:     axis,
	}
	for _, side := range Sides {
		crop := imaging.Crop(img, rects[side])

		orig, err := s.encodeOriginal(crop)
		if err != nil {
			return SplitPair{}, &EncodeError{Name: fileName, Err: err}
		}
		prev, err := encodeJPEG(s.scalePreview(crop), s.previewQuality())
		if err != nil {
			return SplitPair{}, &EncodeError{Name: fileName, Err: err}
		}

		cb := crop.Bounds()
		pair.Halves[side] = Half{
			Preview:  prev,
			Original: orig,
			Width:    cb.Dx(),
			Height:   cb.Dy(),
		}
	}
	return pair, nil
}

// SplitBytes is Split over an in-memory file.
func (s *Splitter) SplitBytes(data []byte, fileName string) (SplitPair, error) {
	return s.Split(bytes.NewReader(data), fileName)
}

func (s *Splitter) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Splitter) previewQuality() int {
	if s.PreviewQuality > 0 {
		return s.PreviewQuality
	}
	return DefaultPreviewQuality
}

func (s *Splitter) encodeOriginal(img image.Image) ([]byte, error) {
	if s.OriginalJPEG {
		q := s.OriginalQuality
		if q <= 0 {
			q = DefaultOriginalQuality
		}
		return encodeJPEG(img, q)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// scalePreview shrinks img to fit within PreviewMaxEdge. Small images are
// returned as is.
func (s *Splitter) scalePreview(img image.Image) image.Image {
	maxEdge := s.PreviewMaxEdge
	if maxEdge <= 0 {
		maxEdge = DefaultPreviewMaxEdge
	}
	w, h := fitWithin(img.Bounds().Dx(), img.Bounds().Dy(), maxEdge)
	if w == img.Bounds().Dx() && h == img.Bounds().Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// fitWithin scales (w, h) down so the longer edge is at most maxEdge,
// keeping the aspect ratio and never going below one pixel.
func fitWithin(w, h, maxEdge int) (int, int) {
	long := w
	if h > long {
		long = h
	}
	if long <= maxEdge {
		return w, h
	}
	nw := w * maxEdge / long
	nh := h * maxEdge / long
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
