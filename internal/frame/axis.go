package frame

import "image"

// Axis is the midline a frame is cut along.
type Axis int

const (
	// Vertical cuts a wide frame into left and right halves.
	Vertical Axis = iota
	// Horizontal cuts a tall or square frame into top and bottom halves.
	Horizontal
)

func (a Axis) String() string {
	if a == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Detect picks the split axis from pixel dimensions. Square frames fall
// into the horizontal branch.
func Detect(width, height int) Axis {
	if width > height {
		return Vertical
	}
	return Horizontal
}

// halfRects returns the source rectangles of the two halves. The boundary
// is floor(dim/2); on odd dimensions the last row or column belongs to
// neither half.
func halfRects(b image.Rectangle, axis Axis) [2]image.Rectangle {
	if axis == Vertical {
		half := b.Dx() / 2
		return [2]image.Rectangle{
			image.Rect(b.Min.X, b.Min.Y, b.Min.X+half, b.Max.Y),
			image.Rect(b.Min.X+half, b.Min.Y, b.Min.X+2*half, b.Max.Y),
		}
	}
	half := b.Dy() / 2
	return [2]image.Rectangle{
		image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+half),
		image.Rect(b.Min.X, b.Min.Y+half, b.Max.X, b.Min.Y+2*half),
	}
}
