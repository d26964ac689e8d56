package frame

import "fmt"

// Side names one of the two halves of a split frame. The first half is
// always Left and the second always Right, whatever the split axis.
type Side int

const (
	Left Side = iota
	Right
)

// Sides lists both halves in export order.
var Sides = [2]Side{Left, Right}

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Valid reports whether s is Left or Right.
func (s Side) Valid() bool {
	return s == Left || s == Right
}

// ParseSide maps "left"/"right" to a Side.
func ParseSide(v string) (Side, bool) {
	switch v {
	case "left":
		return Left, true
	case "right":
		return Right, true
	default:
		return 0, false
	}
}

// Half is one exposure cut out of a scanned frame.
type Half struct {
	Preview  []byte // lossy, downscaled; for display only
	Original []byte // full resolution crop; used for export
	Width    int    // of the original crop, before rotation
	Height   int

	// Rotation accumulates every delta the user applied. It is not
	// normalized until display or export (see Normalize).
	Rotation int
	Selected bool
}

// SplitPair is one imported frame and its two halves. Preview and
// Original bytes are never modified after Split returns them.
type SplitPair struct {
	ID       string
	FileName string
	Axis     Axis
	Halves   [2]Half
}

// Half returns a pointer to the half on side s.
func (p *SplitPair) Half(s Side) *Half {
	return &p.Halves[s]
}
