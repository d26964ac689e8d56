// Package registry keeps the ordered list of split pairs for one workspace.
package registry

import (
	"errors"
	"sync"

	"halfframe/internal/frame"
)

var (
	// ErrNoPair is returned for an index or ID that is not in the registry.
	ErrNoPair = errors.New("no such pair")
	// ErrBadAngle is returned for rotations that are not a multiple of 90.
	ErrBadAngle = errors.New("rotation must be a multiple of 90 degrees")
	// ErrBadSide is returned for a side other than Left or Right.
	ErrBadSide = errors.New("invalid side")
)

// Registry is an ordered collection of SplitPair; insertion order is
// import order. Callers get copies, never pointers into the slice, so a
// pair can only change through the methods below.
type Registry struct {
	mu    sync.RWMutex
	pairs []frame.SplitPair
}

func New() *Registry {
	return &Registry{}
}

// Append adds pairs at the end.
func (r *Registry) Append(pairs ...frame.SplitPair) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs = append(r.pairs, pairs...)
}

// RemoveAt deletes the pair at index i.
func (r *Registry) RemoveAt(i int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.pairs) {
		return ErrNoPair
	}
	r.pairs = append(r.pairs[:i], r.pairs[i+1:]...)
	return nil
}

// Clear removes every pair.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs = nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pairs)
}

// At returns a copy of the pair at index i.
func (r *Registry) At(i int) (frame.SplitPair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.pairs) {
		return frame.SplitPair{}, ErrNoPair
	}
	return r.pairs[i], nil
}

// IndexOf returns the current index of the pair with the given ID, or -1.
func (r *Registry) IndexOf(id string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.pairs {
		if r.pairs[i].ID == id {
			return i
		}
	}
	return -1
}

// Snapshot copies the current pairs. Later mutations of the registry do
// not show up in the returned slice.
func (r *Registry) Snapshot() []frame.SplitPair {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]frame.SplitPair, len(r.pairs))
	copy(out, r.pairs)
	return out
}

// SetRotation stores angle as the rotation of one half.
func (r *Registry) SetRotation(i int, side frame.Side, angle int) error {
	if angle%90 != 0 {
		return ErrBadAngle
	}
	return r.update(i, side, func(h *frame.Half) { h.Rotation = angle })
}

// Rotate adds delta to the stored rotation and returns the new raw value.
// The stored value is not normalized.
func (r *Registry) Rotate(i int, side frame.Side, delta int) (int, error) {
	if delta%90 != 0 {
		return 0, ErrBadAngle
	}
	var got int
	err := r.update(i, side, func(h *frame.Half) {
		h.Rotation += delta
		got = h.Rotation
	})
	return got, err
}

// ToggleSelected flips the selection of one half and returns the new state.
func (r *Registry) ToggleSelected(i int, side frame.Side) (bool, error) {
	var got bool
	err := r.update(i, side, func(h *frame.Half) {
		h.Selected = !h.Selected
		got = h.Selected
	})
	return got, err
}

// SetAllSelected selects or deselects every half.
func (r *Registry) SetAllSelected(selected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.pairs {
		for _, side := range frame.Sides {
			r.pairs[i].Halves[side].Selected = selected
		}
	}
}

// SelectedCount counts selected halves across all pairs.
func (r *Registry) SelectedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return CountSelected(r.pairs)
}

// CountSelected counts selected halves in pairs.
func CountSelected(pairs []frame.SplitPair) int {
	n := 0
	for i := range pairs {
		for _, side := range frame.Sides {
			if pairs[i].Halves[side].Selected {
				n++
			}
		}
	}
	return n
}

func (r *Registry) update(i int, side frame.Side, fn func(h *frame.Half)) error {
	if !side.Valid() {
		return ErrBadSide
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.pairs) {
		return ErrNoPair
	}
	fn(&r.pairs[i].Halves[side])
	return nil
}
