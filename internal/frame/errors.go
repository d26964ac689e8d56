package frame

import "fmt"

// DecodeError means a source file could not be read as an image.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError means a raster could not be serialized.
type EncodeError struct {
	Name string
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("encode: %v", e.Err)
	}
	return fmt.Sprintf("encode %q: %v", e.Name, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
