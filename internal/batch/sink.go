package batch

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// Sink receives exported files.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
}

// DirSink writes each file into Dir via a temp file and rename, so a
// cancelled or failed export never leaves a half-written file behind.
type DirSink struct {
	Dir string
	// Overwrite replaces existing files; otherwise Put fails with
	// os.ErrExist.
	Overwrite bool
}

var renameFunc = os.Rename

func (s DirSink) Put(_ context.Context, name string, data []byte) error {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid file name %q", name)
	}
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return err
	}
	dst := filepath.Join(s.Dir, name)
	if !s.Overwrite {
		if _, err := os.Lstat(dst); err == nil {
			return fmt.Errorf("%s: %w", dst, os.ErrExist)
		} else if !os.IsNotExist(err) {
			return err
		}
	}

	tmp, err := os.CreateTemp(s.Dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil && runtime.GOOS != "windows" {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return renameFunc(tmpName, dst)
}

// File is one exported file held in memory.
type File struct {
	Name string
	Data []byte
}

// MemorySink keeps exported files in memory, in export order. Names are
// unique: putting a name twice fails with os.ErrExist and keeps the first
// file.
type MemorySink struct {
	mu    sync.RWMutex
	files []File
}

func (s *MemorySink) Put(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.files {
		if s.files[i].Name == name {
			return fmt.Errorf("%s: %w", name, os.ErrExist)
		}
	}
	s.files = append(s.files, File{Name: name, Data: data})
	return nil
}

// Get returns the data stored under name.
func (s *MemorySink) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.files {
		if f.Name == name {
			return f.Data, true
		}
	}
	return nil, false
}

// Names lists stored files in export order.
func (s *MemorySink) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f.Name)
	}
	return out
}

// Reset drops every stored file.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = nil
}

// WriteZip writes every stored file into a zip archive on w.
func (s *MemorySink) WriteZip(w io.Writer) error {
	s.mu.RLock()
	files := append([]File(nil), s.files...)
	s.mu.RUnlock()

	zs := NewZipSink(w)
	for _, f := range files {
		if err := zs.Put(context.Background(), f.Name, f.Data); err != nil {
			return err
		}
	}
	return zs.Close()
}

// ZipSink streams exported files into a zip archive. Close must be called
// to write the central directory.
type ZipSink struct {
	mu sync.Mutex
	zw *zip.Writer
}

func NewZipSink(w io.Writer) *ZipSink {
	return &ZipSink{zw: zip.NewWriter(w)}
}

func (s *ZipSink) Put(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Image data is already compressed.
	w, err := s.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (s *ZipSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zw.Close()
}
