package batch

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"halfframe/internal/frame"
)

type recordObserver struct {
	mu sync.Mutex

	starts   []int
	done     []string
	failed   []string
	currents []int
	finals   []Progress

	onDone func(name string)
}

func (o *recordObserver) OnStart(_ Kind, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts = append(o.starts, total)
}

func (o *recordObserver) OnItemDone(_ Kind, name string, p Progress) {
	o.mu.Lock()
	o.done = append(o.done, name)
	o.currents = append(o.currents, p.Current)
	hook := o.onDone
	o.mu.Unlock()
	if hook != nil {
		hook(name)
	}
}

func (o *recordObserver) OnItemFailed(_ Kind, name string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, name)
}

func (o *recordObserver) OnFinish(_ Kind, p Progress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finals = append(o.finals, p)
}

func scanPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imageSource(t *testing.T, name string) Source {
	t.Helper()
	return BytesSource(name, "image/png", scanPNG(t, 40, 20))
}

func testSplitter() *frame.Splitter {
	return &frame.Splitter{PreviewMaxEdge: 16}
}

func ctx() context.Context {
	return context.Background()
}
