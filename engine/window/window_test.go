package window

import (
	"sync"
	"testing"
)

// newTestWindow builds a window without a platform backing, so platform calls are no-ops.
func newTestWindow() *engineWindow {
	w := &engineWindow{width: 640, height: 480, listenerMu: &sync.Mutex{}, listeners: make(map[int]func(bool))}
	w.size.Store(&windowSize{width: 640, height: 480, fbWidth: 640, fbHeight: 480})
	return w
}

func TestContentScale(t *testing.T) {
	tests := []struct {
		name string
		size windowSize
		want float64
	}{
		{name: "standard", size: windowSize{width: 640, height: 480, fbWidth: 640, fbHeight: 480}, want: 1},
		{name: "high dpi", size: windowSize{width: 640, height: 480, fbWidth: 1280, fbHeight: 960}, want: 2},
		{name: "minimized", size: windowSize{}, want: 1},
		{name: "smaller framebuffer", size: windowSize{width: 640, height: 480, fbWidth: 320, fbHeight: 240}, want: 1},
	}
	for _, tt := range tests {
		w := newTestWindow()
		w.updateSize(func(s *windowSize) { *s = tt.size })
		if got := w.ContentScale(); got != tt.want {
			t.Errorf("%s: ContentScale() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSetDisplaySizeWaitsForWindowThread(t *testing.T) {
	w := newTestWindow()

	w.SetDisplaySize(0, 100)
	if w.pendingSize.Load() != nil {
		t.Error("non-positive size was queued")
	}

	w.SetDisplaySize(800, 600)
	w.SetDisplaySize(1024, 768)
	if got := w.pendingSize.Load(); got == nil || *got != [2]int{1024, 768} {
		t.Fatalf("pending size = %v, want the latest request", got)
	}
	if w.Width() != 640 {
		t.Error("SetDisplaySize changed the size before the window thread applied it")
	}

	w.applyPendingSize()
	if w.pendingSize.Load() != nil {
		t.Error("pending size kept after it was applied")
	}
}

func TestSizeReadsDuringUpdates(t *testing.T) {
	w := newTestWindow()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 1000; i++ {
			w.updateSize(func(s *windowSize) { s.width, s.fbWidth = i, 2*i })
		}
	}()
	go func() {
		defer wg.Done()
		for range 1000 {
			if scale := w.ContentScale(); scale != 1 && scale != 2 {
				t.Errorf("ContentScale() = %v, want 1 or 2", scale)
				return
			}
		}
	}()
	wg.Wait()

	if w.Width() != 1000 {
		t.Errorf("Width() = %d, want 1000", w.Width())
	}
}
