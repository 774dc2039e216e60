package layer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/texpaint/gpucore"
)

func newStore(t *testing.T, size, maxLayers int) *Store {
	t.Helper()
	s, err := New(size, maxLayers)
	if err != nil {
		t.Fatalf("New(%d, %d): %v", size, maxLayers, err)
	}
	return s
}

func TestNew(t *testing.T) {
	s := newStore(t, 4, 3)
	if s.Len() != 1 || s.Cap() != 3 || s.Size() != 4 {
		t.Fatalf("Len/Cap/Size = %d/%d/%d, want 1/3/4", s.Len(), s.Cap(), s.Size())
	}
	if s.ActiveID() != 0 {
		t.Errorf("ActiveID() = %d, want 0", s.ActiveID())
	}
	if ev := s.TakeEvents(); len(ev) != 0 {
		t.Errorf("fresh store has events %v", ev)
	}
	if got := s.Active().Buffer.Len(); got != gpucore.TextureBytes(4) {
		t.Errorf("layer buffer = %d bytes", got)
	}
}

func TestNewInvalid(t *testing.T) {
	tests := []struct {
		name            string
		size, maxLayers int
	}{
		{"zero size", 0, 4},
		{"zero layers", 4, 0},
		{"negative", -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.size, tt.maxLayers); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestCreateLayerCapacity(t *testing.T) {
	s := newStore(t, 2, 3)
	for want := ID(1); want < 3; want++ {
		id, err := s.CreateLayer()
		if err != nil {
			t.Fatalf("CreateLayer: %v", err)
		}
		if id != want {
			t.Errorf("CreateLayer() = %d, want %d", id, want)
		}
	}
	if _, err := s.CreateLayer(); !errors.Is(err, ErrCapacity) {
		t.Fatalf("CreateLayer at capacity: err = %v, want ErrCapacity", err)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d after failed create", s.Len())
	}
	if s.ActiveID() != 0 {
		t.Errorf("CreateLayer moved the active layer to %d", s.ActiveID())
	}

	want := []Event{{Kind: EventCreated, Layer: 1}, {Kind: EventCreated, Layer: 2}}
	if diff := cmp.Diff(want, s.TakeEvents()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestLayersHaveDistinctBuffers(t *testing.T) {
	s := newStore(t, 2, 2)
	id, _ := s.CreateLayer()
	l0, _ := s.Layer(0)
	l1, _ := s.Layer(id)
	l1.Buffer.Bytes()[0] = 9
	if l0.Buffer.Bytes()[0] != 0 {
		t.Error("layers share backing memory")
	}
}

func TestNavigationBoundaries(t *testing.T) {
	s := newStore(t, 2, 3)
	s.CreateLayer()
	s.CreateLayer()
	s.TakeEvents()

	if id, ok := s.DecrementActive(); ok || id != 0 {
		t.Errorf("DecrementActive at 0 = (%d, %v), want (0, false)", id, ok)
	}
	if s.ActiveID() != 0 {
		t.Fatalf("active moved to %d", s.ActiveID())
	}

	for want := ID(1); want <= 2; want++ {
		id, ok := s.IncrementActive()
		if !ok || id != want {
			t.Fatalf("IncrementActive() = (%d, %v), want (%d, true)", id, ok, want)
		}
	}
	if id, ok := s.IncrementActive(); ok || id != 0 {
		t.Errorf("IncrementActive at top = (%d, %v), want (0, false)", id, ok)
	}
	if s.ActiveID() != 2 {
		t.Errorf("active = %d after failed increment, want 2", s.ActiveID())
	}

	want := []Event{
		{Kind: EventChanged, Layer: 1, Prev: 0},
		{Kind: EventChanged, Layer: 2, Prev: 1},
	}
	if diff := cmp.Diff(want, s.TakeEvents()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if ev := s.TakeEvents(); ev != nil {
		t.Errorf("second TakeEvents = %v, want nil", ev)
	}
}

func TestCopyTextureToLayer(t *testing.T) {
	const size = 2
	s := newStore(t, size, 2)
	pixels := []byte{
		1, 2, 3, 4, 5, 6, 7, 8,
		9, 10, 11, 12, 13, 14, 15, 16,
	}

	buf, err := s.CopyTextureToLayer(0, pixels, size, size)
	if err != nil {
		t.Fatalf("CopyTextureToLayer: %v", err)
	}
	if diff := cmp.Diff(pixels, buf.Bytes()); diff != "" {
		t.Errorf("buffer mismatch (-want +got):\n%s", diff)
	}
	pixels[0] = 99
	if buf.Bytes()[0] != 1 {
		t.Error("buffer aliases the caller's slice")
	}
	if diff := cmp.Diff([]Event{{Kind: EventUploaded, Layer: 0}}, s.TakeEvents()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestCopyTextureToLayerErrors(t *testing.T) {
	const size = 2
	s := newStore(t, size, 2)
	ok := make([]byte, gpucore.TextureBytes(size))

	tests := []struct {
		name   string
		id     ID
		pixels []byte
		w, h   int
		want   error
	}{
		{"unknown layer", 1, ok, size, size, ErrUnknownLayer},
		{"negative id", -1, ok, size, size, ErrUnknownLayer},
		{"wrong width", 0, ok, size + 1, size, ErrSizeMismatch},
		{"wrong height", 0, ok, size, 1, ErrSizeMismatch},
		{"short pixels", 0, ok[:3], size, size, ErrSizeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.CopyTextureToLayer(tt.id, tt.pixels, tt.w, tt.h); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if ev := s.TakeEvents(); len(ev) != 0 {
		t.Errorf("failed uploads recorded events %v", ev)
	}
}

func TestCopyTextureToLayerInFlight(t *testing.T) {
	s := newStore(t, 1, 1)
	buf := s.Active().Buffer
	buf.Retain()
	if _, err := s.CopyTextureToLayer(0, []byte{1, 2, 3, 4}, 1, 1); !errors.Is(err, ErrBufferInFlight) {
		t.Fatalf("err = %v, want ErrBufferInFlight", err)
	}
	buf.Release()
	if _, err := s.CopyTextureToLayer(0, []byte{1, 2, 3, 4}, 1, 1); err != nil {
		t.Fatalf("after release: %v", err)
	}
}

func TestSummarize(t *testing.T) {
	events := []Event{
		{Kind: EventCreated, Layer: 1},
		{Kind: EventChanged, Layer: 1, Prev: 0},
		{Kind: EventUploaded, Layer: 0},
		{Kind: EventChanged, Layer: 2, Prev: 1},
		{Kind: EventUploaded, Layer: 0},
		{Kind: EventUploaded, Layer: 2},
		{Kind: EventCreated, Layer: 2},
	}
	want := Summary{Changed: true, From: 0, To: 2, Created: 2, Uploaded: []ID{0, 2}}
	if diff := cmp.Diff(want, Summarize(events)); diff != "" {
		t.Errorf("Summarize mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Summary{}, Summarize(nil)); diff != "" {
		t.Errorf("Summarize(nil) mismatch (-want +got):\n%s", diff)
	}
}
