package control

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/texpaint/layer"
)

type stubModule struct{ name string }

func (m *stubModule) Name() string    { return m.name }
func (m *stubModule) Init(Host) error { return nil }
func (m *stubModule) Close() error    { return nil }

func withRegistry(t *testing.T) {
	t.Helper()
	registryMu.Lock()
	saved := modules
	modules = make(map[string]Factory)
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		modules = saved
		registryMu.Unlock()
	})
}

func TestRegistry(t *testing.T) {
	withRegistry(t)
	Register("b", func(map[string]any) (Module, error) { return &stubModule{name: "b"}, nil })
	Register("a", func(map[string]any) (Module, error) { return nil, errors.New("boom") })

	if diff := cmp.Diff([]string{"a", "b"}, Available()); diff != "" {
		t.Errorf("Available() mismatch (-want +got):\n%s", diff)
	}

	m, err := Load("b", nil)
	if err != nil || m.Name() != "b" {
		t.Fatalf("Load(b) = (%v, %v)", m, err)
	}
	if _, err := Load("a", nil); err == nil {
		t.Error("Load(a) succeeded, want factory error")
	}
	if _, err := Load("missing", nil); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("Load(missing) err = %v, want ErrModuleNotFound", err)
	}

	Unregister("b")
	if _, err := Load("b", nil); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("Load after Unregister err = %v", err)
	}
}

func TestStoreHost(t *testing.T) {
	store, err := layer.New(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	h := NewHost(store)

	if h.TextureSize() != 2 || h.Layers() != 1 {
		t.Fatalf("TextureSize/Layers = %d/%d", h.TextureSize(), h.Layers())
	}
	id, err := h.CreateLayer()
	if err != nil || id != 1 {
		t.Fatalf("CreateLayer() = (%d, %v)", id, err)
	}
	if id, ok := h.IncrementLayer(); !ok || id != 1 {
		t.Errorf("IncrementLayer() = (%d, %v)", id, ok)
	}
	if _, ok := h.IncrementLayer(); ok {
		t.Error("IncrementLayer past the top succeeded")
	}
	if id, ok := h.DecrementLayer(); !ok || id != 0 {
		t.Errorf("DecrementLayer() = (%d, %v)", id, ok)
	}

	pix := make([]byte, 16)
	pix[0] = 7
	if err := h.CopyTextureToLayer(1, pix, 2, 2); err != nil {
		t.Fatal(err)
	}
	l, _ := store.Layer(1)
	if l.Buffer.Bytes()[0] != 7 {
		t.Error("pixels not copied")
	}
	if err := h.CopyTextureToLayer(1, pix, 3, 3); !errors.Is(err, layer.ErrSizeMismatch) {
		t.Errorf("err = %v, want layer.ErrSizeMismatch", err)
	}
}
