package wgpu

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/texpaint/backend"
	"github.com/gogpu/texpaint/backend/soft"
	"github.com/gogpu/texpaint/gpucore"
)

// newNoopDevice wraps a noop HAL device. The noop queue completes every
// submission immediately and executes no commands.
func newNoopDevice(t *testing.T) *Device {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	d, err := NewFromHAL(open.Device, open.Queue, WithBackend(gputypes.BackendEmpty), WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("NewFromHAL: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
		open.Device.Destroy()
		instance.Destroy()
	})
	return d
}

func waitFence(t *testing.T, f gpucore.Fence) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.Wait(ctx); err != nil {
		t.Fatalf("fence: %v", err)
	}
}

func TestRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.NameWGPU) {
		t.Fatalf("%q backend not registered", backend.NameWGPU)
	}
}

func TestShadersCompile(t *testing.T) {
	for name, src := range map[string]string{
		"blend": blendShaderWGSL,
		"splat": splatShaderWGSL,
	} {
		t.Run(name, func(t *testing.T) {
			words, err := compileSPIRV(src)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			if len(words) == 0 || words[0] != 0x07230203 {
				t.Fatalf("not SPIR-V: %d words", len(words))
			}
		})
	}
}

func TestNewFromHALNil(t *testing.T) {
	if _, err := NewFromHAL(nil, nil); !errors.Is(err, errNilHAL) {
		t.Fatalf("err = %v, want %v", err, errNilHAL)
	}
}

func TestDevice(t *testing.T) {
	d := newNoopDevice(t)
	if d.Name() != backend.NameWGPU {
		t.Errorf("Name() = %q", d.Name())
	}
	for _, class := range []gpucore.QueueClass{gpucore.QueueGraphics, gpucore.QueueTransfer} {
		q := d.Queue(class)
		if q.Class() != class || q.Family() != Family {
			t.Errorf("queue %v: class %v family %d", class, q.Class(), q.Family())
		}
	}

	if _, err := d.CreateImage(gpucore.ImageDesc{Label: "bad", Width: 0, Height: 4}); err == nil {
		t.Error("CreateImage(0x4) succeeded")
	}
	if _, err := d.CreateSurfaceMap("bad", 2, make([]float32, 3)); !errors.Is(err, gpucore.ErrSizeMismatch) {
		t.Errorf("CreateSurfaceMap err = %v, want ErrSizeMismatch", err)
	}

	for _, kind := range []gpucore.PipelineKind{gpucore.PipelineBlendOver, gpucore.PipelineBlendErase, gpucore.PipelineSplat} {
		p, err := d.CreatePipeline(kind)
		if err != nil {
			t.Fatalf("CreatePipeline(%v): %v", kind, err)
		}
		if p.Kind() != kind {
			t.Errorf("Kind() = %v, want %v", p.Kind(), kind)
		}
		d.DestroyPipeline(p)
	}
	if _, err := d.CreatePipeline(gpucore.PipelineKind(9)); !errors.Is(err, gpucore.ErrPipelineKind) {
		t.Errorf("CreatePipeline(9) err = %v, want ErrPipelineKind", err)
	}
}

func TestCopyRoundTrip(t *testing.T) {
	d := newNoopDevice(t)
	img, err := d.CreateImage(gpucore.ImageDesc{Label: "accum", Width: 4, Height: 4})
	if err != nil {
		t.Fatal(err)
	}
	n := gpucore.TextureBytes(4)
	src := gpucore.NewHostBuffer("src", n)
	dst := gpucore.NewHostBuffer("dst", n)
	for i := range src.Bytes() {
		src.Bytes()[i] = byte(i)
	}
	for i := range dst.Bytes() {
		dst.Bytes()[i] = 0xff
	}

	enc, err := d.NewEncoder(gpucore.QueueTransfer, "copy")
	if err != nil {
		t.Fatal(err)
	}
	enc.CopyBufferToImage(src, img)
	enc.CopyImageToBuffer(img, dst)
	cb, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	f, err := d.Queue(gpucore.QueueTransfer).Submit(cb, gpucore.SubmitSync{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !src.InFlight() || !dst.InFlight() {
		t.Fatal("host buffers not retained by the submission")
	}

	waitFence(t, f)
	if src.InFlight() || dst.InFlight() {
		t.Error("host buffers still in flight after the fence")
	}
	if !f.Done() {
		t.Error("Done() = false after Wait")
	}
	// The noop queue runs no copies, so the readback delivers the zeroed
	// staging buffer.
	if !bytes.Equal(dst.Bytes(), make([]byte, n)) {
		t.Error("readback did not overwrite the host buffer")
	}
}

func TestGraphicsCommands(t *testing.T) {
	d := newNoopDevice(t)
	a, _ := d.CreateImage(gpucore.ImageDesc{Label: "a", Width: 8, Height: 8})
	b, _ := d.CreateImage(gpucore.ImageDesc{Label: "b", Width: 8, Height: 8})
	m, err := d.CreateSurfaceMap("surface", 8, make([]float32, 8*8*4))
	if err != nil {
		t.Fatal(err)
	}
	over, _ := d.CreatePipeline(gpucore.PipelineBlendOver)
	splat, _ := d.CreatePipeline(gpucore.PipelineSplat)

	enc, err := d.NewEncoder(gpucore.QueueGraphics, "paint")
	if err != nil {
		t.Fatal(err)
	}
	enc.Splat(splat, b, m, gpucore.SplatParams{Radius: 2, Tile: gpucore.VisibilityTile{Size: 1, Depth: []float32{1}}})
	enc.Blend(over, a, b, 1)
	enc.Clear(b)
	enc.Barrier(gpucore.ImageBarrier{Image: a, SrcFamily: Family, DstFamily: Family})
	cb, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	f, err := d.Queue(gpucore.QueueGraphics).Submit(cb, gpucore.SubmitSync{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFence(t, f)
	if err := d.WaitIdle(context.Background()); err != nil {
		t.Errorf("WaitIdle: %v", err)
	}
}

func TestEncoderErrors(t *testing.T) {
	d := newNoopDevice(t)
	other := soft.New()
	defer other.Close()

	img, _ := d.CreateImage(gpucore.ImageDesc{Label: "img", Width: 4, Height: 4})
	small, _ := d.CreateImage(gpucore.ImageDesc{Label: "small", Width: 2, Height: 2})
	foreign, _ := other.CreateImage(gpucore.ImageDesc{Label: "foreign", Width: 4, Height: 4})
	over, _ := d.CreatePipeline(gpucore.PipelineBlendOver)
	splat, _ := d.CreatePipeline(gpucore.PipelineSplat)

	tests := []struct {
		name   string
		class  gpucore.QueueClass
		record func(gpucore.Encoder)
		want   error
	}{
		{"blend on transfer", gpucore.QueueTransfer, func(e gpucore.Encoder) { e.Blend(over, img, img, 1) }, gpucore.ErrQueueCapability},
		{"clear on transfer", gpucore.QueueTransfer, func(e gpucore.Encoder) { e.Clear(img) }, gpucore.ErrQueueCapability},
		{"size mismatch", gpucore.QueueGraphics, func(e gpucore.Encoder) { e.Blend(over, img, small, 1) }, gpucore.ErrSizeMismatch},
		{"wrong pipeline", gpucore.QueueGraphics, func(e gpucore.Encoder) { e.Blend(splat, img, small, 1) }, gpucore.ErrPipelineKind},
		{"foreign image", gpucore.QueueGraphics, func(e gpucore.Encoder) { e.Clear(foreign) }, gpucore.ErrForeignResource},
		{"short host buffer", gpucore.QueueTransfer, func(e gpucore.Encoder) {
			e.CopyImageToBuffer(img, gpucore.NewHostBuffer("short", 3))
		}, gpucore.ErrSizeMismatch},
		{"ownership transfer", gpucore.QueueGraphics, func(e gpucore.Encoder) {
			e.Barrier(gpucore.ImageBarrier{Image: img, SrcFamily: Family, DstFamily: Family + 1})
		}, gpucore.ErrOwnership},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := d.NewEncoder(tt.class, tt.name)
			if err != nil {
				t.Fatal(err)
			}
			tt.record(enc)
			if _, err := enc.Finish(); !errors.Is(err, tt.want) {
				t.Errorf("Finish() err = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("finished", func(t *testing.T) {
		enc, _ := d.NewEncoder(gpucore.QueueGraphics, "finished")
		if _, err := enc.Finish(); err != nil {
			t.Fatal(err)
		}
		if _, err := enc.Finish(); !errors.Is(err, gpucore.ErrEncoderFinished) {
			t.Errorf("second Finish() err = %v", err)
		}
	})
}

func TestSubmitChecks(t *testing.T) {
	d := newNoopDevice(t)
	finish := func(class gpucore.QueueClass, label string) gpucore.CommandBuffer {
		t.Helper()
		enc, err := d.NewEncoder(class, label)
		if err != nil {
			t.Fatal(err)
		}
		cb, err := enc.Finish()
		if err != nil {
			t.Fatal(err)
		}
		return cb
	}
	gfx := d.Queue(gpucore.QueueGraphics)
	xfr := d.Queue(gpucore.QueueTransfer)

	if _, err := xfr.Submit(finish(gpucore.QueueGraphics, "wrong"), gpucore.SubmitSync{}); !errors.Is(err, gpucore.ErrWrongQueue) {
		t.Errorf("wrong queue err = %v", err)
	}

	cb := finish(gpucore.QueueGraphics, "twice")
	if _, err := gfx.Submit(cb, gpucore.SubmitSync{}); err != nil {
		t.Fatal(err)
	}
	if _, err := gfx.Submit(cb, gpucore.SubmitSync{}); !errors.Is(err, errResubmit) {
		t.Errorf("resubmit err = %v", err)
	}

	unsignaled := d.NewSemaphore("never")
	if _, err := xfr.Submit(finish(gpucore.QueueTransfer, "early"), gpucore.SubmitSync{
		Wait: []gpucore.Semaphore{unsignaled},
	}); !errors.Is(err, errUnsignaled) {
		t.Errorf("unsignaled wait err = %v", err)
	}

	sem := d.NewSemaphore("release")
	if _, err := gfx.Submit(finish(gpucore.QueueGraphics, "release"), gpucore.SubmitSync{
		Signal: []gpucore.Semaphore{sem},
	}); err != nil {
		t.Fatal(err)
	}
	f, err := xfr.Submit(finish(gpucore.QueueTransfer, "copy"), gpucore.SubmitSync{
		Wait: []gpucore.Semaphore{sem},
	})
	if err != nil {
		t.Fatalf("chained submit: %v", err)
	}
	waitFence(t, f)
	if _, err := gfx.Submit(finish(gpucore.QueueGraphics, "again"), gpucore.SubmitSync{
		Wait: []gpucore.Semaphore{sem},
	}); !errors.Is(err, gpucore.ErrSemaphoreReuse) {
		t.Errorf("second wait err = %v", err)
	}
	if _, err := gfx.Submit(finish(gpucore.QueueGraphics, "resignal"), gpucore.SubmitSync{
		Signal: []gpucore.Semaphore{sem},
	}); !errors.Is(err, gpucore.ErrSemaphoreReuse) {
		t.Errorf("second signal err = %v", err)
	}
}

func TestClosedDevice(t *testing.T) {
	d := newNoopDevice(t)
	enc, _ := d.NewEncoder(gpucore.QueueGraphics, "late")
	cb, _ := enc.Finish()
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateImage(gpucore.ImageDesc{Label: "x", Width: 1, Height: 1}); !errors.Is(err, gpucore.ErrDeviceClosed) {
		t.Errorf("CreateImage err = %v", err)
	}
	if _, err := d.NewEncoder(gpucore.QueueGraphics, "x"); !errors.Is(err, gpucore.ErrDeviceClosed) {
		t.Errorf("NewEncoder err = %v", err)
	}
	if _, err := d.Queue(gpucore.QueueGraphics).Submit(cb, gpucore.SubmitSync{}); !errors.Is(err, gpucore.ErrDeviceClosed) {
		t.Errorf("Submit err = %v", err)
	}
}

func TestSplatUniform(t *testing.T) {
	p := gpucore.SplatParams{
		Eye:      [3]float32{0, 0, 3},
		Viewport: [2]float32{16, 16},
		Center:   [2]float32{8, 4},
		Radius:   1.5,
		Color:    [4]float32{1, 0, 0, 1},
		Opacity:  0.5,
		Falloff:  0.25,
		Bias:     0.02,
		Tile:     gpucore.VisibilityTile{OriginX: -2, OriginY: 3, Size: 5, Depth: make([]float32, 25)},
	}
	p.ViewProj[15] = 1
	buf := splatUniform(&p, 16)
	if len(buf) != splatUniformSize {
		t.Fatalf("len = %d", len(buf))
	}

	f32 := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }
	checks := []struct {
		name string
		got  float32
		want float32
	}{
		{"view_proj[15]", f32(60), 1},
		{"eye.z", f32(72), 3},
		{"radius", f32(76), 1.5},
		{"color.r", f32(80), 1},
		{"viewport.x", f32(96), 16},
		{"center.y", f32(108), 4},
		{"opacity", f32(112), 0.5},
		{"falloff", f32(116), 0.25},
		{"bias", f32(120), 0.02},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if got := u32(124); got != 16 {
		t.Errorf("size = %d", got)
	}
	if got := int32(u32(128)); got != -2 {
		t.Errorf("tile origin x = %d", got)
	}
	if got := u32(136); got != 5 {
		t.Errorf("tile size = %d", got)
	}
	if got := u32(140); got != 1 {
		t.Errorf("has_tile = %d", got)
	}

	p.Tile.Depth = nil
	if got := binary.LittleEndian.Uint32(splatUniform(&p, 16)[140:]); got != 0 {
		t.Errorf("has_tile without depth = %d", got)
	}
	if got := len(tileDepth(&p.Tile)); got != 4 {
		t.Errorf("empty tile depth is %d bytes, want 4", got)
	}
}

func TestBlendUniform(t *testing.T) {
	buf := blendUniform(8, 4, 128)
	want := []uint32{8, 4, 128, 0}
	for i, w := range want {
		if got := binary.LittleEndian.Uint32(buf[i*4:]); got != w {
			t.Errorf("word %d = %d, want %d", i, got, w)
		}
	}
	if workgroups(8) != 1 || workgroups(9) != 2 || workgroups(1) != 1 {
		t.Errorf("workgroups = %d %d %d", workgroups(8), workgroups(9), workgroups(1))
	}
}
