// Command texpaint paints scripted brush strokes onto a mesh texture and
// writes the composited result to an image file.
//
// Usage:
//
//	texpaint [-config paint.toml] [-backend soft|wgpu] [-size 512] [-output out.png] [-v]
//
// Without a config file it paints one stroke across a cube. Flags override
// the values read from the file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/texpaint"
	"github.com/gogpu/texpaint/backend"
	_ "github.com/gogpu/texpaint/backend/soft"
	_ "github.com/gogpu/texpaint/backend/wgpu"
	_ "github.com/gogpu/texpaint/control/seed"
	"github.com/gogpu/texpaint/gpucore"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "texpaint:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("texpaint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath  = fs.String("config", "", "TOML configuration file")
		backendName = fs.String("backend", "", "device backend; empty picks the first that opens")
		size        = fs.Int("size", 0, "texture size, overrides texture.size")
		output      = fs.String("output", "", "output image (.png, .jpg), overrides output")
		verbose     = fs.Bool("v", false, "log debug records")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := defaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath); err != nil {
			return err
		}
	}
	if *backendName != "" {
		cfg.Backend = *backendName
	}
	if *size > 0 {
		cfg.Texture.Size = *size
	}
	if *output != "" {
		cfg.Output = *output
	}
	if len(cfg.Actions) == 0 {
		cfg.Actions = defaultActions(cfg.Camera)
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	texpaint.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
	defer texpaint.SetLogger(nil)

	dev, err := openDevice(cfg.Backend)
	if err != nil {
		return err
	}
	defer func() { _ = dev.Close() }()

	s, err := newSession(ctx, dev, &cfg)
	if err != nil {
		return err
	}
	defer s.close()

	for i, a := range cfg.Actions {
		if err := s.do(ctx, a); err != nil {
			return fmt.Errorf("actions[%d] %s: %w", i, a.Kind, err)
		}
	}
	if err := s.c.SavePaintImage(ctx, cfg.Output); err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(stdout, "wrote %s: %d px texture, %d layers (%d bytes), %d bytes of undo snapshots, %s device\n",
		cfg.Output,
		cfg.Texture.Size,
		s.layers.Len(),
		s.layers.Len()*gpucore.TextureBytes(cfg.Texture.Size),
		s.cache.Bytes(),
		dev.Name())
	return nil
}

func openDevice(name string) (gpucore.Device, error) {
	if name == "" {
		return backend.Default()
	}
	return backend.Open(name)
}

// defaultActions drags one horizontal stroke across the middle of the view.
func defaultActions(cam cameraConfig) []action {
	w, h := float32(cam.Width), float32(cam.Height)
	var pts [][2]float32
	for i := range 9 {
		t := float32(i) / 8
		pts = append(pts, [2]float32{w * (0.3 + 0.4*t), h * 0.5})
	}
	return []action{{Kind: "stroke", Points: pts}}
}
