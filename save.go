package texpaint

import (
	"context"
	"fmt"

	"github.com/gogpu/texpaint/internal/image"
)

// SavePaintImage writes the composited texture to filename. The format
// follows the extension: .png, or .jpg/.jpeg. Any other extension returns
// ErrUnsupportedFormat and writes nothing.
func (c *Compositor) SavePaintImage(ctx context.Context, filename string) error {
	if _, err := image.FormatFromPath(filename); err != nil {
		c.logger().Warn("texpaint: save rejected", "file", filename, "err", err)
		return fmt.Errorf("texpaint: save: %w", err)
	}
	pix, err := c.ReadOutput(ctx)
	if err != nil {
		return err
	}
	if err := image.Save(filename, pix, c.size, c.size); err != nil {
		return fmt.Errorf("texpaint: save: %w", err)
	}
	c.logger().Info("texpaint: saved paint image", "file", filename)
	return nil
}
