package visualization

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sballin/signal-tools/pkg/session"
)

// SessionWriter renders exported views to PNG files in a directory.
// It implements session.ExportWriter.
type SessionWriter struct {
	dir     string
	cmap    Colormap
	overlay bool
}

// NewSessionWriter creates the output directory and resolves the
// colormap name
func NewSessionWriter(dir, colormap string, overlay bool) (*SessionWriter, error) {
	cmap, err := ColormapByName(colormap)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating export directory: %w", err)
	}
	return &SessionWriter{dir: dir, cmap: cmap, overlay: overlay}, nil
}

// WriteView renders one exported frame. The inverted field always
// renders; the camera overlay renders when enabled and the view
// carries a reconstruction.
func (w *SessionWriter) WriteView(view *session.View) error {
	if view.Field != nil {
		name := filepath.Join(w.dir, fmt.Sprintf("frame_%06d_field.png", view.FrameIndex))
		if err := SavePNG(RenderField(view.Field, w.cmap), name); err != nil {
			return fmt.Errorf("error writing field image: %w", err)
		}
	}
	if w.overlay && view.Observed != nil && view.Reconstructed != nil {
		img, err := RenderOverlay(view.Observed, view.Reconstructed)
		if err != nil {
			return err
		}
		name := filepath.Join(w.dir, fmt.Sprintf("frame_%06d_overlay.png", view.FrameIndex))
		if err := SavePNG(img, name); err != nil {
			return fmt.Errorf("error writing overlay image: %w", err)
		}
	}
	return nil
}
