package viz

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/vk/calcgrid/internal/ctxlog"
)

// WriteDOT writes the Graphviz source of the projection to w.
func (p *Projection) WriteDOT(w io.Writer) error {
	_, err := io.WriteString(w, p.DOT())
	return err
}

// WriteDOTFile writes the Graphviz source of the projection to a file.
func (p *Projection) WriteDOTFile(path string) error {
	if err := os.WriteFile(path, []byte(p.DOT()), 0o644); err != nil {
		return fmt.Errorf("failed to write dot file %s: %w", path, err)
	}
	return nil
}

// Render pipes the projection through an external Graphviz program (usually
// "dot") and writes the rendered bytes in the requested format to w.
func (p *Projection) Render(ctx context.Context, w io.Writer, format, prog string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Rendering projection.", "format", format, "prog", prog)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, prog, "-T"+format)
	cmd.Stdin = strings.NewReader(p.DOT())
	cmd.Stdout = w
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", prog, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// RenderFile renders the projection to a file via an external Graphviz
// program, e.g. RenderFile(ctx, "gas.pdf", "pdf", "dot").
func (p *Projection) RenderFile(ctx context.Context, path, format, prog string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := p.Render(ctx, f, format, prog); err != nil {
		return err
	}
	return f.Close()
}
