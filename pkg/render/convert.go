package render

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	derrors "github.com/checklistapp/diagram/pkg/errors"
)

// Converter is the rsvg-convert binary used by [ToPDF] and [ToPNG]. Tests
// point it at a missing path to exercise the install hint.
var Converter = "rsvg-convert"

const installHint = "install librsvg (macOS: brew install librsvg, Linux: apt install librsvg2-bin)"

// ToPDF converts an SVG preview to PDF.
func ToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	return convert(ctx, svg, "pdf")
}

// ToPNG converts an SVG preview to PNG. Scale 2 doubles the resolution;
// non-positive scales fall back to 1.
func ToPNG(ctx context.Context, svg []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 1
	}
	return convert(ctx, svg, "png", "--zoom", strconv.FormatFloat(scale, 'f', 2, 64))
}

func convert(ctx context.Context, svg []byte, format string, args ...string) ([]byte, error) {
	bin, err := exec.LookPath(Converter)
	if err != nil {
		return nil, derrors.New(derrors.ErrCodeInternal, "%s export needs %s: %s", format, Converter, installHint)
	}

	cmd := exec.CommandContext(ctx, bin, append([]string{"--format", format}, args...)...)
	cmd.Stdin = bytes.NewReader(svg)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, derrors.Wrap(derrors.ErrCodeTimeout, ctx.Err(), "%s export", format)
		}
		return nil, derrors.Wrap(derrors.ErrCodeInternal, err, "%s export: %s", format, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
