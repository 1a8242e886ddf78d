package render

import (
	"context"
	"strings"
	"testing"

	derrors "github.com/checklistapp/diagram/pkg/errors"
)

func TestConvertMissingBinary(t *testing.T) {
	old := Converter
	Converter = "diagram-test-no-such-rsvg"
	t.Cleanup(func() { Converter = old })

	tests := []struct {
		name string
		fn   func() ([]byte, error)
	}{
		{"pdf", func() ([]byte, error) { return ToPDF(context.Background(), []byte("<svg/>")) }},
		{"png", func() ([]byte, error) { return ToPNG(context.Background(), []byte("<svg/>"), 2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			if !derrors.Is(err, derrors.ErrCodeInternal) {
				t.Fatalf("err = %v, want INTERNAL_ERROR", err)
			}
			if !strings.Contains(err.Error(), "librsvg") {
				t.Errorf("err = %q, want install hint", err)
			}
		})
	}
}
