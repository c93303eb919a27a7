package consult

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ajuntament-olot/pla-usos/internal/report"
)

// newTestRenderer pins the report clock so rendered bytes are stable.
func newTestRenderer() *report.Renderer {
	fixed := time.Date(2026, time.March, 9, 11, 30, 0, 0, time.UTC)
	return report.NewRendererAt(func() time.Time { return fixed })
}

// testPNG encodes a small solid image standing in for a WMS map tile.
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 60, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.RGBA{R: 220, G: 230, B: 220, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
