package rasterrenderer

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/ByLCY/vellum/inline"
	"github.com/ByLCY/vellum/layout"
)

func sampleResult() *layout.Result {
	ink := layout.Color{}
	return &layout.Result{
		Width:      120,
		Height:     40,
		Background: &layout.Color{R: 255, G: 255, B: 255},
		Rects:      []layout.Rect{{X: 100, Y: 0, Width: 20, Height: 40, FillColor: &layout.Color{R: 255}}},
		Texts: []layout.TextBox{{
			Color: ink,
			Fragments: []inline.Fragment{
				{Text: "Hello", X: 4, Y: 24, Width: 40, Height: 30, Style: inline.Style{Font: inline.Font{Family: "Body", Size: 24}}},
				{Text: "\n", X: 4, Y: 54, Style: inline.Style{Font: inline.Font{Family: "Body", Size: 24}}},
			},
		}},
		Resources: layout.ResourceSet{Fonts: map[string]layout.FontResource{
			"Body": {Name: "Body", Src: "embed:missing", Fallback: "embed:go-bold", Family: "Body"},
		}},
	}
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func TestRenderPNG(t *testing.T) {
	out, err := New(Options{}).Render(sampleResult())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img := decode(t, out)
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 40 {
		t.Fatalf("size = %v", b)
	}
	if r, g, b, _ := img.At(60, 35).RGBA(); r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Fatalf("background pixel = %d %d %d", r>>8, g>>8, b>>8)
	}
	if r, g, _, _ := img.At(110, 20).RGBA(); r>>8 != 255 || g>>8 != 0 {
		t.Fatalf("rect pixel = %d %d", r>>8, g>>8)
	}
	dark := 0
	for y := 4; y < 28; y++ {
		for x := 4; x < 60; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r>>8 < 128 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Fatalf("no glyph pixels drawn")
	}
}

func TestRenderScale(t *testing.T) {
	out, err := New(Options{Scale: 2}).Render(sampleResult())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if b := decode(t, out).Bounds(); b.Dx() != 240 || b.Dy() != 80 {
		t.Fatalf("scaled size = %v", b)
	}
}

func TestRenderErrors(t *testing.T) {
	r := New(Options{})
	if _, err := r.Render(nil); err == nil {
		t.Fatalf("nil result should fail")
	}
	res := sampleResult()
	res.Resources.Fonts["Body"] = layout.FontResource{Name: "Body", Src: "embed:missing"}
	if _, err := r.Render(res); err == nil {
		t.Fatalf("unloadable font should fail")
	}
}
