// Package rasterrenderer 使用 fogleman/gg 将布局结果光栅化为 PNG。
package rasterrenderer

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/ByLCY/vellum/fonts"
	"github.com/ByLCY/vellum/inline"
	"github.com/ByLCY/vellum/layout"
	"github.com/ByLCY/vellum/renderer"
)

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the raster renderer.
type Options struct {
	BaseDir string
	// Scale 为设备像素比，<=0 视为 1。
	Scale float64
}

type faceKey struct {
	src  string
	size float64
}

// Renderer 按 Result.Resources 中登记的字体绘制片段，未登记的 family 使用内置字体。
type Renderer struct {
	opts Options

	renderMu sync.Mutex // truetype 字形面不可并发使用

	mu    sync.Mutex
	fonts map[string]*truetype.Font
	faces map[faceKey]font.Face
}

// New creates a PNG renderer.
func New(opts Options) *Renderer {
	if !(opts.Scale > 0) {
		opts.Scale = 1
	}
	return &Renderer{
		opts:  opts,
		fonts: map[string]*truetype.Font{},
		faces: map[faceKey]font.Face{},
	}
}

// Render 光栅化背景、盒子与文本片段，返回 PNG 数据。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if !(result.Width > 0) || !(result.Height > 0) {
		return nil, fmt.Errorf("页面尺寸无效: %gx%g", result.Width, result.Height)
	}
	r.renderMu.Lock()
	defer r.renderMu.Unlock()

	scale := r.opts.Scale
	dc := gg.NewContext(int(math.Ceil(result.Width*scale)), int(math.Ceil(result.Height*scale)))
	dc.Scale(scale, scale)

	if result.Background != nil {
		setColor(dc, *result.Background)
		dc.Clear()
	}
	for _, rc := range result.Rects {
		dc.DrawRectangle(rc.X, rc.Y, rc.Width, rc.Height)
		if rc.FillColor != nil {
			setColor(dc, *rc.FillColor)
			dc.FillPreserve()
		}
		if rc.StrokeColor != nil && rc.StrokeWidth > 0 {
			setColor(dc, *rc.StrokeColor)
			dc.SetLineWidth(rc.StrokeWidth)
			dc.StrokePreserve()
		}
		dc.ClearPath()
	}

	var table layout.FontTable
	for _, name := range sortedNames(result.Resources.Fonts) {
		table.Add(result.Resources.Fonts[name])
	}
	for _, tb := range result.Texts {
		for _, frag := range tb.Fragments {
			if frag.Newline() || strings.TrimSpace(frag.Text) == "" {
				continue
			}
			face, err := r.face(&table, frag.Style.Font)
			if err != nil {
				return nil, err
			}
			col := tb.Color
			if c, err := layout.ParseColor(frag.Style.Fill); err == nil {
				col = c
			}
			setColor(dc, col)
			dc.SetFontFace(face)
			dc.DrawString(strings.ReplaceAll(frag.Text, "\t", " "), frag.X, frag.Y)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("写入 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// face 返回按设备像素缩放后的字形面；DPI 取 72 使字号单位与 px 一致。
func (r *Renderer) face(table *layout.FontTable, f inline.Font) (font.Face, error) {
	res, ok := table.Lookup(f)
	if !ok {
		res = layout.FontResource{Src: fonts.EmbedPrefix + fonts.Select(f.Weight, f.Style)}
		layout.Logger().Debug("family 未注册，使用内置字体", "family", f.Family, "registered", table.Families(), "src", res.Src)
	}
	size := f.Size * r.opts.Scale

	r.mu.Lock()
	defer r.mu.Unlock()
	ttf, src, err := r.load(res)
	if err != nil {
		return nil, err
	}
	key := faceKey{src: src, size: size}
	if face, ok := r.faces[key]; ok {
		return face, nil
	}
	face := truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
	r.faces[key] = face
	return face, nil
}

// load 依次尝试 src 与 fallback，调用方需持有 r.mu。
func (r *Renderer) load(res layout.FontResource) (*truetype.Font, string, error) {
	var firstErr error
	for _, src := range []string{res.Src, res.Fallback} {
		if src == "" {
			continue
		}
		if ttf, ok := r.fonts[src]; ok {
			return ttf, src, nil
		}
		data, err := fonts.Read(src, r.opts.BaseDir)
		if err == nil {
			var ttf *truetype.Font
			if ttf, err = truetype.Parse(data); err == nil {
				r.fonts[src] = ttf
				return ttf, src, nil
			}
			err = fmt.Errorf("解析字体 %s 失败: %w", src, err)
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("字体 %s 缺少 src", res.Name)
	}
	return nil, "", firstErr
}

func setColor(dc *gg.Context, c layout.Color) {
	dc.SetRGB255(c.R, c.G, c.B)
}

func sortedNames(m map[string]layout.FontResource) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
