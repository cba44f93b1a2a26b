// Package canvasrenderer 基于 github.com/tdewolff/canvas 度量并绘制布局结果，输出 SVG 或 PDF。
package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/vellum/fonts"
	"github.com/ByLCY/vellum/inline"
	"github.com/ByLCY/vellum/layout"
	"github.com/ByLCY/vellum/renderer"
)

// Format 选择输出格式。
type Format int

const (
	FormatSVG Format = iota
	FormatPDF
)

func (f Format) String() string {
	if f == FormatPDF {
		return "pdf"
	}
	return "svg"
}

// Renderer draws layout results via github.com/tdewolff/canvas.
// 它同时实现 layout.Typesetter，使度量与绘制使用同一套字体。
type Renderer struct {
	baseDir string
	format  Format
	table   layout.FontTable

	fontMu   sync.Mutex
	families map[string]*canvas.FontFamily // 按小写 family 名
	builtins map[string]*canvas.FontFamily // 按内置字体名，用于未注册的 family
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Format  Format
}

// NewRenderer creates a canvas-based SVG renderer rooted at baseDir for resolving fonts.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with the given output format.
func NewRendererWithOptions(opts Options) *Renderer {
	return &Renderer{
		baseDir:  opts.BaseDir,
		format:   opts.Format,
		families: map[string]*canvas.FontFamily{},
		builtins: map[string]*canvas.FontFamily{},
	}
}

// ResolveFont 把字体数据载入对应 family 的字形槽位；src 失败时尝试 fallback。
func (r *Renderer) ResolveFont(res layout.FontResource) error {
	data, err := fonts.Read(res.Src, r.baseDir)
	if err != nil {
		if res.Fallback == "" {
			return err
		}
		fb, ferr := fonts.Read(res.Fallback, r.baseDir)
		if ferr != nil {
			return fmt.Errorf("%w（备用字体同样失败: %v）", err, ferr)
		}
		layout.Logger().Warn("字体加载失败，使用备用字体", "font", res.Name, "src", res.Src, "fallback", res.Fallback, "err", err)
		data, res.Src = fb, res.Fallback
	}

	name := familyName(res)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	family, ok := r.families[strings.ToLower(name)]
	if !ok {
		family = canvas.NewFontFamily(name)
	}
	if err := family.LoadFont(data, 0, canvasStyle(res.Weight, res.Style)); err != nil {
		return fmt.Errorf("解析字体 %s 失败: %w", res.Name, err)
	}
	r.families[strings.ToLower(name)] = family
	r.table.Add(res)
	return nil
}

// Measure 返回 text 的前进宽度与字体纵向度量，单位为 px。
// canvas 的字体面以 pt 创建、度量以 mm 返回，这里在边界处换算。
// 宽度按 cmap 与 hmtx 逐字形累加，见 shapeRun。
func (r *Renderer) Measure(f inline.Font, text string) (inline.Measurement, error) {
	if !(f.Size > 0) || math.IsInf(f.Size, 0) {
		return inline.Measurement{}, fmt.Errorf("canvas: 字号 %g 无效", f.Size)
	}
	face, err := r.face(f)
	if err != nil {
		return inline.Measurement{}, err
	}

	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	fm := face.Metrics()
	m := inline.Measurement{
		Ascent:     fm.Ascent * layout.PxPerMm,
		Descent:    math.Abs(fm.Descent) * layout.PxPerMm,
		LineHeight: fm.LineHeight * layout.PxPerMm,
	}
	if text != "" {
		m.Width = textWidth(face, text) * layout.PxPerMm
	}
	return m, nil
}

// face 只用于取 SFNT 与 mm/字体单位换算，填充色在绘制时单独设置。
func (r *Renderer) face(f inline.Font) (*canvas.FontFace, error) {
	family, style, err := r.familyFor(f)
	if err != nil {
		return nil, err
	}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	return family.Face(f.Size/layout.PxPerPt, style, canvas.FontNormal), nil
}

func (r *Renderer) familyFor(f inline.Font) (*canvas.FontFamily, canvas.FontStyle, error) {
	if res, ok := r.table.Lookup(f); ok {
		r.fontMu.Lock()
		family, ok := r.families[strings.ToLower(familyName(res))]
		r.fontMu.Unlock()
		if ok {
			return family, canvasStyle(res.Weight, res.Style), nil
		}
	}
	name := fonts.Select(f.Weight, f.Style)
	layout.Logger().Debug("family 未注册，使用内置字体", "family", f.Family, "registered", r.table.Families(), "font", name)
	family, err := r.builtin(name)
	if err != nil {
		return nil, canvas.FontRegular, err
	}
	return family, canvas.FontRegular, nil
}

func (r *Renderer) builtin(name string) (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if family, ok := r.builtins[name]; ok {
		return family, nil
	}
	data, err := fonts.Load(name)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("vellum-" + name)
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("解析内置字体 %s 失败: %w", name, err)
	}
	layout.Logger().Debug("使用内置字体", "font", name)
	r.builtins[name] = family
	return family, nil
}

// Render 绘制背景、盒子与所有文本片段，并按 Format 编码。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if !(result.Width > 0) || !(result.Height > 0) {
		return nil, fmt.Errorf("页面尺寸无效: %gx%g", result.Width, result.Height)
	}

	w, h := toMm(result.Width), toMm(result.Height)
	c := canvas.New(w, h)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

	if result.Background != nil {
		ctx.SetFillColor(colorFromLayout(*result.Background))
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(0, 0, canvas.Rectangle(w, h))
	}
	r.drawRects(ctx, result.Rects)
	for _, tb := range result.Texts {
		if err := r.drawTextBox(ctx, tb); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	switch r.format {
	case FormatPDF:
		writer := pdf.New(&buf, w, h, nil)
		applyMeta(writer, result.Meta)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 PDF 失败: %w", err)
		}
	default:
		writer := svg.New(&buf, w, h, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 SVG 失败: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// drawTextBox 在每个片段的基线处填充字形轮廓；换行标记与纯空白片段不产生字形。
func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox) error {
	for _, frag := range tb.Fragments {
		if frag.Newline() || strings.TrimSpace(frag.Text) == "" {
			continue
		}
		col := tb.Color
		if c, err := layout.ParseColor(frag.Style.Fill); err == nil {
			col = c
		}
		face, err := r.face(frag.Style.Font)
		if err != nil {
			return err
		}
		r.fontMu.Lock()
		path, err := outline(face, strings.ReplaceAll(frag.Text, "\t", " "))
		r.fontMu.Unlock()
		if err != nil {
			return fmt.Errorf("绘制 %q 失败: %w", frag.Text, err)
		}
		ctx.SetFillColor(colorFromLayout(col))
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(toMm(frag.X), toMm(frag.Y), path)
	}
	return nil
}

func (r *Renderer) drawRects(ctx *canvas.Context, rects []layout.Rect) {
	for _, rc := range rects {
		if rc.FillColor != nil {
			ctx.SetFillColor(colorFromLayout(*rc.FillColor))
		} else {
			ctx.SetFillColor(canvas.Transparent)
		}
		if rc.StrokeColor != nil && rc.StrokeWidth > 0 {
			ctx.SetStrokeColor(colorFromLayout(*rc.StrokeColor))
			ctx.SetStrokeWidth(toMm(rc.StrokeWidth))
		} else {
			ctx.SetStrokeColor(canvas.Transparent)
		}
		ctx.DrawPath(toMm(rc.X), toMm(rc.Y), canvas.Rectangle(toMm(rc.Width), toMm(rc.Height)))
	}
}

func familyName(res layout.FontResource) string {
	if res.Family != "" {
		return res.Family
	}
	return res.Name
}

// canvasStyle 把字重与字形映射到 canvas 的字体槽位。
func canvasStyle(weight inline.FontWeight, style inline.FontStyle) canvas.FontStyle {
	var result canvas.FontStyle
	switch {
	case weight >= 900:
		result = canvas.FontBlack
	case weight >= 800:
		result = canvas.FontExtraBold
	case weight >= 700:
		result = canvas.FontBold
	case weight >= 600:
		result = canvas.FontSemiBold
	case weight >= 500:
		result = canvas.FontMedium
	case weight > 0 && weight <= 300:
		result = canvas.FontLight
	default:
		result = canvas.FontRegular
	}
	if style != inline.StyleNormal {
		result |= canvas.FontItalic
	}
	return result
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toMm 将布局使用的 px 换算为 canvas 的 mm。
func toMm(px float64) float64 { return px / layout.PxPerMm }
