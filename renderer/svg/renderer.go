// Package svgrenderer 把布局结果序列化为 SVG：每个文本片段输出一个 <text> 元素，
// 坐标取自片段的基线位置，不嵌入字形轮廓。
package svgrenderer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"

	"github.com/ByLCY/vellum/inline"
	"github.com/ByLCY/vellum/layout"
	"github.com/ByLCY/vellum/renderer"
)

const mediaType = "image/svg+xml"

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the SVG renderer.
type Options struct {
	// Minify 通过 tdewolff/minify 压缩输出。
	Minify bool
}

// Renderer writes one <text> per fragment.
type Renderer struct {
	opts Options
	min  *minify.M
}

// New creates an SVG renderer.
func New(opts Options) *Renderer {
	r := &Renderer{opts: opts}
	if opts.Minify {
		r.min = minify.New()
		r.min.AddFunc(mediaType, svg.Minify)
	}
	return r
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

// Render 依次输出页面背景、盒子矩形与文本片段。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	var buf bytes.Buffer
	w, h := num(result.Width), num(result.Height)
	fmt.Fprintf(&buf, `<svg width="%s" height="%s" viewBox="0 0 %s %s" xmlns="http://www.w3.org/2000/svg">`, w, h, w, h)
	if result.Background != nil {
		fmt.Fprintf(&buf, `<rect x="0" y="0" width="%s" height="%s" fill="%s"/>`, w, h, result.Background.Hex())
	}
	for _, rc := range result.Rects {
		writeRect(&buf, rc)
	}
	for _, tb := range result.Texts {
		for _, frag := range tb.Fragments {
			writeFragment(&buf, frag, tb.Color)
		}
	}
	buf.WriteString("</svg>")

	if r.min == nil {
		return buf.Bytes(), nil
	}
	out, err := r.min.Bytes(mediaType, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("压缩 SVG 失败: %w", err)
	}
	return out, nil
}

func writeRect(buf *bytes.Buffer, rc layout.Rect) {
	fill := "none"
	if rc.FillColor != nil {
		fill = rc.FillColor.Hex()
	}
	fmt.Fprintf(buf, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s"`, num(rc.X), num(rc.Y), num(rc.Width), num(rc.Height), fill)
	if rc.StrokeColor != nil && rc.StrokeWidth > 0 {
		fmt.Fprintf(buf, ` stroke="%s" stroke-width="%s"`, rc.StrokeColor.Hex(), num(rc.StrokeWidth))
	}
	buf.WriteString("/>")
}

// writeFragment 输出单个片段；换行标记同样保留为零宽元素。
func writeFragment(buf *bytes.Buffer, f inline.Fragment, fallback layout.Color) {
	fill := f.Style.Fill
	if fill == "" {
		fill = fallback.Hex()
	}
	fmt.Fprintf(buf,
		`<text x="%s" y="%s" width="%s" height="%s" font-weight="%s" font-style="%s" font-size="%s" font-family="%s" fill="%s">`,
		num(f.X), num(f.Y), num(f.Width), num(f.Height),
		f.Style.Font.Weight, f.Style.Font.Style, num(f.Style.Font.Size),
		attrEscaper.Replace(f.Style.Font.Family), attrEscaper.Replace(fill))
	buf.WriteString(textEscaper.Replace(f.Text))
	buf.WriteString("</text>")
}

// num 使用最短的十进制表示，与 JavaScript 的数字格式一致。
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
