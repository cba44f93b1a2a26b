package layout

import (
	"fmt"

	"github.com/ByLCY/vellum/inline"
)

// 该文件定义布局结果与资源描述，供布局计算、渲染与调试 JSON 共用。所有坐标单位为 px，原点在左上角。

// Result 保存单页布局结果与资源信息。
type Result struct {
	Width      float64      `json:"width"`
	Height     float64      `json:"height"`
	Background *Color       `json:"background,omitempty"`
	Rects      []Rect       `json:"rects,omitempty"`
	Texts      []TextBox    `json:"texts"`
	Overflow   bool         `json:"overflow,omitempty"` // 内容高度超过页面
	Resources  ResourceSet  `json:"resources"`
	Meta       DocumentMeta `json:"meta"`
}

// ResourceSet 记录解析出的字体、颜色与样式定义。
type ResourceSet struct {
	Fonts  map[string]FontResource `json:"fonts"`
	Colors map[string]Color        `json:"colors"`
	Styles map[string]Style        `json:"styles"`
}

// FontResource 描述字体资源，src 可以是文件路径或 embed:<内置字体名>。
type FontResource struct {
	Name     string            `json:"name"`
	Src      string            `json:"src"`
	Family   string            `json:"family"` // 度量与渲染使用的 family 名称，默认同 Name
	Weight   inline.FontWeight `json:"weight"`
	Style    inline.FontStyle  `json:"style"`
	Fallback string            `json:"fallback,omitempty"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Hex 返回 #rrggbb 形式。
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R&0xff, c.G&0xff, c.B&0xff)
}

// TextBox 表示一个已经排好坐标的文本块。
// X/Y 为所在内容区的左上角，Width 为可用宽度，Height 为文本实际占用的高度。
type TextBox struct {
	Content   string                `json:"content"`
	X         float64               `json:"x"`
	Y         float64               `json:"y"`
	Width     float64               `json:"width"`
	Height    float64               `json:"height"`
	Mode      inline.WhitespaceMode `json:"whiteSpace"`
	Style     inline.Style          `json:"style"`
	Color     Color                 `json:"color"`
	Indent    float64               `json:"indent,omitempty"`
	Fragments []inline.Fragment     `json:"fragments"`
	Lines     []inline.LineBox      `json:"lines"`
	Overflow  bool                  `json:"overflow,omitempty"` // 内容超出所在盒子（只报告，不裁剪）
	Debug     *TextBoxDebug         `json:"debug,omitempty"`
}

// TextBoxDebug holds optional debug info displayed only when enabled by BuildOptions.
type TextBoxDebug struct {
	RawUnits *RawUnits `json:"rawUnits,omitempty"`
}

// RawUnits describes original author-specified units for key fields.
type RawUnits struct {
	FontSize   *RawLengthJSON     `json:"fontSize,omitempty"`
	LineHeight *RawLineHeightJSON `json:"lineHeight,omitempty"`
}

// RawLengthJSON is a JSON-friendly representation of Length.
type RawLengthJSON struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// RawLineHeightJSON is a JSON-friendly representation of LineHeightSpec.
type RawLineHeightJSON struct {
	Kind   string  `json:"kind"` // "factor" | "absolute"
	Factor float64 `json:"factor,omitempty"`
	Value  float64 `json:"value,omitempty"`
	Unit   string  `json:"unit,omitempty"`
}

// Rect 表示盒子的背景与边框（不包含圆角）。
type Rect struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	StrokeColor *Color  `json:"strokeColor,omitempty"` // 为空表示无边框
	StrokeWidth float64 `json:"strokeWidth"`
	FillColor   *Color  `json:"fillColor,omitempty"` // 为空表示不填充
}

// Style 用于描述可继承的样式。
type Style struct {
	Name    string            `json:"name"`
	Extends string            `json:"extends,omitempty"`
	Props   map[string]string `json:"props"`
}

// DocumentMeta 保存文档元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
