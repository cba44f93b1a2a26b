package layout

import (
	"fmt"
	"strings"

	"github.com/ByLCY/vellum/inline"
)

const defaultFontSize = 16.0

// textStyle 是沿盒子树向下继承的文本属性，取值已解析为普通值。
type textStyle struct {
	font       string // 字体资源名称
	size       float64
	rawSize    *Length
	weight     string // 为空时使用字体资源声明的字重
	fontStyle  string
	color      string
	mode       inline.WhitespaceMode
	lineHeight *LineHeightSpec
	indent     Length
}

// attributeKeys 是 box 与 text 命令接受的全部属性名。
var attributeKeys = map[string]bool{
	"width": true, "height": true,
	"padding": true, "padding-top": true, "padding-right": true, "padding-bottom": true, "padding-left": true,
	"gap": true, "background": true, "border": true, "border-width": true,
	"font": true, "font-family": true, "size": true, "font-size": true,
	"weight": true, "font-weight": true, "font-style": true, "color": true,
	"white-space": true, "line-height": true, "indent": true, "text-indent": true,
}

func isAttribute(key string) bool { return attributeKeys[key] }

// attrAliases 把别名映射到规范属性名。
var attrAliases = map[string]string{
	"font-family": "font",
	"font-size":   "size",
	"font-weight": "weight",
	"text-indent": "indent",
}

func canonicalKey(key string) string {
	key = strings.ToLower(key)
	if canon, ok := attrAliases[key]; ok {
		return canon
	}
	return key
}

// canonicalAttrs 把别名换成规范名；同一组属性里别名与规范名同时出现时报错。
func canonicalAttrs(attrs map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		key := canonicalKey(k)
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("属性 %s 与其别名不能同时声明", key)
		}
		out[key] = v
	}
	return out, nil
}

// inheritedKeys 固定可继承属性的处理顺序。
var inheritedKeys = []string{"font", "size", "weight", "font-style", "color", "white-space", "line-height", "indent"}

// inherit 用 attrs 中的可继承属性覆盖当前样式，返回新值。attrs 的键须已规范化。
func (s textStyle) inherit(attrs map[string]string) (textStyle, error) {
	for _, key := range inheritedKeys {
		val, ok := attrs[key]
		if !ok {
			continue
		}
		switch key {
		case "font":
			s.font = val
		case "size":
			l, ok := ParseLength(val)
			if !ok || l.Value <= 0 {
				return s, fmt.Errorf("字号 %q 无效", val)
			}
			s.size = l.ToPX(s.size)
			s.rawSize = &l
		case "weight":
			s.weight = val
		case "font-style":
			s.fontStyle = val
		case "color":
			s.color = val
		case "white-space":
			mode, err := inline.ParseWhitespaceMode(val)
			if err != nil {
				return s, err
			}
			s.mode = mode
		case "line-height":
			spec, ok := ParseLineHeight(val)
			if !ok {
				return s, fmt.Errorf("行高 %q 无效", val)
			}
			s.lineHeight = &spec
		case "indent":
			l, ok := ParseLength(val)
			if !ok {
				return s, fmt.Errorf("缩进 %q 无效", val)
			}
			s.indent = l
		}
	}
	return s, nil
}

// resolve 把继承样式落到具体字体资源上，得到随片段输出的 inline.Style。
func (s textStyle) resolve(res ResourceSet) (inline.Style, Color, error) {
	font, ok := res.Fonts[s.font]
	if !ok {
		return inline.Style{}, Color{}, fmt.Errorf("字体 %s 未定义", s.font)
	}
	weight := font.Weight
	if s.weight != "" {
		weight = inline.ParseFontWeight(s.weight)
	}
	if weight == 0 {
		weight = inline.WeightNormal
	}
	style := font.Style
	if s.fontStyle != "" {
		style = inline.ParseFontStyle(s.fontStyle)
	}
	family := font.Family
	if family == "" {
		family = font.Name
	}
	color, fill, ok := resolveColor(s.color, res)
	if !ok {
		Logger().Warn("颜色无法解析，使用默认颜色", "color", s.color)
	}
	return inline.Style{
		Font: inline.Font{Family: family, Size: s.size, Weight: weight, Style: style},
		Fill: fill,
	}, color, nil
}

// boxStyle 是盒子自身（不继承）的属性。
type boxStyle struct {
	width   *Length
	height  *Length
	padding edges
	border  float64
	gap     float64
	fill    *Color
	stroke  *Color
}

type edges struct {
	top, right, bottom, left float64
}

func (e edges) horizontal() float64 { return e.left + e.right }
func (e edges) vertical() float64   { return e.top + e.bottom }

// parseBoxStyle 解析盒子自身属性；内边距百分比相对包含块宽度 containing。
func parseBoxStyle(attrs map[string]string, res ResourceSet, containing float64) (boxStyle, error) {
	var b boxStyle
	length := func(key string) (Length, bool, error) {
		val, ok := attrs[key]
		if !ok {
			return Length{}, false, nil
		}
		l, ok := ParseLength(val)
		if !ok || l.Value < 0 {
			return Length{}, false, fmt.Errorf("%s 取值 %q 无效", key, val)
		}
		return l, true, nil
	}
	if l, ok, err := length("width"); err != nil {
		return b, err
	} else if ok {
		b.width = &l
	}
	if l, ok, err := length("height"); err != nil {
		return b, err
	} else if ok {
		b.height = &l
	}
	if l, ok, err := length("padding"); err != nil {
		return b, err
	} else if ok {
		v := l.ToPX(containing)
		b.padding = edges{v, v, v, v}
	}
	for _, side := range []struct {
		key string
		dst *float64
	}{
		{"padding-top", &b.padding.top},
		{"padding-right", &b.padding.right},
		{"padding-bottom", &b.padding.bottom},
		{"padding-left", &b.padding.left},
	} {
		if l, ok, err := length(side.key); err != nil {
			return b, err
		} else if ok {
			*side.dst = l.ToPX(containing)
		}
	}
	if l, ok, err := length("gap"); err != nil {
		return b, err
	} else if ok {
		b.gap = l.ToPX(0)
	}
	if v, ok := attrs["background"]; ok {
		c, _, ok := resolveColor(v, res)
		if !ok {
			return b, fmt.Errorf("背景颜色 %q 无法解析", v)
		}
		b.fill = &c
	}
	if v, ok := attrs["border"]; ok {
		c, _, ok := resolveColor(v, res)
		if !ok {
			return b, fmt.Errorf("边框颜色 %q 无法解析", v)
		}
		b.stroke = &c
		b.border = 1
	}
	if l, ok, err := length("border-width"); err != nil {
		return b, err
	} else if ok {
		b.border = l.ToPX(0)
	}
	return b, nil
}

// mergeStyleAttributes 先取样式资源的属性，再由行内属性覆盖。两者都按规范属性名合并。
func mergeStyleAttributes(style string, attrs map[string]string, styles map[string]Style) (map[string]string, error) {
	own, err := canonicalAttrs(attrs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if style != "" {
		s, ok := styles[style]
		if !ok {
			return nil, fmt.Errorf("style %s 未定义", style)
		}
		for k, v := range s.Props {
			out[canonicalKey(k)] = v
		}
	}
	for k, v := range own {
		out[k] = v
	}
	return out, nil
}
