package layout

import (
	"fmt"
	"strconv"
	"strings"
)

var defaultColor = Color{}

// 常用 CSS 颜色关键字；填充属性保留关键字原文。
var namedColors = map[string]Color{
	"black":  {0, 0, 0},
	"white":  {255, 255, 255},
	"red":    {255, 0, 0},
	"green":  {0, 128, 0},
	"blue":   {0, 0, 255},
	"gray":   {128, 128, 128},
	"grey":   {128, 128, 128},
	"silver": {192, 192, 192},
	"navy":   {0, 0, 128},
	"orange": {255, 165, 0},
}

// ParseColor 解析 #rgb、#rrggbb、#rrggbbaa（忽略透明度）与常用颜色关键字。
func ParseColor(value string) (Color, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if c, ok := namedColors[v]; ok {
		return c, nil
	}
	hex, ok := strings.CutPrefix(v, "#")
	if !ok {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	n, err := strconv.ParseUint(hex[:6], 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析: %w", value, err)
	}
	return Color{R: int(n >> 16 & 0xff), G: int(n >> 8 & 0xff), B: int(n & 0xff)}, nil
}

// resolveColor 依次查找颜色资源、十六进制与关键字，返回颜色与写入片段的 fill 文本。
func resolveColor(value string, res ResourceSet) (Color, string, bool) {
	if value == "" {
		return defaultColor, "black", true
	}
	if c, ok := res.Colors[value]; ok {
		return c, c.Hex(), true
	}
	c, err := ParseColor(value)
	if err != nil {
		return defaultColor, "black", false
	}
	return c, value, true
}
