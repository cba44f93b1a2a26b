// Package fonts 提供内置字体数据与字体来源解析。
//
// 内置字体来自 Go 字体家族（golang.org/x/image/font/gofont），
// 在文档中以 "embed:go-regular" 的形式引用。
package fonts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ByLCY/vellum/inline"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// EmbedPrefix 标记内置字体来源。
const EmbedPrefix = "embed:"

// Default 是找不到匹配字体时使用的内置字体。
const Default = "go-regular"

// ErrUnknownFont 表示请求的内置字体不存在。
var ErrUnknownFont = errors.New("fonts: unknown built-in font")

var builtin = map[string][]byte{
	"go-regular":    goregular.TTF,
	"go-medium":     gomedium.TTF,
	"go-bold":       gobold.TTF,
	"go-italic":     goitalic.TTF,
	"go-bolditalic": gobolditalic.TTF,
	"go-mono":       gomono.TTF,
}

// Names 返回全部内置字体名称（已排序）。
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Load 返回内置字体的字节数据，name 可写为 "embed:go-bold" 或直接 "go-bold"。
func Load(name string) ([]byte, error) {
	key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, EmbedPrefix)))
	data, ok := builtin[key]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: %w", name, ErrUnknownFont)
	}
	return data, nil
}

// Select 按字重与字形挑选最接近的内置字体名称。
func Select(weight inline.FontWeight, style inline.FontStyle) string {
	slanted := style != inline.StyleNormal
	switch {
	case weight >= inline.WeightBold && slanted:
		return "go-bolditalic"
	case weight >= inline.WeightBold:
		return "go-bold"
	case slanted:
		return "go-italic"
	case weight >= 500:
		return "go-medium"
	default:
		return Default
	}
}

// Read 解析字体来源：embed: 前缀读取内置字体，其余视为相对 baseDir 的文件路径。
// baseDir 为空时不允许直接使用文件路径。
func Read(src, baseDir string) ([]byte, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("字体来源为空")
	}
	if strings.HasPrefix(src, EmbedPrefix) {
		return Load(src)
	}
	if baseDir == "" {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 embed:）", src)
	}
	path := src
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体文件 %s 失败: %w", path, err)
	}
	return data, nil
}
