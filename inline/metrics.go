package inline

import (
	"strconv"
	"strings"
	"sync"
)

// FontWeight uses the CSS numeric scale (400 normal, 700 bold).
type FontWeight int

const (
	WeightNormal FontWeight = 400
	WeightBold   FontWeight = 700
)

func (w FontWeight) String() string {
	switch w {
	case 0, WeightNormal:
		return "normal"
	case WeightBold:
		return "bold"
	default:
		return strconv.Itoa(int(w))
	}
}

// ParseFontWeight 接受 normal/bold/lighter/bolder 或 1-1000 的数值，无法识别时返回 normal。
func ParseFontWeight(s string) FontWeight {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "normal", "regular":
		return WeightNormal
	case "bold", "bolder":
		return WeightBold
	case "lighter", "light":
		return 300
	default:
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			return FontWeight(n)
		}
		return WeightNormal
	}
}

// FontStyle 对应 CSS font-style。
type FontStyle uint8

const (
	StyleNormal FontStyle = iota
	StyleItalic
	StyleOblique
)

func (s FontStyle) String() string {
	switch s {
	case StyleItalic:
		return "italic"
	case StyleOblique:
		return "oblique"
	default:
		return "normal"
	}
}

// ParseFontStyle returns StyleNormal for anything it does not recognise.
func ParseFontStyle(s string) FontStyle {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "italic":
		return StyleItalic
	case "oblique":
		return StyleOblique
	default:
		return StyleNormal
	}
}

// Font 描述一次度量所需的全部字体参数，按值传递。
type Font struct {
	Family string     `json:"family"`
	Size   float64    `json:"size"`
	Weight FontWeight `json:"weight"`
	Style  FontStyle  `json:"style"`
}

// Style 是随片段透传给序列化器的样式属性。
type Style struct {
	Font Font   `json:"font"`
	Fill string `json:"fill"`
}

// Measurement 为一段文本的水平宽度与所在字体的纵向度量（均为正值）。
type Measurement struct {
	Width      float64 `json:"width"`
	Ascent     float64 `json:"ascent"`
	Descent    float64 `json:"descent"`
	LineHeight float64 `json:"lineHeight"`
}

// Metrics 是字形度量提供者。实现必须是确定性的，并且可被多个 goroutine 并发调用。
// 字体缺失等错误原样返回，排版核心不做任何替代。
type Metrics interface {
	Measure(font Font, text string) (Measurement, error)
}

// MetricsFunc adapts a plain function to Metrics.
type MetricsFunc func(font Font, text string) (Measurement, error)

func (f MetricsFunc) Measure(font Font, text string) (Measurement, error) { return f(font, text) }

type cacheKey struct {
	font Font
	text string
}

// CachedMetrics 在任意 Metrics 之上加一层带锁的结果缓存，错误不缓存。
// 零值不会 panic，但没有下游提供者时 Measure 返回错误。
type CachedMetrics struct {
	next Metrics

	mu    sync.RWMutex
	cache map[cacheKey]Measurement
}

// NewCachedMetrics wraps m with a memo cache.
func NewCachedMetrics(m Metrics) *CachedMetrics {
	return &CachedMetrics{next: m, cache: map[cacheKey]Measurement{}}
}

func (c *CachedMetrics) Measure(font Font, text string) (Measurement, error) {
	key := cacheKey{font: font, text: text}
	c.mu.RLock()
	m, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}
	if c.next == nil {
		return Measurement{}, errNilMetrics
	}
	m, err := c.next.Measure(font, text)
	if err != nil {
		return Measurement{}, err
	}
	c.mu.Lock()
	if c.cache == nil {
		c.cache = map[cacheKey]Measurement{}
	}
	c.cache[key] = m
	c.mu.Unlock()
	return m, nil
}

// Len returns the number of cached measurements.
func (c *CachedMetrics) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
