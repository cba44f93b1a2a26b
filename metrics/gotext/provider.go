// Package gotext 基于 go-text/typesetting 的 HarfBuzz 整形实现字形度量，
// 结果计入字距与连字，和浏览器的测量方式一致。
package gotext

import (
	"bytes"
	"fmt"
	"math"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/vellum/fonts"
	"github.com/ByLCY/vellum/inline"
	"github.com/ByLCY/vellum/layout"
)

var _ layout.Typesetter = (*Provider)(nil)

// Provider 可被并发调用：解析后的 font.Font 只读共享，font.Face 每次度量新建，
// HarfbuzzShaper 通过 sync.Pool 复用。
type Provider struct {
	baseDir string
	table   layout.FontTable
	shapers sync.Pool

	mu    sync.RWMutex
	fonts map[string]*font.Font // 按 src 缓存
}

// New 创建度量后端；baseDir 用于解析相对路径的字体文件，为空时只允许 embed: 字体。
func New(baseDir string) *Provider {
	return &Provider{
		baseDir: baseDir,
		shapers: sync.Pool{New: func() any { return &shaping.HarfbuzzShaper{} }},
		fonts:   map[string]*font.Font{},
	}
}

// ResolveFont 加载字体数据并登记到字体表；src 失败时尝试 fallback。
func (p *Provider) ResolveFont(res layout.FontResource) error {
	if _, err := p.load(res.Src); err != nil {
		if res.Fallback == "" {
			return err
		}
		if _, ferr := p.load(res.Fallback); ferr != nil {
			return fmt.Errorf("%w（备用字体同样失败: %v）", err, ferr)
		}
		layout.Logger().Warn("字体加载失败，使用备用字体", "font", res.Name, "src", res.Src, "fallback", res.Fallback, "err", err)
		res.Src = res.Fallback
	}
	p.table.Add(res)
	return nil
}

// Measure 整形 text 并返回其前进宽度与字体纵向度量；空串只返回纵向度量（strut）。
func (p *Provider) Measure(f inline.Font, text string) (inline.Measurement, error) {
	if !(f.Size > 0) || math.IsInf(f.Size, 0) {
		return inline.Measurement{}, fmt.Errorf("gotext: 字号 %g 无效", f.Size)
	}
	fnt, err := p.fontFor(f)
	if err != nil {
		return inline.Measurement{}, err
	}

	runes := []rune(text)
	probe := runes
	if len(probe) == 0 {
		probe = []rune{' '}
	}
	input := shaping.Input{
		Text:      probe,
		RunStart:  0,
		RunEnd:    len(probe),
		Direction: di.DirectionLTR,
		Face:      font.NewFace(fnt),
		Size:      fixed.Int26_6(math.Round(f.Size * 64)),
		Script:    detectScript(probe),
		Language:  language.NewLanguage("en"),
	}
	shaper := p.shapers.Get().(*shaping.HarfbuzzShaper)
	out := shaper.Shape(input)
	p.shapers.Put(shaper)

	m := inline.Measurement{
		Ascent:  fixedToFloat(out.LineBounds.Ascent),
		Descent: math.Abs(fixedToFloat(out.LineBounds.Descent)),
	}
	m.LineHeight = m.Ascent + m.Descent + fixedToFloat(out.LineBounds.Gap)
	if len(runes) > 0 {
		m.Width = fixedToFloat(out.Advance)
	}
	return m, nil
}

func (p *Provider) fontFor(f inline.Font) (*font.Font, error) {
	res, ok := p.table.Lookup(f)
	if !ok {
		src := fonts.EmbedPrefix + fonts.Select(f.Weight, f.Style)
		layout.Logger().Debug("未注册的字体，使用内置字体", "family", f.Family, "src", src)
		return p.load(src)
	}
	return p.load(res.Src)
}

func (p *Provider) load(src string) (*font.Font, error) {
	p.mu.RLock()
	if f, ok := p.fonts[src]; ok {
		p.mu.RUnlock()
		return f, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.fonts[src]; ok {
		return f, nil
	}
	data, err := fonts.Read(src, p.baseDir)
	if err != nil {
		return nil, err
	}
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解析字体 %s 失败: %w", src, err)
	}
	p.fonts[src] = face.Font
	return face.Font, nil
}

// detectScript 取第一个非空白字符的书写系统。
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
