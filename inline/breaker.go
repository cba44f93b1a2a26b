package inline

import (
	"errors"
	"fmt"
	"math"
)

var errNilMetrics = errors.New("inline: metrics provider is nil")

// BreakOptions 为断行所需的参数。Width 为行内可用宽度；NaN 与 +Inf 视为不限宽。
// Indent 只作用于首行（等价于 text-indent）。
type BreakOptions struct {
	Mode   WhitespaceMode
	Width  float64
	Indent float64
	Font   Font
}

// Line 以下标区间 [Start, End) 引用 Paragraph 中的片段。
type Line struct {
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Width  float64 `json:"width"`
	Ascent float64 `json:"ascent"`
	Height float64 `json:"height"`
}

// Paragraph 是一次排版过程的片段仓库：Widths 与 Dropped 与 Segments 一一对应，
// 断行只在 Dropped 上做标记，不改动片段本身。
type Paragraph struct {
	Mode     WhitespaceMode `json:"mode"`
	Segments []Segment      `json:"segments"`
	Widths   []float64      `json:"widths"`
	Dropped  []bool         `json:"dropped"`
	Lines    []Line         `json:"lines"`
}

// effective 返回片段在当前模式下的实际语义：不保留换行的模式里，break 等同可折叠空白。
func (p *Paragraph) effective(i int) Segment {
	s := p.Segments[i]
	if s.Kind == SegmentBreak && !p.Mode.PreservesNewlines() {
		return Segment{Kind: SegmentSpace, Text: " ", Collapsible: true}
	}
	return s
}

// LineText 返回第 i 行保留下来的片段拼接（可折叠空白按单个空格计入）。
func (p *Paragraph) LineText(i int) string {
	ln := p.Lines[i]
	var out []byte
	for j := ln.Start; j < ln.End; j++ {
		if p.Dropped[j] {
			continue
		}
		s := p.effective(j)
		if s.Kind == SegmentBreak {
			continue
		}
		out = append(out, s.Text...)
	}
	return string(out)
}

type lineState uint8

const (
	stateAccumulating lineState = iota
	stateLineFull
	stateForcedBreak
)

func (s lineState) String() string {
	switch s {
	case stateLineFull:
		return "LINE_FULL"
	case stateForcedBreak:
		return "FORCED_BREAK"
	default:
		return "ACCUMULATING_LINE"
	}
}

type breaker struct {
	p     *Paragraph
	opts  BreakOptions
	strut Measurement

	line    int // index of the line being accumulated
	start   int
	width   float64
	content bool
	ascent  float64
	height  float64
}

// Break 把片段序列分配到行。每行至少容纳一个片段，因此任何宽度下都会终止。
func Break(segs []Segment, opts BreakOptions, m Metrics) (*Paragraph, error) {
	if err := opts.Mode.check(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errNilMetrics
	}
	strut, err := m.Measure(opts.Font, "")
	if err != nil {
		return nil, fmt.Errorf("inline: measure strut: %w", err)
	}
	p := &Paragraph{
		Mode:     opts.Mode,
		Segments: segs,
		Widths:   make([]float64, len(segs)),
		Dropped:  make([]bool, len(segs)),
	}
	b := &breaker{p: p, opts: opts, strut: strut}
	b.open(0)

	for i := range segs {
		seg := p.effective(i)
		if seg.Kind == SegmentBreak {
			b.apply(i, stateForcedBreak, strut)
			continue
		}
		meas, err := m.Measure(opts.Font, seg.Text)
		if err != nil {
			return nil, fmt.Errorf("inline: measure %q: %w", seg.Text, err)
		}
		p.Widths[i] = meas.Width
		if seg.Kind == SegmentSpace && seg.Collapsible && !b.content {
			// 行首的可折叠空白直接丢弃
			p.Dropped[i] = true
			continue
		}
		b.apply(i, b.next(seg, meas.Width), meas)
	}
	if b.pending(len(segs)) {
		b.close(len(segs))
	}
	return p, nil
}

// pending reports whether the open line holds any segment that survived dropping.
func (b *breaker) pending(end int) bool {
	for j := b.start; j < end; j++ {
		if !b.p.Dropped[j] {
			return true
		}
	}
	return false
}

// next decides the transition for a measured, non-break segment.
func (b *breaker) next(seg Segment, w float64) lineState {
	if !b.opts.Mode.Wraps() || !b.content || !seg.content() {
		return stateAccumulating
	}
	if b.width+w > b.available() {
		return stateLineFull
	}
	return stateAccumulating
}

func (b *breaker) apply(i int, state lineState, meas Measurement) {
	switch state {
	case stateForcedBreak:
		b.close(i)
		b.open(i)
		b.place(i, 0, b.strut)
	case stateLineFull:
		b.close(i)
		b.open(i)
		b.place(i, meas.Width, meas)
	default:
		b.place(i, meas.Width, meas)
	}
}

// available 返回当前行的可用宽度，NaN 按不限宽处理。
func (b *breaker) available() float64 {
	w := b.opts.Width
	if b.line == 0 {
		w -= b.opts.Indent
	}
	if math.IsNaN(w) {
		return math.Inf(1)
	}
	return w
}

func (b *breaker) open(i int) {
	b.start = i
	b.width = 0
	b.content = false
	b.ascent = b.strut.Ascent
	b.height = b.strut.LineHeight
}

func (b *breaker) place(i int, w float64, meas Measurement) {
	b.width += w
	if b.p.effective(i).content() {
		b.content = true
	}
	b.ascent = math.Max(b.ascent, meas.Ascent)
	b.height = math.Max(b.height, meas.LineHeight)
}

// close 去掉行尾的可折叠空白后收束 [start, end) 为一行。
func (b *breaker) close(end int) {
	p := b.p
	for j := end - 1; j >= b.start; j-- {
		if p.Dropped[j] {
			continue
		}
		s := p.effective(j)
		if s.Kind != SegmentSpace || !s.Collapsible {
			break
		}
		p.Dropped[j] = true
		b.width -= p.Widths[j]
	}
	p.Lines = append(p.Lines, Line{
		Start:  b.start,
		End:    end,
		Width:  b.width,
		Ascent: b.ascent,
		Height: b.height,
	})
	b.line++
}
