package inline

import "math"

// Point is a box-relative coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Fragment 是最终输出的已定位文本片段。Y 为基线位置，与字形绘制约定一致。
type Fragment struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Style  Style   `json:"style"`
}

// Newline reports whether f is the zero-width marker emitted for a preserved line feed.
func (f Fragment) Newline() bool { return f.Text == "\n" }

// LineBox 记录一行在盒子内的位置，以及该行片段在 Result.Fragments 中的区间 [First, Last)。
type LineBox struct {
	Top      float64 `json:"top"`
	Baseline float64 `json:"baseline"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	First    int     `json:"first"`
	Last     int     `json:"last"`
	Text     string  `json:"text"`
}

// Result 是一次行内排版的输出。
type Result struct {
	Fragments []Fragment `json:"fragments"`
	Lines     []LineBox  `json:"lines"`
	Height    float64    `json:"height"`
}

// Width returns the widest line.
func (r *Result) Width() float64 {
	w := 0.0
	for _, ln := range r.Lines {
		w = math.Max(w, ln.Width)
	}
	return w
}

// Translate 将所有片段与行整体平移，用于先在原点排版、后由盒模型定位的场景。
func (r *Result) Translate(dx, dy float64) {
	for i := range r.Fragments {
		r.Fragments[i].X += dx
		r.Fragments[i].Y += dy
	}
	for i := range r.Lines {
		r.Lines[i].Top += dy
		r.Lines[i].Baseline += dy
	}
}

// PositionOptions 描述定位阶段的起点与透传样式。
type PositionOptions struct {
	Origin Point
	Indent float64
	Style  Style
}

// Position 为每一行计算基线并依次放置片段。可折叠空白只推进水平游标，不产生片段；
// 保留的换行在其所在行的起点产生一个零宽的 "\n" 片段。
func Position(p *Paragraph, opts PositionOptions) *Result {
	res := &Result{
		Fragments: make([]Fragment, 0, len(p.Segments)),
		Lines:     make([]LineBox, 0, len(p.Lines)),
	}
	cursor := opts.Origin.Y
	for li, ln := range p.Lines {
		x := opts.Origin.X
		if li == 0 {
			x += opts.Indent
		}
		baseline := cursor + ln.Ascent
		box := LineBox{
			Top:      cursor,
			Baseline: baseline,
			Width:    ln.Width,
			Height:   ln.Height,
			First:    len(res.Fragments),
			Text:     p.LineText(li),
		}
		for i := ln.Start; i < ln.End; i++ {
			if p.Dropped[i] {
				continue
			}
			seg := p.effective(i)
			w := p.Widths[i]
			if seg.Kind == SegmentSpace && seg.Collapsible {
				x += w
				continue
			}
			res.Fragments = append(res.Fragments, Fragment{
				Text:   seg.Text,
				X:      x,
				Y:      baseline,
				Width:  w,
				Height: ln.Height,
				Style:  opts.Style,
			})
			x += w
		}
		box.Last = len(res.Fragments)
		res.Lines = append(res.Lines, box)
		cursor += ln.Height
		res.Height += ln.Height
	}
	return res
}
