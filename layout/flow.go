package layout

import (
	"fmt"
	"math"
	"runtime"

	"github.com/ByLCY/vellum/binding"
	"github.com/ByLCY/vellum/dsl"
	"github.com/ByLCY/vellum/inline"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

type builder struct {
	res     ResourceSet
	data    any
	opts    BuildOptions
	metrics inline.Metrics
	runs    []*textRun
}

// node 是第一遍构建出的盒子树节点；text 非空时为文本节点。
type node struct {
	text     *textRun
	box      boxStyle
	width    float64 // 边框盒宽度
	root     bool    // 页面根节点，内容区高度取页面高度
	children []*node
}

func (n *node) contentWidth() float64 {
	return math.Max(n.width-n.box.padding.horizontal()-2*n.box.border, 0)
}

// fixedHeight 解析显式高度。百分比相对包含块的内容高度 avail，
// avail 为负表示包含块高度不确定，此时百分比高度按 auto 处理。
func (n *node) fixedHeight(avail float64) (float64, bool) {
	h := n.box.height
	if h == nil {
		return 0, false
	}
	if h.Unit == UnitPercent {
		if avail < 0 {
			return 0, false
		}
		return h.ToPX(avail), true
	}
	return h.ToPX(0), true
}

// textRun 持有单个文本块的输入与排版结果，各 run 之间不共享可变数据。
type textRun struct {
	content string
	opts    inline.Options
	metrics inline.Metrics
	color   Color
	raw     *RawUnits
	result  *inline.Result
}

// buildPage 分三步：建树并确定宽度、并行排版全部文本块、自上而下放置盒子。
func (b *builder) buildPage(section *dsl.PageSection) (*Result, error) {
	width, height, attrs, err := parsePageParams(section.Params)
	if err != nil {
		return nil, err
	}
	b.metrics = inline.NewCachedMetrics(b.opts.Typesetter)

	base := textStyle{
		font: defaultFontName(b.res.Fonts),
		size: defaultFontSize,
		mode: inline.WhitespaceNormal,
	}
	root, err := b.newBox(attrs, base, width, section.Block)
	if err != nil {
		return nil, err
	}
	root.width = width
	root.root = true
	if err := b.layoutRuns(); err != nil {
		return nil, err
	}

	out := &Result{Width: width, Height: height, Rects: []Rect{}, Texts: []TextBox{}}
	if root.box.fill != nil {
		bg := *root.box.fill
		out.Background = &bg
		root.box.fill = nil
	}
	used := b.place(root, 0, 0, height, out)
	if used > height {
		out.Overflow = true
		for i := range out.Texts {
			if tb := &out.Texts[i]; tb.Y+tb.Height > height {
				tb.Overflow = true
			}
		}
		Logger().Warn("内容高度超过页面", "content", used, "page", height)
	}
	return out, nil
}

// parsePageParams 读取 page 头部：宽、高，以及其后的 key value 属性。
func parsePageParams(params []*dsl.Lexeme) (float64, float64, map[string]string, error) {
	if len(params) < 2 {
		return 0, 0, nil, fmt.Errorf("page 需要宽度与高度")
	}
	var size [2]float64
	for i := range size {
		l, ok := ParseLength(params[i].Value)
		if !ok || l.Unit == UnitPercent || l.Unit == UnitFactor || l.Value <= 0 {
			return 0, 0, nil, fmt.Errorf("page 尺寸 %q 无效", params[i].Value)
		}
		size[i] = l.ToPX(0)
	}
	rest := params[2:]
	if len(rest)%2 == 1 {
		return 0, 0, nil, fmt.Errorf("page 属性 %q 缺少取值", rest[len(rest)-1].Value)
	}
	attrs := map[string]string{}
	for i := 0; i < len(rest); i += 2 {
		attrs[rest[i].Value] = rest[i+1].Value
	}
	attrs, err := canonicalAttrs(attrs)
	if err != nil {
		return 0, 0, nil, err
	}
	return size[0], size[1], attrs, nil
}

// newBox 解析盒子属性与子节点。width 为父内容区宽度，用于解析百分比。
func (b *builder) newBox(attrs map[string]string, inherited textStyle, parentWidth float64, block *dsl.Block) (*node, error) {
	style, err := inherited.inherit(attrs)
	if err != nil {
		return nil, err
	}
	box, err := parseBoxStyle(attrs, b.res, parentWidth)
	if err != nil {
		return nil, err
	}
	n := &node{box: box, width: parentWidth}
	if box.width != nil {
		n.width = box.width.ToPX(parentWidth)
	}
	if block == nil {
		return n, nil
	}
	inner := n.contentWidth()
	for _, stmt := range block.Statements {
		switch {
		case stmt.Text != nil:
			child, err := b.newText(string(stmt.Text.Value), style, inner)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, child)
		case stmt.Command != nil:
			child, err := b.newCommand(stmt.Command, style, inner)
			if err != nil {
				return nil, err
			}
			if child != nil {
				n.children = append(n.children, child)
			}
		}
	}
	return n, nil
}

func (b *builder) newCommand(cmd *dsl.Command, style textStyle, width float64) (*node, error) {
	switch cmd.Name {
	case "box", "text":
	default:
		// 其余命令暂未实现，忽略即可
		Logger().Debug("忽略未知命令", "name", cmd.Name, "pos", cmd.Pos.String())
		return nil, nil
	}
	styleName, attrs, err := cmd.Attributes(isAttribute)
	if err != nil {
		return nil, err
	}
	attrs, err = mergeStyleAttributes(styleName, attrs, b.res.Styles)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
	}
	if cmd.Name == "box" {
		n, err := b.newBox(attrs, style, width, cmd.Block)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
		}
		return n, nil
	}

	if cmd.Block == nil {
		return nil, fmt.Errorf("%s: text 语句缺少文本块", cmd.Pos)
	}
	style, err = style.inherit(attrs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
	}
	textWidth := width
	if v, ok := attrs["width"]; ok {
		l, ok := ParseLength(v)
		if !ok {
			return nil, fmt.Errorf("%s: 文本宽度 %q 无效", cmd.Pos, v)
		}
		textWidth = l.ToPX(width)
	}
	n, err := b.newText(cmd.Block.Text(), style, textWidth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
	}
	return n, nil
}

// newText 登记一个文本块，width 为可用宽度。
func (b *builder) newText(raw string, style textStyle, width float64) (*node, error) {
	st, color, err := style.resolve(b.res)
	if err != nil {
		return nil, err
	}
	content := norm.NFC.String(binding.Interpolate(raw, b.data))
	run := &textRun{
		content: content,
		opts: inline.Options{
			Mode:   style.mode,
			Width:  width,
			Indent: style.indent.ToPX(width),
			Style:  st,
		},
		metrics: b.metrics,
		color:   color,
	}
	if style.lineHeight != nil {
		run.metrics = leadingMetrics{Metrics: b.metrics, lineHeight: style.lineHeight.Resolve(style.size)}
	}
	if b.opts.Debug.RawUnits {
		run.raw = rawUnitsOf(style)
	}
	b.runs = append(b.runs, run)
	return &node{text: run, width: width}, nil
}

// layoutRuns 在原点并行排版全部文本块；度量错误会中止整个构建。
func (b *builder) layoutRuns() error {
	workers := b.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for _, run := range b.runs {
		g.Go(func() error {
			r, err := inline.Layout(run.content, run.opts, run.metrics)
			if err != nil {
				return fmt.Errorf("排版文本 %q 失败: %w", preview(run.content), err)
			}
			run.result = r
			Logger().Debug("文本排版完成",
				"text", preview(run.content),
				"mode", run.opts.Mode.String(),
				"width", run.opts.Width,
				"lines", len(r.Lines),
				"fragments", len(r.Fragments))
			return nil
		})
	}
	return g.Wait()
}

// place 将节点放到 (x, y)，返回其占用的高度。avail 是包含块的内容高度，负值表示不确定。
func (b *builder) place(n *node, x, y, avail float64, out *Result) float64 {
	if n.text != nil {
		return placeText(n, x, y, out)
	}

	rectIdx := -1
	if n.box.fill != nil || n.box.stroke != nil {
		rectIdx = len(out.Rects)
		out.Rects = append(out.Rects, Rect{FillColor: n.box.fill, StrokeColor: n.box.stroke, StrokeWidth: n.box.border})
	}
	firstText := len(out.Texts)

	chrome := n.box.padding.vertical() + 2*n.box.border
	fixed, definite := n.fixedHeight(avail)
	inner := -1.0
	switch {
	case definite:
		inner = math.Max(fixed-chrome, 0)
	case n.root && avail >= 0:
		inner = math.Max(avail-chrome, 0)
	}

	innerX := x + n.box.border + n.box.padding.left
	innerY := y + n.box.border + n.box.padding.top
	cursor := innerY
	for i, child := range n.children {
		if i > 0 {
			cursor += n.box.gap
		}
		cursor += b.place(child, innerX, cursor, inner, out)
	}
	height := cursor - innerY + chrome
	if definite {
		height = fixed
		limit := innerY + inner
		for i := firstText; i < len(out.Texts); i++ {
			if tb := &out.Texts[i]; tb.Y+tb.Height > limit {
				tb.Overflow = true
			}
		}
	}
	if rectIdx >= 0 {
		r := &out.Rects[rectIdx]
		r.X, r.Y, r.Width, r.Height = x, y, n.width, height
	}
	return height
}

func placeText(n *node, x, y float64, out *Result) float64 {
	run := n.text
	res := run.result
	res.Translate(x, y)
	tb := TextBox{
		Content:   run.content,
		X:         x,
		Y:         y,
		Width:     n.width,
		Height:    res.Height,
		Mode:      run.opts.Mode,
		Style:     run.opts.Style,
		Color:     run.color,
		Indent:    run.opts.Indent,
		Fragments: res.Fragments,
		Lines:     res.Lines,
	}
	for _, f := range res.Fragments {
		if f.X+f.Width > x+n.width+1e-9 {
			tb.Overflow = true
			break
		}
	}
	if run.raw != nil {
		tb.Debug = &TextBoxDebug{RawUnits: run.raw}
	}
	out.Texts = append(out.Texts, tb)
	return res.Height
}

// leadingMetrics 按 CSS 半行距规则把行高替换为固定值，上下各分一半差值。
type leadingMetrics struct {
	inline.Metrics
	lineHeight float64
}

func (m leadingMetrics) Measure(font inline.Font, text string) (inline.Measurement, error) {
	meas, err := m.Metrics.Measure(font, text)
	if err != nil {
		return meas, err
	}
	meas.Ascent += (m.lineHeight - meas.LineHeight) / 2
	meas.LineHeight = m.lineHeight
	return meas, nil
}

func rawUnitsOf(style textStyle) *RawUnits {
	raw := &RawUnits{}
	if style.rawSize != nil {
		raw.FontSize = &RawLengthJSON{Value: style.rawSize.Value, Unit: UnitToString(style.rawSize.Unit)}
	}
	if lh := style.lineHeight; lh != nil {
		switch lh.Kind {
		case LineHeightFactor:
			raw.LineHeight = &RawLineHeightJSON{Kind: "factor", Factor: lh.Factor}
		case LineHeightAbsolute:
			raw.LineHeight = &RawLineHeightJSON{Kind: "absolute", Value: lh.Len.Value, Unit: UnitToString(lh.Len.Unit)}
		}
	}
	return raw
}

func preview(s string) string {
	const limit = 24
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "…"
	}
	return s
}
