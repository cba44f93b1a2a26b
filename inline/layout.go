package inline

// Options 是单个文本块的排版参数，全部由调用方在排版前解析为普通值。
type Options struct {
	Mode   WhitespaceMode
	Width  float64
	Indent float64
	Origin Point
	Style  Style
}

// Layout 依次执行空白规范化、断行与定位。非法模式与度量错误会立即返回，不产生部分结果。
func Layout(text string, opts Options, m Metrics) (*Result, error) {
	segs, err := Normalize(text, opts.Mode)
	if err != nil {
		return nil, err
	}
	p, err := Break(segs, BreakOptions{
		Mode:   opts.Mode,
		Width:  opts.Width,
		Indent: opts.Indent,
		Font:   opts.Style.Font,
	}, m)
	if err != nil {
		return nil, err
	}
	return Position(p, PositionOptions{
		Origin: opts.Origin,
		Indent: opts.Indent,
		Style:  opts.Style,
	}), nil
}
