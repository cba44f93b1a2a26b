package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/ByLCY/vellum/dsl"
	"github.com/ByLCY/vellum/inline"
)

var errStub = errors.New("stub failure")

// stubTypesetter 按字符计宽：空格 4px、其余 8px（16px 字号下），行高 20、上升 16，随字号线性缩放。
type stubTypesetter struct {
	mu       sync.Mutex
	resolved []string
	failSrc  string
	failText string
}

func (s *stubTypesetter) Measure(font inline.Font, text string) (inline.Measurement, error) {
	if s.failText != "" && text == s.failText {
		return inline.Measurement{}, errStub
	}
	scale := font.Size / 16
	var w float64
	for _, r := range text {
		if r == ' ' {
			w += 4
		} else {
			w += 8
		}
	}
	return inline.Measurement{Width: w * scale, Ascent: 16 * scale, Descent: 4 * scale, LineHeight: 20 * scale}, nil
}

func (s *stubTypesetter) ResolveFont(font FontResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if font.Src == s.failSrc {
		return errStub
	}
	s.resolved = append(s.resolved, font.Name)
	return nil
}

func buildScene(t *testing.T, src string, data any, opts BuildOptions) *Result {
	t.Helper()
	doc, err := dsl.ParseString(src)
	if err != nil {
		t.Fatalf("解析 DSL 失败: %v", err)
	}
	if opts.Typesetter == nil {
		opts.Typesetter = &stubTypesetter{}
	}
	res, err := Build(doc, data, opts)
	if err != nil {
		t.Fatalf("布局计算失败: %v", err)
	}
	return res
}

func buildError(t *testing.T, src string, ts Typesetter) error {
	t.Helper()
	doc, err := dsl.ParseString(src)
	if err != nil {
		t.Fatalf("解析 DSL 失败: %v", err)
	}
	if ts == nil {
		ts = &stubTypesetter{}
	}
	res, err := Build(doc, nil, BuildOptions{Typesetter: ts})
	if err == nil {
		t.Fatalf("期望构建失败，实际得到 %+v", res)
	}
	return err
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func fragmentTexts(tb TextBox) []string {
	out := make([]string, len(tb.Fragments))
	for i, f := range tb.Fragments {
		out[i] = f.Text
	}
	return out
}

func TestBuildBoxAndWrappedText(t *testing.T) {
	ts := &stubTypesetter{}
	res := buildScene(t, `doc T v1 {
  page 200 100 background #fff {
    box padding 10 background #eee border #000 {
      text width 40 { "aa bb cc" }
    }
  }
}`, nil, BuildOptions{Typesetter: ts})

	if res.Width != 200 || res.Height != 100 || res.Overflow {
		t.Fatalf("页面尺寸错误: %gx%g overflow=%v", res.Width, res.Height, res.Overflow)
	}
	if res.Background == nil || *res.Background != (Color{255, 255, 255}) {
		t.Fatalf("页面背景错误: %+v", res.Background)
	}
	if len(res.Rects) != 1 {
		t.Fatalf("期望 1 个矩形，实际 %d", len(res.Rects))
	}
	r := res.Rects[0]
	if r.X != 0 || r.Y != 0 || r.Width != 200 || r.Height != 62 || r.StrokeWidth != 1 {
		t.Fatalf("矩形几何错误: %+v", r)
	}
	if r.FillColor == nil || *r.FillColor != (Color{238, 238, 238}) || r.StrokeColor == nil || *r.StrokeColor != (Color{}) {
		t.Fatalf("矩形颜色错误: %+v", r)
	}

	if len(res.Texts) != 1 {
		t.Fatalf("期望 1 个文本块，实际 %d", len(res.Texts))
	}
	tb := res.Texts[0]
	if tb.X != 11 || tb.Y != 11 || tb.Width != 40 || tb.Height != 40 || tb.Overflow {
		t.Fatalf("文本块几何错误: %+v", tb)
	}
	want := []struct {
		text string
		x, y float64
	}{
		{"aa", 11, 27},
		{"bb", 31, 27},
		{"cc", 11, 47},
	}
	if len(tb.Fragments) != len(want) {
		t.Fatalf("片段 = %q", fragmentTexts(tb))
	}
	for i, w := range want {
		f := tb.Fragments[i]
		if f.Text != w.text || !near(f.X, w.x) || !near(f.Y, w.y) {
			t.Fatalf("片段 %d = %+v，期望 %+v", i, f, w)
		}
	}
	if tb.Lines[1].Text != "cc" || !near(tb.Lines[1].Top, 31) {
		t.Fatalf("第二行错误: %+v", tb.Lines[1])
	}
	wantStyle := inline.Style{Font: inline.Font{Family: "sans", Size: 16, Weight: inline.WeightNormal}, Fill: "black"}
	if tb.Style != wantStyle {
		t.Fatalf("样式错误: %+v", tb.Style)
	}
	if got := strings.Join(ts.resolved, ","); got != "sans,sans-bold,sans-bolditalic,sans-italic" {
		t.Fatalf("默认字体注册顺序错误: %s", got)
	}
	if res.Meta.Creator != "Vellum" {
		t.Fatalf("默认 creator 错误: %s", res.Meta.Creator)
	}
}

func TestBuildInheritsStyles(t *testing.T) {
	res := buildScene(t, `doc T v1 {
  meta {
    title: "Styles"
  }
  resources {
    font serif {
      src: "embed:go-regular"
    }
    color Ink = #222
    style Body {
      font: serif
      size: 32px
      color: Ink
    }
    style Pre extends Body {
      white-space: pre
    }
  }
  page 300 300 {
    box Pre {
      text { " a " }
      text white-space normal { " a " }
    }
  }
}`, nil, BuildOptions{})

	if res.Meta.Title != "Styles" {
		t.Fatalf("meta 标题错误: %q", res.Meta.Title)
	}
	if len(res.Texts) != 2 {
		t.Fatalf("期望 2 个文本块，实际 %d", len(res.Texts))
	}
	pre, normal := res.Texts[0], res.Texts[1]
	if pre.Mode != inline.WhitespacePre || normal.Mode != inline.WhitespaceNormal {
		t.Fatalf("white-space 继承错误: %s / %s", pre.Mode, normal.Mode)
	}
	if got := fragmentTexts(pre); !reflect.DeepEqual(got, []string{" ", "a", " "}) {
		t.Fatalf("pre 片段 = %q", got)
	}
	if f := pre.Fragments[1]; f.X != 8 || f.Width != 16 || f.Style.Font.Family != "serif" || f.Style.Fill != "#222222" {
		t.Fatalf("pre 片段样式错误: %+v", f)
	}
	if got := fragmentTexts(normal); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("normal 片段 = %q", got)
	}
	if f := normal.Fragments[0]; f.X != 0 || f.Y != 72 {
		t.Fatalf("第二个文本块位置错误: %+v", f)
	}
	if normal.Color != (Color{34, 34, 34}) {
		t.Fatalf("颜色错误: %+v", normal.Color)
	}
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want error
	}{
		{"undefined style", `doc T v1 {
  page 10 10 {
    text Missing size 10 { "a" }
  }
}`, nil},
		{"style cycle", `doc T v1 {
  resources {
    style A extends B {
      size: 10
    }
    style B extends A {
      size: 12
    }
  }
  page 10 10 { }
}`, nil},
		{"invalid white-space", `doc T v1 {
  page 10 10 {
    box {
      text white-space sideways { "a" }
    }
  }
}`, inline.ErrInvalidWhitespaceMode},
		{"unknown font", `doc T v1 {
  page 10 10 {
    text font nope { "a" }
  }
}`, nil},
		{"missing page", `doc T v1 {
  meta {
    title: "x"
  }
}`, nil},
		{"page without height", `doc T v1 {
  page 200 { }
}`, nil},
		{"text without block", `doc T v1 {
  page 10 10 {
    text size 10
  }
}`, nil},
		{"bad color", `doc T v1 {
  page 10 10 {
    box background nope { }
  }
}`, nil},
		{"font without src", `doc T v1 {
  resources {
    font serif { }
  }
  page 10 10 { }
}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := buildError(t, tc.src, nil)
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := Build(nil, nil, BuildOptions{Typesetter: &stubTypesetter{}}); err == nil {
		t.Fatalf("空文档应失败")
	}
	doc, _ := dsl.ParseString(`doc T v1 {
  page 10 10 { }
}`)
	if _, err := Build(doc, nil, BuildOptions{}); !errors.Is(err, ErrNoTypesetter) {
		t.Fatalf("err = %v, want ErrNoTypesetter", err)
	}
}

func TestBuildPropagatesTypesetterErrors(t *testing.T) {
	err := buildError(t, `doc T v1 {
  page 100 100 {
    text { "ok" }
  }
}`, &stubTypesetter{failSrc: "embed:go-bold"})
	if !errors.Is(err, errStub) {
		t.Fatalf("字体加载错误未透传: %v", err)
	}

	err = buildError(t, `doc T v1 {
  page 100 100 {
    text { "ok bad" }
  }
}`, &stubTypesetter{failText: "bad"})
	if !errors.Is(err, errStub) {
		t.Fatalf("度量错误未透传: %v", err)
	}
}

func TestBuildInterpolatesAndNormalizes(t *testing.T) {
	res := buildScene(t, `doc T v1 {
  page 100 100 {
    text { "hi ${name}" }
  }
}`, map[string]any{"name": "e\u0301"}, BuildOptions{})
	if got := res.Texts[0].Content; got != "hi \u00e9" {
		t.Fatalf("内容 = %q", got)
	}
	if got := res.Texts[0].Fragments[1].Width; got != 8 {
		t.Fatalf("组合字符应合成为一个字符, width=%g", got)
	}
}

func TestBuildReportsOverflow(t *testing.T) {
	res := buildScene(t, `doc T v1 {
  page 100 100 {
    box height 30 {
      text { "aa" }
      text { "bb" }
    }
    text white-space nowrap width 10 { "aa bb" }
  }
}`, nil, BuildOptions{})
	if len(res.Texts) != 3 {
		t.Fatalf("期望 3 个文本块，实际 %d", len(res.Texts))
	}
	if res.Texts[0].Overflow || !res.Texts[1].Overflow {
		t.Fatalf("纵向溢出标记错误: %v %v", res.Texts[0].Overflow, res.Texts[1].Overflow)
	}
	if !res.Texts[2].Overflow {
		t.Fatalf("nowrap 横向溢出未报告")
	}
	if res.Texts[2].Y != 30 {
		t.Fatalf("固定高度盒子之后的位置错误: %g", res.Texts[2].Y)
	}
	if res.Overflow {
		t.Fatalf("内容 50px 未超过页面")
	}

	res = buildScene(t, `doc T v1 {
  page 100 30 {
    text { "aa" }
    text { "bb" }
  }
}`, nil, BuildOptions{})
	if !res.Overflow || res.Texts[0].Overflow || !res.Texts[1].Overflow {
		t.Fatalf("页面溢出标记错误: %v %v %v", res.Overflow, res.Texts[0].Overflow, res.Texts[1].Overflow)
	}
}

func TestBuildLineHeightSplitsLeading(t *testing.T) {
	res := buildScene(t, `doc T v1 {
  page 100 100 {
    text line-height 2 { "aa" }
  }
}`, nil, BuildOptions{})
	tb := res.Texts[0]
	if tb.Height != 32 {
		t.Fatalf("行高 = %g, want 32", tb.Height)
	}
	if f := tb.Fragments[0]; f.Height != 32 || f.Y != 22 {
		t.Fatalf("半行距分配错误: %+v", f)
	}
}

func TestBuildGapPaddingAndBareText(t *testing.T) {
	res := buildScene(t, `doc T v1 {
  page 100 100 {
    box gap 5 padding-left 7 {
      "aa"
      text { "bb" }
    }
  }
}`, nil, BuildOptions{})
	if len(res.Texts) != 2 {
		t.Fatalf("期望 2 个文本块，实际 %d", len(res.Texts))
	}
	if tb := res.Texts[1]; tb.X != 7 || tb.Y != 25 || tb.Width != 93 {
		t.Fatalf("间距/内边距错误: %+v", tb)
	}
	if len(res.Rects) != 0 {
		t.Fatalf("无背景与边框的盒子不应产生矩形")
	}
}

func TestBuildParallelIsDeterministic(t *testing.T) {
	var b strings.Builder
	b.WriteString("doc T v1 {\n  page 300 2000 {\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "    text white-space %s width %d { \" item %d of\\n the list \" }\n",
			[]string{"normal", "pre", "pre-wrap", "pre-line", "nowrap"}[i%5], 20+i*3, i)
	}
	b.WriteString("  }\n}\n")

	serial := buildScene(t, b.String(), nil, BuildOptions{Workers: 1})
	parallel := buildScene(t, b.String(), nil, BuildOptions{Workers: 8})
	if len(serial.Texts) != 40 {
		t.Fatalf("期望 40 个文本块，实际 %d", len(serial.Texts))
	}
	if !reflect.DeepEqual(serial.Texts, parallel.Texts) {
		t.Fatalf("并行排版结果与串行不一致")
	}
}

func TestDebugRawUnitsOutput(t *testing.T) {
	src := `doc T v1 {
  page 100 100 {
    text size 12pt line-height 1.5x white-space pre { "a" }
  }
}`
	res := buildScene(t, src, nil, BuildOptions{Debug: DebugOptions{RawUnits: true}})
	tb := res.Texts[0]
	if tb.Style.Font.Size != 16 && !near(tb.Style.Font.Size, 16) {
		t.Fatalf("12pt 应为 16px，实际 %g", tb.Style.Font.Size)
	}
	if tb.Debug == nil || tb.Debug.RawUnits == nil {
		t.Fatalf("缺少 debug.rawUnits")
	}
	raw := tb.Debug.RawUnits
	if raw.FontSize == nil || raw.FontSize.Value != 12 || raw.FontSize.Unit != "pt" {
		t.Fatalf("字号原始单位错误: %+v", raw.FontSize)
	}
	if raw.LineHeight == nil || raw.LineHeight.Kind != "factor" || raw.LineHeight.Factor != 1.5 {
		t.Fatalf("行高原始单位错误: %+v", raw.LineHeight)
	}

	path := filepath.Join(t.TempDir(), "layout.json")
	if err := WriteDebugJSON(res, path); err != nil {
		t.Fatalf("写出调试 JSON 失败: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取调试 JSON 失败: %v", err)
	}
	var decoded struct {
		Texts []struct {
			WhiteSpace string `json:"whiteSpace"`
		} `json:"texts"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("解析调试 JSON 失败: %v", err)
	}
	if len(decoded.Texts) != 1 || decoded.Texts[0].WhiteSpace != "pre" {
		t.Fatalf("调试 JSON 内容错误: %s", data)
	}

	plain := buildScene(t, src, nil, BuildOptions{})
	if plain.Texts[0].Debug != nil {
		t.Fatalf("未开启时不应输出 debug 字段")
	}
}

func TestBuildPercentHeightAndPadding(t *testing.T) {
	res := buildScene(t, `doc T v1 {
  page 200 200 {
    box height 50% background #eeeeee { "hi" }
    box background #dddddd {
      box height 50% background #cccccc { "auto" }
    }
  }
}`, nil, BuildOptions{})
	if res.Overflow {
		t.Fatalf("百分比高度不应导致溢出")
	}
	if len(res.Rects) != 3 {
		t.Fatalf("期望 3 个矩形，实际 %d", len(res.Rects))
	}
	if r := res.Rects[0]; r.Height != 100 || r.Y != 0 {
		t.Fatalf("50%% 高度应相对页面解析为 100: %+v", r)
	}
	// 父盒子高度不确定，百分比高度退化为 auto
	if r := res.Rects[2]; r.Height != 20 || r.Y != 100 {
		t.Fatalf("不确定包含块下的百分比高度错误: %+v", r)
	}
	if r := res.Rects[1]; r.Height != 20 {
		t.Fatalf("外层盒子高度错误: %+v", r)
	}

	res = buildScene(t, `doc T v1 {
  page 200 100 {
    box padding 10% {
      box padding-left 5% { text { "aa" } }
    }
  }
}`, nil, BuildOptions{})
	// 外层 padding 相对页面宽度 200，内层 padding-left 相对外层内容宽度 160
	if tb := res.Texts[0]; tb.X != 28 || tb.Y != 20 || tb.Width != 152 {
		t.Fatalf("百分比内边距错误: %+v", tb)
	}
}

func TestBuildStyleArgumentIsNotAKey(t *testing.T) {
	const resources = `  resources {
    style Big {
      size: 32px
      color: #ff0000
    }
  }
`
	err := buildError(t, `doc T v1 {
`+resources+`  page 100 100 {
    text Big size 12px color { "hi" }
  }
}`, nil)
	if !strings.Contains(err.Error(), "color") {
		t.Fatalf("应报告落单的 color: %v", err)
	}

	res := buildScene(t, `doc T v1 {
`+resources+`  page 100 100 {
    text Big size 12px { "hi" }
  }
}`, nil, BuildOptions{})
	tb := res.Texts[0]
	if tb.Style.Font.Size != 12 || tb.Color != (Color{255, 0, 0}) {
		t.Fatalf("样式应保留且行内 size 覆盖: size=%g color=%+v", tb.Style.Font.Size, tb.Color)
	}
}

func TestBuildAttributeAliases(t *testing.T) {
	err := buildError(t, `doc T v1 {
  page 100 100 {
    text size 10px font-size 20px { "a" }
  }
}`, nil)
	if !strings.Contains(err.Error(), "size") {
		t.Fatalf("别名冲突错误信息不明确: %v", err)
	}

	// 样式里的别名与行内规范名合并时，行内取值胜出
	for i := 0; i < 20; i++ {
		res := buildScene(t, `doc T v1 {
  resources {
    style Small {
      font-size: 10px
    }
  }
  page 100 100 {
    text Small size 20px { "a" }
  }
}`, nil, BuildOptions{})
		if got := res.Texts[0].Style.Font.Size; got != 20 {
			t.Fatalf("第 %d 次构建字号 = %g, want 20", i, got)
		}
	}
}
