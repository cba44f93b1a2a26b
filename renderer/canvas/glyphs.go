package canvasrenderer

import (
	"fmt"

	"github.com/tdewolff/canvas"
	canvasFont "github.com/tdewolff/font"
)

// 度量与绘制都直接读取解析后的 SFNT：cmap 查字形、hmtx 取前进宽度、kern 做字偶调整。
// canvas 自带的 shaper 会把字体重新序列化后交给 HarfBuzz，对 Go 字体会全部落到 .notdef。

// glyphRun 是一段文本在字体单位下的字形序列。
type glyphRun struct {
	ids     []uint16
	offsets []int // 每个字形的起点，字体单位
	advance int   // 总前进宽度，字体单位
}

func shapeRun(sfnt *canvasFont.SFNT, text string) glyphRun {
	var run glyphRun
	var prev uint16
	for i, r := range []rune(text) {
		id := sfnt.GlyphIndex(r)
		if i > 0 {
			run.advance += int(sfnt.Kerning(prev, id))
		}
		run.ids = append(run.ids, id)
		run.offsets = append(run.offsets, run.advance)
		run.advance += int(sfnt.GlyphAdvance(id))
		prev = id
	}
	return run
}

// textWidth 返回 text 在 face 下的前进宽度，单位 mm。
func textWidth(face *canvas.FontFace, text string) float64 {
	return face.MmPerEm * float64(shapeRun(face.Font.SFNT, text).advance)
}

// flipY 把 y 轴向上的字形轮廓写入 y 轴向下的 canvas 路径。
type flipY struct{ p *canvas.Path }

func (f flipY) MoveTo(x, y float64) { f.p.MoveTo(x, -y) }
func (f flipY) LineTo(x, y float64) { f.p.LineTo(x, -y) }
func (f flipY) QuadTo(cx, cy, x, y float64) { f.p.QuadTo(cx, -cy, x, -y) }
func (f flipY) Close() { f.p.Close() }
func (f flipY) CubeTo(c1x, c1y, c2x, c2y, x, y float64) {
	f.p.CubeTo(c1x, -c1y, c2x, -c2y, x, -y)
}

// outline 生成以基线起点为原点的文本轮廓，单位 mm。
func outline(face *canvas.FontFace, text string) (*canvas.Path, error) {
	sfnt := face.Font.SFNT
	run := shapeRun(sfnt, text)
	p := &canvas.Path{}
	scale := face.MmPerEm
	for i, id := range run.ids {
		x := scale * float64(run.offsets[i])
		if err := sfnt.GlyphPath(flipY{p}, id, 0, x, 0, scale, canvasFont.NoHinting); err != nil {
			return nil, fmt.Errorf("字形 %d 轮廓失败: %w", id, err)
		}
	}
	return p, nil
}
