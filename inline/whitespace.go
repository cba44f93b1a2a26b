// Package inline 负责单个行内文本块的排版：空白处理、断行与片段定位。
//
// 处理流程固定为 Normalize → Break → Position，每一步只消费上一步的完整输出，
// 不做 I/O，也不持有跨调用的可变状态；字形度量由调用方通过 Metrics 注入。
package inline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidWhitespaceMode is returned for a white-space value outside the fixed set.
var ErrInvalidWhitespaceMode = errors.New("inline: invalid white-space mode")

// WhitespaceMode 对应 CSS white-space 的五个取值。
type WhitespaceMode uint8

const (
	WhitespaceNormal WhitespaceMode = iota
	WhitespacePre
	WhitespacePreWrap
	WhitespacePreLine
	WhitespaceNowrap
)

var whitespaceNames = [...]string{
	WhitespaceNormal:  "normal",
	WhitespacePre:     "pre",
	WhitespacePreWrap: "pre-wrap",
	WhitespacePreLine: "pre-line",
	WhitespaceNowrap:  "nowrap",
}

// ParseWhitespaceMode 解析 CSS 关键字（忽略大小写与首尾空白）。
func ParseWhitespaceMode(s string) (WhitespaceMode, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for mode, name := range whitespaceNames {
		if v == name {
			return WhitespaceMode(mode), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWhitespaceMode, s)
}

func (m WhitespaceMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("WhitespaceMode(%d)", uint8(m))
	}
	return whitespaceNames[m]
}

// MarshalText 以 CSS 关键字输出，便于调试 JSON。
func (m WhitespaceMode) MarshalText() ([]byte, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	return []byte(whitespaceNames[m]), nil
}

func (m *WhitespaceMode) UnmarshalText(b []byte) error {
	v, err := ParseWhitespaceMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Valid reports whether m is one of the five defined modes.
func (m WhitespaceMode) Valid() bool { return int(m) < len(whitespaceNames) }

// Wraps reports whether lines may break because of the available width.
func (m WhitespaceMode) Wraps() bool {
	return m == WhitespaceNormal || m == WhitespacePreWrap || m == WhitespacePreLine
}

// PreservesSpaces reports whether space runs are kept verbatim.
func (m WhitespaceMode) PreservesSpaces() bool {
	return m == WhitespacePre || m == WhitespacePreWrap
}

// PreservesNewlines reports whether a line feed forces a line break.
func (m WhitespaceMode) PreservesNewlines() bool {
	return m == WhitespacePre || m == WhitespacePreWrap || m == WhitespacePreLine
}

func (m WhitespaceMode) check() error {
	if !m.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidWhitespaceMode, uint8(m))
	}
	return nil
}

// isSpace 只识别 CSS 意义上的文档空白；NBSP 等字符属于单词。
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}

// Normalize 按空白模式把原始文本切分为 word/space/break 段。
//
// 折叠模式下整段文本首尾的空白段直接丢弃；pre-line 中与换行相邻的空白
// 留给断行阶段按行首/行尾规则处理。
func Normalize(text string, mode WhitespaceMode) ([]Segment, error) {
	if err := mode.check(); err != nil {
		return nil, err
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		segs     []Segment
		word     strings.Builder
		space    strings.Builder
		newlines = mode.PreservesNewlines()
		verbatim = mode.PreservesSpaces()
	)
	flushWord := func() {
		if word.Len() == 0 {
			return
		}
		segs = append(segs, Segment{Kind: SegmentWord, Text: word.String()})
		word.Reset()
	}
	flushSpace := func() {
		if space.Len() == 0 {
			return
		}
		seg := Segment{Kind: SegmentSpace, Text: space.String()}
		if !verbatim {
			seg.Text = " "
			seg.Collapsible = true
		}
		segs = append(segs, seg)
		space.Reset()
	}

	for _, r := range text {
		switch {
		case r == '\n' && newlines:
			flushWord()
			flushSpace()
			segs = append(segs, Segment{Kind: SegmentBreak, Text: "\n"})
		case isSpace(r):
			flushWord()
			if r == '\n' || r == '\r' || r == '\f' {
				r = ' '
			}
			space.WriteRune(r)
		default:
			flushSpace()
			word.WriteRune(r)
		}
	}
	flushWord()
	flushSpace()

	if verbatim || len(segs) == 0 {
		return segs, nil
	}
	if segs[0].Kind == SegmentSpace {
		segs = segs[1:]
	}
	if n := len(segs); n > 0 && segs[n-1].Kind == SegmentSpace {
		segs = segs[:n-1]
	}
	return segs, nil
}
