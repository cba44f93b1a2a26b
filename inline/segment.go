package inline

// SegmentKind 区分规范化后的三类片段。
type SegmentKind uint8

const (
	SegmentWord SegmentKind = iota
	SegmentSpace
	SegmentBreak
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentWord:
		return "word"
	case SegmentSpace:
		return "space"
	case SegmentBreak:
		return "break"
	default:
		return "unknown"
	}
}

// Segment 是空白规范化的最小输出单元，创建后不再修改。
// Collapsible 为 true 的空白段落在行首或行尾时会被丢弃。
type Segment struct {
	Kind        SegmentKind `json:"kind"`
	Text        string      `json:"text"`
	Collapsible bool        `json:"collapsible,omitempty"`
}

// content reports whether the segment keeps a line from being considered empty.
func (s Segment) content() bool {
	switch s.Kind {
	case SegmentWord:
		return true
	case SegmentSpace:
		return !s.Collapsible
	default:
		return false
	}
}
