package layout

import (
	"errors"

	"github.com/ByLCY/vellum/inline"
)

// ErrNoTypesetter 表示 BuildOptions 缺少度量后端。
var ErrNoTypesetter = errors.New("layout: 缺少排版后端 Typesetter")

// BuildOptions 配置布局阶段所需的依赖，例如排版后端。
type BuildOptions struct {
	Typesetter Typesetter
	Workers    int // 并行排版的文本块数量上限，<=0 时使用 GOMAXPROCS
	Debug      DebugOptions
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	RawUnits bool // 在调试 JSON 中输出 debug.rawUnits 影子字段
}

// Typesetter 提供字形度量，并在排版前接收文档声明的全部字体资源。
// 实现必须可被多个 goroutine 并发调用。
type Typesetter interface {
	inline.Metrics
	ResolveFont(font FontResource) error
}
