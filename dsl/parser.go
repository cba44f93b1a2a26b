// Package dsl 解析 vellum 场景文件：doc 头部、meta、resources 与 page 段落。
package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var sceneParser = participle.MustBuild[Document](
	participle.Lexer(sceneLexer),
	participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
)

// Parse 从 r 读取并解析场景文件。
func Parse(r io.Reader) (*Document, error) {
	return sceneParser.Parse("", r)
}

// ParseString parses a scene held in memory.
func ParseString(input string) (*Document, error) {
	return sceneParser.ParseString("", input)
}

// Document 是场景文件的根节点：doc <Name> <Version> { ... }。
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'doc' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section 是 meta、resources 或 page 之一。
type Section struct {
	Meta      *MetaSection      `parser:"  @@"`
	Resources *ResourcesSection `parser:"| @@"`
	Page      *PageSection      `parser:"| @@"`
}

// Kind 返回段落类型名，用于错误信息与测试。
func (s *Section) Kind() string {
	if s != nil {
		switch {
		case s.Meta != nil:
			return "meta"
		case s.Resources != nil:
			return "resources"
		case s.Page != nil:
			return "page"
		}
	}
	return "unknown"
}

type MetaSection struct {
	Block *Block `parser:"'meta' @@"`
}

type ResourcesSection struct {
	Block *Block `parser:"'resources' @@"`
}

// PageSection is the root box of the scene. Params holds the header tokens:
// width, height and optional key/value pairs such as "background #fff".
type PageSection struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Params []*Lexeme      `parser:"'page' @@*"`
	Block  *Block         `parser:"Newline* @@"`
}

// Block 是花括号包裹的语句列表，语句之间用换行或分号分隔。
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement 依次尝试 key: value 赋值、命令与裸字符串（匿名文本）。
type Statement struct {
	Assignment *Assignment  `parser:"  @@"`
	Command    *Command     `parser:"| @@"`
	Text       *TextLiteral `parser:"| @@"`
}

type Assignment struct {
	Key   string `parser:"@Ident"`
	Value *Value `parser:"':' Newline* @@"`
}

// Command 覆盖 box/text 节点与 font/color/style 资源声明：名称、参数与可选的子块。
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// Value 是赋值右侧的取值；无法归类的 token 序列保存为 Expression。
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Array  *ArrayValue    `parser:"| @@"`
	Expr   *Expression    `parser:"| @@"`
}

// ArrayValue 接受逗号、分号或换行分隔的元素。
type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// StringLiteral 在捕获时按 Go 语法去除引号与转义。
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) != 1 {
		return fmt.Errorf("字符串字面量需要一个取值，实际 %d 个", len(values))
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return fmt.Errorf("字符串 %s 无效: %w", values[0], err)
	}
	*s = StringLiteral(val)
	return nil
}
