package dsl

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// 场景文件的词法规则。Color 必须排在 HashComment 之前，Number 允许携带长度单位。
var sceneLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "Newline", Pattern: `\n+`},
	{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
	{Name: "LineComment", Pattern: `//[^\n]*`},
	{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
	{Name: "HashComment", Pattern: `#[^\n]*`},
	{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+|\.\d+)(?:px|pt|mm|cm|in|%|x)?`},
	{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
	{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:]`},
	{Name: "LBrace", Pattern: `{`},
	{Name: "RBrace", Pattern: `}`},
})

// kinds 缓存解析 Lexeme 时需要区分的 token 类型。
var kinds = struct {
	names                                   map[lexer.TokenType]string
	newline, lbrace, rbrace, symbol, quoted lexer.TokenType
}{
	names:   make(map[lexer.TokenType]string),
	newline: tokenType("Newline"),
	lbrace:  tokenType("LBrace"),
	rbrace:  tokenType("RBrace"),
	symbol:  tokenType("Symbol"),
	quoted:  tokenType("String"),
}

func init() {
	for name, tt := range sceneLexer.Symbols() {
		kinds.names[tt] = name
	}
}

func tokenType(name string) lexer.TokenType {
	tt, ok := sceneLexer.Symbols()[name]
	if !ok {
		panic("dsl: 未定义的 token " + name)
	}
	return tt
}

// Lexeme 是命令参数或表达式中的单个 token，字符串已去除引号。
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

func (l *Lexeme) String() string { return l.Raw }

// Parse 读取一个命令参数；换行、花括号与分号结束参数列表。
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	if endsArgs(lex.Peek()) {
		return participle.NextMatch
	}
	next, err := takeLexeme(lex)
	if err != nil {
		return err
	}
	*l = next
	return nil
}

// Expression 保存未求值的表达式 token，如标识符取值 `weight: bold`。
type Expression struct {
	Parts []*Lexeme
}

// nesting 记录表达式内的括号层级。
type nesting struct{ paren, bracket int }

func (n *nesting) track(raw string) {
	switch raw {
	case "(":
		n.paren++
	case ")":
		n.paren = max(n.paren-1, 0)
	case "[":
		n.bracket++
	case "]":
		n.bracket = max(n.bracket-1, 0)
	}
}

// ends 判断 tok 是否结束当前表达式：顶层的换行、花括号、分号与逗号，或未配对的 ']'。
func (n nesting) ends(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	top := n.paren == 0 && n.bracket == 0
	switch tok.Type {
	case kinds.newline, kinds.lbrace, kinds.rbrace:
		return top
	case kinds.symbol:
		switch tok.Value {
		case ";", ",":
			return top
		case "]":
			return n.bracket == 0
		}
	}
	return false
}

// Parse 实现 participle.Parseable。
func (e *Expression) Parse(lex *lexer.PeekingLexer) error {
	var depth nesting
	var parts []*Lexeme
	for !depth.ends(lex.Peek()) {
		next, err := takeLexeme(lex)
		if err != nil {
			return err
		}
		depth.track(next.Raw)
		parts = append(parts, &next)
	}
	if len(parts) == 0 {
		return participle.NextMatch
	}
	e.Parts = parts
	return nil
}

func endsArgs(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tok.Type {
	case kinds.newline, kinds.lbrace, kinds.rbrace:
		return true
	case kinds.symbol:
		return tok.Value == ";"
	}
	return false
}

func takeLexeme(lex *lexer.PeekingLexer) (Lexeme, error) {
	tok := lex.Next()
	if tok.EOF() {
		return Lexeme{}, participle.NextMatch
	}
	name, ok := kinds.names[tok.Type]
	if !ok {
		name = fmt.Sprintf("#%d", tok.Type)
	}
	l := Lexeme{Type: name, Value: tok.Value, Raw: tok.Value, Pos: tok.Pos}
	if tok.Type == kinds.quoted {
		s, err := strconv.Unquote(tok.Value)
		if err != nil {
			return Lexeme{}, fmt.Errorf("%s: 字符串 %s 无效: %w", tok.Pos, tok.Value, err)
		}
		l.Value = s
	}
	return l, nil
}
