package dsl

import (
	"fmt"
	"strings"
)

// Attributes 拆分命令参数，其余参数按 key value 成对读取。
// isAttr 非空时，首个参数若是标识符且不是已知属性名，则视为样式名。
// 是否为样式名只看首个参数本身，与参数个数无关；落单的 key 一律报错。
func (c *Command) Attributes(isAttr func(key string) bool) (string, map[string]string, error) {
	attrs := map[string]string{}
	if c == nil || len(c.Args) == 0 {
		return "", attrs, nil
	}
	args := c.Args
	var style string
	if first := args[0]; isAttr != nil && first.Type == "Ident" && !isAttr(strings.ToLower(first.Value)) {
		style = first.Value
		args = args[1:]
	}
	if len(args)%2 == 1 {
		last := args[len(args)-1]
		return "", nil, fmt.Errorf("%s: %s 命令的参数 %q 缺少取值", last.Pos, c.Name, last.Value)
	}
	for i := 0; i < len(args); i += 2 {
		key := args[i]
		if key.Type != "Ident" {
			return "", nil, fmt.Errorf("%s: %s 命令的参数 %q 不是属性名", key.Pos, c.Name, key.Value)
		}
		attrs[strings.ToLower(key.Value)] = args[i+1].Value
	}
	return style, attrs, nil
}

// Text 拼接块内全部字符串字面量。
func (b *Block) Text() string {
	if b == nil {
		return ""
	}
	var builder strings.Builder
	for _, stmt := range b.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(stmt.Text.Value))
		}
	}
	return builder.String()
}

// Text 将标量取值还原为字符串；数组与对象返回空串。
func (v *Value) Text() string {
	if v == nil {
		return ""
	}
	switch {
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Expr != nil:
		var builder strings.Builder
		for _, part := range v.Expr.Parts {
			builder.WriteString(part.Value)
		}
		return builder.String()
	default:
		return ""
	}
}

// List 返回数组中的标量取值；标量本身视为单元素数组。
func (v *Value) List() []string {
	if v == nil {
		return nil
	}
	if v.Array != nil {
		out := make([]string, 0, len(v.Array.Values))
		for _, item := range v.Array.Values {
			if s := item.Text(); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := v.Text(); s != "" {
		return []string{s}
	}
	return nil
}
