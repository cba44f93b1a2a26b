package layout

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ByLCY/vellum/dsl"
	"github.com/ByLCY/vellum/fonts"
	"github.com/ByLCY/vellum/inline"
)

// 未声明任何字体时使用的内置 sans 家族。
var defaultFonts = []FontResource{
	{Name: "sans", Family: "sans", Src: fonts.EmbedPrefix + "go-regular", Weight: inline.WeightNormal},
	{Name: "sans-bold", Family: "sans", Src: fonts.EmbedPrefix + "go-bold", Weight: inline.WeightBold},
	{Name: "sans-italic", Family: "sans", Src: fonts.EmbedPrefix + "go-italic", Weight: inline.WeightNormal, Style: inline.StyleItalic},
	{Name: "sans-bolditalic", Family: "sans", Src: fonts.EmbedPrefix + "go-bolditalic", Weight: inline.WeightBold, Style: inline.StyleItalic},
}

// Build 根据 DSL AST 生成页面中全部盒子与文本片段的布局结果。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	if opts.Typesetter == nil {
		return nil, ErrNoTypesetter
	}

	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(res.Fonts) {
		if err := opts.Typesetter.ResolveFont(res.Fonts[name]); err != nil {
			return nil, fmt.Errorf("加载字体 %s 失败: %w", name, err)
		}
	}
	meta := collectMeta(doc)
	pageSection := firstPage(doc)
	if pageSection == nil {
		return nil, fmt.Errorf("文档中缺少 page 段落")
	}

	b := &builder{res: res, data: data, opts: opts}
	out, err := b.buildPage(pageSection)
	if err != nil {
		return nil, err
	}
	out.Resources = res
	out.Meta = meta
	return out, nil
}

func collectResources(doc *dsl.Document) (ResourceSet, error) {
	res := ResourceSet{
		Fonts:  map[string]FontResource{},
		Colors: map[string]Color{},
		Styles: map[string]Style{},
	}
	rawStyles := map[string]Style{}

	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			if stmt.Command == nil {
				continue
			}
			switch stmt.Command.Name {
			case "font":
				font, err := parseFontResource(stmt.Command)
				if err != nil {
					return res, err
				}
				res.Fonts[font.Name] = font
			case "color":
				name, value := parseColorResource(stmt.Command)
				if name == "" || value == "" {
					continue
				}
				c, err := ParseColor(value)
				if err != nil {
					return res, fmt.Errorf("颜色资源 %s: %w", name, err)
				}
				res.Colors[name] = c
			case "style":
				style := parseStyleResource(stmt.Command)
				if style.Name != "" {
					rawStyles[style.Name] = style
				}
			default:
				Logger().Debug("忽略未知资源", "name", stmt.Command.Name, "pos", stmt.Command.Pos.String())
			}
		}
	}

	if len(res.Fonts) == 0 {
		for _, font := range defaultFonts {
			res.Fonts[font.Name] = font
		}
	}

	resolvedStyles, err := resolveStyles(rawStyles)
	if err != nil {
		return res, err
	}
	res.Styles = resolvedStyles

	return res, nil
}

func collectMeta(doc *dsl.Document) DocumentMeta {
	meta := DocumentMeta{
		Creator: "Vellum",
	}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			val := stmt.Assignment.Value
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = val.Text()
			case "author":
				meta.Author = val.Text()
			case "subject":
				meta.Subject = val.Text()
			case "creator":
				meta.Creator = val.Text()
			case "keywords":
				meta.Keywords = val.List()
			}
		}
	}
	return meta
}

func parseFontResource(cmd *dsl.Command) (FontResource, error) {
	if len(cmd.Args) == 0 {
		return FontResource{}, fmt.Errorf("%s: font 资源缺少名称", cmd.Pos)
	}
	font := FontResource{
		Name:   cmd.Args[0].Value,
		Family: cmd.Args[0].Value,
		Weight: inline.WeightNormal,
	}
	if cmd.Block != nil {
		for _, stmt := range cmd.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			val := stmt.Assignment.Value.Text()
			switch stmt.Assignment.Key {
			case "src":
				font.Src = val
			case "family":
				font.Family = val
			case "weight":
				font.Weight = inline.ParseFontWeight(val)
			case "style":
				font.Style = inline.ParseFontStyle(val)
			case "fallback":
				font.Fallback = val
			}
		}
	}
	if font.Src == "" {
		return FontResource{}, fmt.Errorf("%s: font %s 缺少 src", cmd.Pos, font.Name)
	}
	return font, nil
}

func parseStyleResource(cmd *dsl.Command) Style {
	if len(cmd.Args) == 0 {
		return Style{}
	}
	style := Style{
		Name:  cmd.Args[0].Value,
		Props: map[string]string{},
	}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		style.Extends = cmd.Args[2].Value
	}
	if cmd.Block == nil {
		return style
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		if val := stmt.Assignment.Value.Text(); val != "" {
			style.Props[canonicalKey(stmt.Assignment.Key)] = val
		}
	}
	return style
}

func resolveStyles(styles map[string]Style) (map[string]Style, error) {
	resolved := map[string]Style{}
	visiting := map[string]bool{}

	var dfs func(name string) (Style, error)
	dfs = func(name string) (Style, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return Style{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return Style{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true

		props := map[string]string{}
		if style.Extends != "" {
			parent, err := dfs(style.Extends)
			if err != nil {
				return Style{}, err
			}
			for k, v := range parent.Props {
				props[k] = v
			}
		}
		for k, v := range style.Props {
			props[k] = v
		}
		style.Props = props
		resolved[name] = style
		delete(visiting, name)
		return style, nil
	}

	for _, name := range sortedKeys(styles) {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func parseColorResource(cmd *dsl.Command) (string, string) {
	if len(cmd.Args) == 0 {
		return "", ""
	}
	name := cmd.Args[0].Value
	value := ""
	if len(cmd.Args) > 1 {
		value = cmd.Args[len(cmd.Args)-1].Value
	}
	return name, value
}

func firstPage(doc *dsl.Document) *dsl.PageSection {
	for _, section := range doc.Sections {
		if section.Page != nil {
			return section.Page
		}
	}
	return nil
}

// defaultFontName 优先使用 Body/sans，其余情况取名称最小的字体，保证结果确定。
func defaultFontName(fonts map[string]FontResource) string {
	for _, name := range []string{"Body", "sans"} {
		if _, ok := fonts[name]; ok {
			return name
		}
	}
	names := sortedKeys(fonts)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
