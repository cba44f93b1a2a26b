package layout

import (
	"sort"
	"strings"
	"sync"

	"github.com/ByLCY/vellum/inline"
)

type faceKey struct {
	family string
	bold   bool
	italic bool
}

func keyOf(family string, weight inline.FontWeight, style inline.FontStyle) faceKey {
	return faceKey{
		family: strings.ToLower(strings.TrimSpace(family)),
		bold:   weight >= 600,
		italic: style != inline.StyleNormal,
	}
}

// FontTable 按 family/粗细/倾斜索引已注册的字体资源，供各度量与渲染后端共用。
// 可被并发读取。
type FontTable struct {
	mu    sync.RWMutex
	faces map[faceKey]FontResource
}

// Add 注册字体资源；同一 family/粗细/倾斜组合后注册的覆盖先注册的。
func (t *FontTable) Add(font FontResource) {
	family := font.Family
	if family == "" {
		family = font.Name
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.faces == nil {
		t.faces = map[faceKey]FontResource{}
	}
	t.faces[keyOf(family, font.Weight, font.Style)] = font
}

// Lookup 先精确匹配，再退回同 family 的常规字体。
func (t *FontTable) Lookup(font inline.Font) (FontResource, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	key := keyOf(font.Family, font.Weight, font.Style)
	if res, ok := t.faces[key]; ok {
		return res, true
	}
	key.bold, key.italic = false, false
	res, ok := t.faces[key]
	return res, ok
}

// Families 返回已注册的 family 名称（已排序）。
func (t *FontTable) Families() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for k := range t.faces {
		if !seen[k.family] {
			seen[k.family] = true
			out = append(out, k.family)
		}
	}
	sort.Strings(out)
	return out
}
