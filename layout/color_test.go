package layout

import "testing"

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want Color
	}{
		{"#fff", Color{255, 255, 255}},
		{"#0F62FE", Color{15, 98, 254}},
		{"#11223380", Color{17, 34, 51}},
		{"Black", Color{0, 0, 0}},
	}
	for _, tc := range cases {
		got, err := ParseColor(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("ParseColor(%s) = %+v, %v", tc.in, got, err)
		}
	}
	for _, bad := range []string{"#12", "#zzzzzz", "teal", ""} {
		if _, err := ParseColor(bad); err == nil {
			t.Fatalf("ParseColor(%q) 应失败", bad)
		}
	}
	if hex := (Color{15, 98, 254}).Hex(); hex != "#0f62fe" {
		t.Fatalf("Hex = %s", hex)
	}
}

func TestResolveColorFill(t *testing.T) {
	res := ResourceSet{Colors: map[string]Color{"Ink": {34, 34, 34}}}
	if _, fill, ok := resolveColor("Ink", res); !ok || fill != "#222222" {
		t.Fatalf("资源颜色 fill = %s", fill)
	}
	if _, fill, ok := resolveColor("black", res); !ok || fill != "black" {
		t.Fatalf("关键字应保留原文, fill = %s", fill)
	}
	if _, fill, ok := resolveColor("", res); !ok || fill != "black" {
		t.Fatalf("默认 fill = %s", fill)
	}
	if _, _, ok := resolveColor("nope", res); ok {
		t.Fatalf("未知颜色应报告失败")
	}
}
