package binding

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, src string) any {
	t.Helper()
	var data any
	if err := json.Unmarshal([]byte(src), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return data
}

func TestInterpolate(t *testing.T) {
	data := decode(t, `{"user":{"name":"Ada","tags":["x","y"]},"count":1000000,"ok":true,"none":null}`)
	cases := []struct {
		in, want string
	}{
		{"Hello, ${user.name}!", "Hello, Ada!"},
		{"${ user.tags[1] }", "y"},
		{"${count}", "1000000"},
		{"${ok}/${none}", "true/"},
		{"${user.age}", "${user.age}"},
		{"${user.age|unknown}", "unknown"},
		{"${user.tags[5]|-}", "-"},
		{"no placeholders", "no placeholders"},
	}
	for _, tc := range cases {
		if got := Interpolate(tc.in, data); got != tc.want {
			t.Errorf("Interpolate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := Interpolate("${a}", nil); got != "${a}" {
		t.Errorf("nil data should keep placeholder, got %q", got)
	}
}

func TestLookup(t *testing.T) {
	data := decode(t, `{"rows":[[1,2],[3,4]],"m":{"k":"v"}}`)
	if v, ok := Lookup(data, "rows[1][0]"); !ok || v.(float64) != 3 {
		t.Fatalf("rows[1][0] = %v, %v", v, ok)
	}
	for _, path := range []string{"rows[x]", "rows[0", "m.k.z", "m[0]", "", "missing"} {
		if _, ok := Lookup(data, path); ok {
			t.Errorf("Lookup(%q) should fail", path)
		}
	}
}
