package inline

import (
	"errors"
	"reflect"
	"testing"
)

func word(s string) Segment      { return Segment{Kind: SegmentWord, Text: s} }
func keptSpace(s string) Segment { return Segment{Kind: SegmentSpace, Text: s} }
func softSpace() Segment         { return Segment{Kind: SegmentSpace, Text: " ", Collapsible: true} }
func lineFeed() Segment          { return Segment{Kind: SegmentBreak, Text: "\n"} }

func TestParseWhitespaceMode(t *testing.T) {
	for _, name := range []string{"normal", "pre", "pre-wrap", "pre-line", "nowrap"} {
		mode, err := ParseWhitespaceMode(name)
		if err != nil {
			t.Fatalf("ParseWhitespaceMode(%q): %v", name, err)
		}
		if mode.String() != name {
			t.Fatalf("round trip %q -> %s", name, mode)
		}
	}
	if mode, err := ParseWhitespaceMode("  PRE-Wrap "); err != nil || mode != WhitespacePreWrap {
		t.Fatalf("case-insensitive parse = %v, %v", mode, err)
	}
	if _, err := ParseWhitespaceMode("break-spaces"); !errors.Is(err, ErrInvalidWhitespaceMode) {
		t.Fatalf("unknown mode error = %v", err)
	}
}

func TestWhitespaceModeCapabilities(t *testing.T) {
	cases := []struct {
		mode                        WhitespaceMode
		wraps, spaces, newlines bool
	}{
		{WhitespaceNormal, true, false, false},
		{WhitespaceNowrap, false, false, false},
		{WhitespacePre, false, true, true},
		{WhitespacePreWrap, true, true, true},
		{WhitespacePreLine, true, false, true},
	}
	for _, tc := range cases {
		if tc.mode.Wraps() != tc.wraps || tc.mode.PreservesSpaces() != tc.spaces || tc.mode.PreservesNewlines() != tc.newlines {
			t.Errorf("%s: wraps=%v spaces=%v newlines=%v", tc.mode, tc.mode.Wraps(), tc.mode.PreservesSpaces(), tc.mode.PreservesNewlines())
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		text string
		mode WhitespaceMode
		want []Segment
	}{
		{"normal trims ends", " hello ", WhitespaceNormal, []Segment{word("hello")}},
		{"normal folds newline", " hello \n world", WhitespaceNormal, []Segment{word("hello"), softSpace(), word("world")}},
		{"normal collapses tabs", "a\t\t b", WhitespaceNormal, []Segment{word("a"), softSpace(), word("b")}},
		{"nowrap trims ends", " hello, world ", WhitespaceNowrap, []Segment{word("hello,"), softSpace(), word("world")}},
		{"pre keeps ends", " hello ", WhitespacePre, []Segment{keptSpace(" "), word("hello"), keptSpace(" ")}},
		{"pre keeps runs", "a  \tb", WhitespacePre, []Segment{word("a"), keptSpace("  \t"), word("b")}},
		{"pre-wrap newline", " hello \n world", WhitespacePreWrap, []Segment{
			keptSpace(" "), word("hello"), keptSpace(" "), lineFeed(), keptSpace(" "), word("world"),
		}},
		{"pre-line collapses spaces", "  a   b \n c  ", WhitespacePreLine, []Segment{
			word("a"), softSpace(), word("b"), softSpace(), lineFeed(), softSpace(), word("c"),
		}},
		{"crlf is one break", "a\r\nb", WhitespacePre, []Segment{word("a"), lineFeed(), word("b")}},
		{"punctuation stays in word", "hello,world!", WhitespaceNormal, []Segment{word("hello,world!")}},
		{"nbsp is not white space", "a\u00a0b", WhitespaceNormal, []Segment{word("a\u00a0b")}},
		{"only spaces", "   ", WhitespaceNormal, nil},
		{"empty", "", WhitespacePre, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.text, tc.mode)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Normalize(%q, %s)\n got  %+v\n want %+v", tc.text, tc.mode, got, tc.want)
			}
		})
	}
}

func TestNormalizeRejectsInvalidMode(t *testing.T) {
	segs, err := Normalize("hello", WhitespaceMode(42))
	if !errors.Is(err, ErrInvalidWhitespaceMode) {
		t.Fatalf("err = %v, want ErrInvalidWhitespaceMode", err)
	}
	if segs != nil {
		t.Fatalf("expected no segments, got %v", segs)
	}
}

func TestWhitespaceModeText(t *testing.T) {
	b, err := WhitespacePreLine.MarshalText()
	if err != nil || string(b) != "pre-line" {
		t.Fatalf("MarshalText = %q, %v", b, err)
	}
	var m WhitespaceMode
	if err := m.UnmarshalText([]byte("nowrap")); err != nil || m != WhitespaceNowrap {
		t.Fatalf("UnmarshalText = %v, %v", m, err)
	}
	if _, err := WhitespaceMode(9).MarshalText(); !errors.Is(err, ErrInvalidWhitespaceMode) {
		t.Fatalf("invalid mode marshalled: %v", err)
	}
}
