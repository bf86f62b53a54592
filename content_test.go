package visitor

import (
	"strings"
	"testing"

	"github.com/docutag/visitor/models"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "tags stripped and whitespace collapsed",
			body: "<div>Hello <b>World</b></div>\n\n  <p>Tom &amp; Jerry</p>\n",
			want: "Hello World Tom & Jerry",
		},
		{
			name: "script and style removed across lines",
			body: "<p>Keep</p><SCRIPT type=\"text/javascript\">\nvar x = '<p>drop</p>';\n</SCRIPT><style>\np { color: red }\n</style><p>this</p>",
			want: "Keepthis",
		},
		{
			name: "empty",
			body: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.body); got != tt.want {
				t.Errorf("CleanText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractContentPrefix(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		text    string
		terms   []string
		limit   int
		want    string
	}{
		{"no terms truncates", ProfileFull, "abcdef", nil, 3, "abc"},
		{"budget covers text", ProfileFull, "abcdef", []string{"zzz"}, 6, "abcdef"},
		{"zero budget", ProfileFull, "abcdef", nil, 0, ""},
		{"full keeps trailing space", ProfileFull, "abc def", nil, 4, "abc "},
		{"simple trims trailing space", ProfileSimple, "abc def", nil, 4, "abc"},
		{"counts characters not bytes", ProfileFull, "ÄÖÜäöü", nil, 2, "ÄÖ"},
		{"only blank terms", ProfileFull, "abcdef", []string{" "}, 2, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewRanker(tt.profile).ExtractContent(tt.text, tt.terms, tt.limit)
			if got != tt.want {
				t.Errorf("ExtractContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractContentWindowsMerge(t *testing.T) {
	//       0         1         2         3
	//       01234567890123456789012345678901234
	text := "xxxxxxxxxx alpha yy beta zzzzzzzzzz"

	// padding = 20 / (2 terms * 2) = 5
	got := NewRanker(ProfileFull).ExtractContent(text, []string{"alpha", "BETA"}, 20)

	want := text[6:29]
	if got != want {
		t.Errorf("ExtractContent() = %q, want one contiguous span %q", got, want)
	}
	if strings.Count(got, "alpha") != 1 || strings.Count(got, "beta") != 1 {
		t.Errorf("Overlapping windows were duplicated: %q", got)
	}
}

func TestExtractContentDisjointWindows(t *testing.T) {
	text := "alpha " + strings.Repeat("x", 30) + " beta"

	got := NewRanker(ProfileFull).ExtractContent(text, []string{"beta", "alpha", "missing"}, 10)

	// Three terms: padding = 10 / 6 = 1
	want := "alpha " + " beta"
	if got != want {
		t.Errorf("ExtractContent() = %q, want %q", got, want)
	}
}

func TestExtractContentNoMatches(t *testing.T) {
	text := strings.Repeat("lorem ipsum ", 20)
	if got := NewRanker(ProfileFull).ExtractContent(text, []string{"absent"}, 10); got != "" {
		t.Errorf("ExtractContent() = %q, want empty", got)
	}
}

func TestExtractContentRuneOffsets(t *testing.T) {
	text := "ÄÄÄÄÄ Alpha ÖÖÖÖÖ"

	// padding = 4 / 2 = 2 runes on each side
	got := NewRanker(ProfileFull).ExtractContent(text, []string{"ALPHA"}, 4)
	if got != "Ä Alpha Ö" {
		t.Errorf("ExtractContent() = %q, want %q", got, "Ä Alpha Ö")
	}
}

func TestFindWindowsGreedyPadding(t *testing.T) {
	runes := []rune("xx ab ab yy zzzzzzzzzz")

	// padding = 12 / 2 = 6: the leading padding reaches the second "ab"
	windows := FindWindows(runes, []string{"ab"}, 12)
	if len(windows) != 1 {
		t.Fatalf("Expected 1 window, got %d", len(windows))
	}

	w := windows[0]
	if w.StartOffset != 0 || w.Length != 14 || w.Text != "xx ab ab yy zz" {
		t.Errorf("Unexpected window %+v", w)
	}
}

func TestMergeWindows(t *testing.T) {
	source := []rune("0123456789abcdefghij")
	window := func(start, end int) models.ContentWindow {
		return models.ContentWindow{StartOffset: start, Length: end - start, Text: string(source[start:end])}
	}

	tests := []struct {
		name    string
		windows []models.ContentWindow
		want    string
	}{
		{"none", nil, ""},
		{"disjoint", []models.ContentWindow{window(0, 3), window(5, 8)}, "012567"},
		{"adjacent", []models.ContentWindow{window(0, 3), window(3, 6)}, "012345"},
		{"overlapping", []models.ContentWindow{window(0, 5), window(3, 8)}, "01234567"},
		{"contained", []models.ContentWindow{window(0, 10), window(2, 6), window(8, 12)}, "0123456789ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeWindows(tt.windows)
			if got != tt.want {
				t.Errorf("MergeWindows() = %q, want %q", got, tt.want)
			}

			// Never longer than the union of the windows
			if len([]rune(got)) > len(source) {
				t.Errorf("Merged output longer than source: %q", got)
			}
		})
	}
}
