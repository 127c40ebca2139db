package redact

import "testing"

func TestContains(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"plain", "hello world", false},
		{"single span", "a<private>x</private>b", true},
		{"upper-case tag", "a<PRIVATE>x</PRIVATE>b", true},
		{"multiline span", "a<private>line1\nline2</private>b", true},
		{"unterminated", "a<private>never closed", false},
		{"close only", "a</private>b", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Contains(tt.in); got != tt.want {
				t.Errorf("Contains(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"removes span", "a<private>secret</private>b", "ab"},
		{"trims result", "  <private>x</private> keep  ", "keep"},
		{"several spans", "1<private>a</private>2<private>b</private>3", "123"},
		{"non-greedy", "<private>a</private>mid<private>b</private>", "mid"},
		{"multiline", "head\n<private>x\ny</private>\ntail", "head\n\ntail"},
		{"no span is no-op", "nothing here", "nothing here"},
		{"unterminated left visible", "x<private>y", "x<private>y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Strip(tt.in); got != tt.want {
				t.Errorf("Strip(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantContent string
		wantPrivate bool
	}{
		{"no span keeps text verbatim", "  spaced  ", "  spaced  ", false},
		{"partial span", "a<private>secret</private>b", "ab", false},
		{"fully private", "<private>x</private>", Placeholder, true},
		{"private plus whitespace", " \n<private>x</private>\t", Placeholder, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, private := Apply(tt.in)
			if content != tt.wantContent {
				t.Errorf("content = %q, want %q", content, tt.wantContent)
			}
			if private != tt.wantPrivate {
				t.Errorf("private = %v, want %v", private, tt.wantPrivate)
			}
		})
	}
}
