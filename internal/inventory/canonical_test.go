package inventory

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://Example.COM/Path",
			want: "https://example.com/Path",
		},
		{
			name: "strips default https port",
			in:   "https://example.com:443/a",
			want: "https://example.com/a",
		},
		{
			name: "strips default http port",
			in:   "http://example.com:80/a",
			want: "http://example.com/a",
		},
		{
			name: "keeps non-default port",
			in:   "https://example.com:8443/a",
			want: "https://example.com:8443/a",
		},
		{
			name: "drops fragment",
			in:   "https://example.com/a#section",
			want: "https://example.com/a",
		},
		{
			name: "sorts query parameters",
			in:   "https://example.com/a?z=1&a=2",
			want: "https://example.com/a?a=2&z=1",
		},
		{
			name: "trailing slash is preserved",
			in:   "https://example.com/a/",
			want: "https://example.com/a/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.in)
			if err != nil {
				t.Fatalf("Canonicalize(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	inputs := []string{
		"HTTPS://Example.COM:443/Path?z=1&a=2#frag",
		"http://example.com:80/",
		"https://example.com/a/b?x=y",
	}

	for _, in := range inputs {
		once, err := Canonicalize(in)
		if err != nil {
			t.Fatalf("first pass error: %v", err)
		}
		twice, err := Canonicalize(once)
		if err != nil {
			t.Fatalf("second pass error: %v", err)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestCanonicalize_LexicallyDistinctSameForm(t *testing.T) {
	// Lexically distinct URLs resolving to the same normalized form must
	// canonicalize identically.
	a, err := Canonicalize("HTTPS://example.com:443/page?b=2&a=1#x")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	b, err := Canonicalize("https://EXAMPLE.COM/page?a=1&b=2")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if a != b {
		t.Errorf("expected identical canonical forms, got %q and %q", a, b)
	}
}
