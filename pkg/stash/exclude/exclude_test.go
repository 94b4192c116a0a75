package exclude

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    string
	}{
		{"plain path", "/data/tmp", "/data/tmp"},
		{"trailing slash", "/data/tmp/", "/data/tmp"},
		{"trailing wildcard", "/data/tmp/*", "/data/tmp"},
		{"stacked trailing junk", "/data/tmp/*/", "/data/tmp"},
		{"windows separators", `C:\Users\me\cache\*`, "C:/Users/me/cache"},
		{"whitespace", "  /data/tmp  ", "/data/tmp"},
		{"wildcard prefix kept", "*/node_modules", "*/node_modules"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.pattern); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestMatcherMatch(t *testing.T) {
	m, err := Compile([]string{
		"/data/project/tmp",
		"*/node_modules",
		".git",
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"exact directory", "/data/project/tmp", true},
		{"file under excluded dir", "/data/project/tmp/cache.bin", true},
		{"deeply nested under excluded dir", "/data/project/tmp/a/b/c.txt", true},
		{"sibling not excluded", "/data/project/src/main.go", false},
		{"prefix is not a path boundary", "/data/project/tmpfiles/x", false},
		{"wildcard any depth", "/data/a/node_modules/pkg/index.js", true},
		{"wildcard top level", "/home/me/node_modules", true},
		{"segment pattern matches basename", "/data/project/.git/config", true},
		{"segment pattern nested", "/src/repo/sub/.git/HEAD", true},
		{"unrelated path", "/data/project/readme.md", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestMatcherEmpty(t *testing.T) {
	m, err := Compile(nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !m.Empty() {
		t.Error("expected empty matcher")
	}
	if m.Match("/anything") {
		t.Error("empty matcher must not match")
	}

	var nilMatcher *Matcher
	if nilMatcher.Match("/anything") {
		t.Error("nil matcher must not match")
	}
}

func TestCompileInvalidPattern(t *testing.T) {
	if _, err := Compile([]string{"[unclosed"}); err == nil {
		t.Error("expected error for unparseable pattern")
	}
}

func TestWithDefaults(t *testing.T) {
	got := WithDefaults([]string{"/custom"})
	if got[0] != "/custom" {
		t.Errorf("user patterns must come first, got %q", got[0])
	}
	if len(got) != 1+len(Defaults) {
		t.Errorf("expected %d patterns, got %d", 1+len(Defaults), len(got))
	}
}
