package exclude

// Defaults contains patterns excluded from every backup unless the user
// overrides the exclusion list entirely. They cover version-control
// metadata, OS cruft, and per-user cache directories that are regenerated
// rather than restored.
var Defaults = []string{
	"*/.git",
	"*/.svn",
	"*/.hg",
	"*/node_modules",
	"*/__pycache__",
	"*/.cache",
	"*/.DS_Store",
	"*/Thumbs.db",
	"*/AppData/Local/Temp",
}

// WithDefaults appends the built-in defaults to the user-supplied patterns.
func WithDefaults(patterns []string) []string {
	out := make([]string, 0, len(patterns)+len(Defaults))
	out = append(out, patterns...)
	out = append(out, Defaults...)
	return out
}
