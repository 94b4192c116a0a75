// Package report provides formatters for displaying backup run summaries
// in various output formats (pretty, plain, json).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := report.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package report

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/stash/pkg/stash/types"
)

// durationPrecision is the rounding applied to durations in rendered output.
const durationPrecision = 10 * time.Millisecond

// SourceSummary is the per-source slice of a run summary.
type SourceSummary struct {
	// Path is the source root that was backed up.
	Path string `json:"path"`

	// FilesFound is the number of files enumerated under the root.
	FilesFound int64 `json:"files_found"`

	// WalkErrors is the number of entries that could not be enumerated.
	WalkErrors int64 `json:"walk_errors"`
}

// Result contains the complete run summary for formatting.
type Result struct {
	// Stats aggregates the run outcome.
	Stats types.RunStats `json:"stats"`

	// Sources lists the per-source outcomes in configuration order.
	Sources []SourceSummary `json:"sources"`

	// Destination is where the generation was written.
	Destination string `json:"destination"`

	// Interrupted indicates the run was cancelled before completion.
	Interrupted bool `json:"interrupted"`
}

// Formatter is the interface that all report formatters must implement.
type Formatter interface {
	// Format writes the formatted summary to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
