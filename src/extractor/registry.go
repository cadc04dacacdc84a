package extractor

import (
	"fmt"
	"strings"

	"github.com/yuanv4/aibookkeeping/src/layouts"
)

// Registry holds the registered issuer extractors. Registration happens
// explicitly at process start; there is no dynamic discovery, so the
// supported-issuer set is statically visible.
type Registry struct {
	extractors []*Extractor
	byCode     map[string]*Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byCode: make(map[string]*Extractor)}
}

// Register adds an extractor for the layout. Panics on a duplicate code:
// the layout set is static configuration and a collision is a programming
// error, not a runtime condition.
func (r *Registry) Register(layout layouts.Layout) {
	key := strings.ToUpper(layout.BankCode)
	if _, exists := r.byCode[key]; exists {
		panic("duplicate extractor code: " + key)
	}
	ex := New(layout)
	r.extractors = append(r.extractors, ex)
	r.byCode[key] = ex
}

// DefaultRegistry returns a registry with all built-in issuer layouts
// registered in their declared order.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, layout := range layouts.Builtin() {
		r.Register(layout)
	}
	return r
}

// Create returns the extractor registered for code (case-insensitive).
func (r *Registry) Create(code string) (*Extractor, error) {
	ex, ok := r.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, fmt.Errorf("no extractor registered for code %q", code)
	}
	return ex, nil
}

// AutoDetect probes the registered extractors in registration order and
// returns the first one whose account-identity probe claims the grid.
// Detection is order-deterministic, not confidence-ranked: when two layouts
// could both claim a file, the earlier-registered one wins. Returns nil
// when no extractor matches; the caller records the file as unprocessed.
func (r *Registry) AutoDetect(grid Grid) *Extractor {
	for _, ex := range r.extractors {
		if ex.Probe(grid) {
			return ex
		}
	}
	return nil
}

// Codes lists the registered issuer codes in registration order.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.extractors))
	for _, ex := range r.extractors {
		codes = append(codes, ex.Code())
	}
	return codes
}
