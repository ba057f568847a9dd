package configapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ConverterRegistry is a threadsafe registry of format converters.
type ConverterRegistry struct {
	mu         sync.RWMutex
	converters map[string]FormatConverter
}

// NewConverterRegistry builds an empty registry.
func NewConverterRegistry() *ConverterRegistry {
	return &ConverterRegistry{converters: make(map[string]FormatConverter)}
}

// NewDefaultConverterRegistry holds the identity converter and a flat converter
// backed by oracle.
func NewDefaultConverterRegistry(oracle Oracle) *ConverterRegistry {
	reg := NewConverterRegistry()
	// both formats are distinct, registration cannot collide
	_ = reg.Register(IdentityConverter{})
	_ = reg.Register(&FlatConverter{Oracle: oracle})
	return reg
}

var (
	// ErrConverterExists indicates a duplicate registration attempt.
	ErrConverterExists = errors.New("converter already registered")
	// ErrUnknownFormat indicates a lookup for an unregistered format.
	ErrUnknownFormat = errors.New("unknown format")
)

// Register adds a converter. Returns ErrConverterExists when the format is taken.
func (r *ConverterRegistry) Register(conv FormatConverter) error {
	if conv == nil {
		return errors.New("converter is nil")
	}
	key := strings.ToLower(conv.Format())
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.converters[key]; exists {
		return fmt.Errorf("%w: %s", ErrConverterExists, key)
	}
	r.converters[key] = conv
	return nil
}

// Get returns the converter for format.
func (r *ConverterRegistry) Get(format string) (FormatConverter, error) {
	r.mu.RLock()
	conv, ok := r.converters[strings.ToLower(format)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	return conv, nil
}

// List returns registered format names in sorted order.
func (r *ConverterRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.converters))
	for k := range r.converters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
