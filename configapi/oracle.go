package configapi

import (
	"fmt"
	"sync"
)

// Oracle serializes the default instance of a config type to internal text. The
// host owns the typed schema; the engine only ever sees the text.
type Oracle interface {
	DefaultXML(typeName string) (string, error)
}

// Deserializer is implemented by oracles that can also load internal text into a
// typed instance. Converters use it to check that a rebuilt document still fits the schema.
type Deserializer interface {
	Deserialize(typeName, internal string) (any, error)
}

// OracleFuncs adapts plain functions to Oracle and, when Deserialize is set, Deserializer.
type OracleFuncs struct {
	Default     func(typeName string) (string, error)
	Deserialize func(typeName, internal string) (any, error)
}

// DefaultXML calls Default.
func (o OracleFuncs) DefaultXML(typeName string) (string, error) {
	if o.Default == nil {
		return "", fmt.Errorf("no default serializer for %s", typeName)
	}
	return o.Default(typeName)
}

// StaticOracle serves pre-rendered defaults by type name.
type StaticOracle struct {
	mu       sync.RWMutex
	defaults map[string]string
}

// NewStaticOracle builds an oracle from a type-name to internal-text map.
func NewStaticOracle(defaults map[string]string) *StaticOracle {
	o := &StaticOracle{defaults: make(map[string]string, len(defaults))}
	for k, v := range defaults {
		o.defaults[k] = v
	}
	return o
}

// Set registers or replaces the defaults for a type.
func (o *StaticOracle) Set(typeName, internal string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.defaults[typeName] = internal
}

// DefaultXML returns the registered defaults.
func (o *StaticOracle) DefaultXML(typeName string) (string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.defaults[typeName]
	if !ok {
		return "", fmt.Errorf("no defaults registered for %s", typeName)
	}
	return v, nil
}

// deserializerFor returns the oracle's Deserializer, if it has a usable one.
func deserializerFor(o Oracle) (func(string, string) (any, error), bool) {
	switch v := o.(type) {
	case OracleFuncs:
		if v.Deserialize != nil {
			return v.Deserialize, true
		}
		return nil, false
	case *OracleFuncs:
		if v != nil && v.Deserialize != nil {
			return v.Deserialize, true
		}
		return nil, false
	case Deserializer:
		return v.Deserialize, true
	}
	return nil, false
}
