// Package baggage
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Immutable trace baggage carried alongside calls. Every mutation returns a
// new Baggage; existing values are never modified, so a Baggage can be
// shared freely between goroutines and call contexts.

package baggage

import (
	"sort"
	"strings"
)

// Baggage maps trace key names to arbitrary values. The zero value is empty.
type Baggage struct {
	items map[string]any
}

// Key is a typed baggage key.
type Key[T any] struct {
	name string
}

// NewKey declares a typed key stored under name.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the key's name.
func (k Key[T]) Name() string { return k.name }

// New returns an empty Baggage.
func New() Baggage { return Baggage{} }

// FromMap copies m into a new Baggage.
func FromMap(m map[string]any) Baggage {
	if len(m) == 0 {
		return Baggage{}
	}
	items := make(map[string]any, len(m))
	for k, v := range m {
		items[k] = v
	}
	return Baggage{items: items}
}

// With returns a copy of b with key set to value.
func (b Baggage) With(key string, value any) Baggage {
	items := make(map[string]any, len(b.items)+1)
	for k, v := range b.items {
		items[k] = v
	}
	items[key] = value
	return Baggage{items: items}
}

// Without returns a copy of b without key.
func (b Baggage) Without(key string) Baggage {
	if _, ok := b.items[key]; !ok {
		return b
	}
	items := make(map[string]any, len(b.items))
	for k, v := range b.items {
		if k != key {
			items[k] = v
		}
	}
	return Baggage{items: items}
}

// Get returns the value stored under key.
func (b Baggage) Get(key string) (any, bool) {
	v, ok := b.items[key]
	return v, ok
}

// Len returns the number of entries.
func (b Baggage) Len() int { return len(b.items) }

// Keys returns the key names in sorted order.
func (b Baggage) Keys() []string {
	keys := make([]string, 0, len(b.items))
	for k := range b.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KeyList renders the key names as a comma separated list, as used in
// trace logging. Empty baggage renders as "".
func (b Baggage) KeyList() string {
	return strings.Join(b.Keys(), ", ")
}

// ForEach visits entries in key order until fn returns false.
func (b Baggage) ForEach(fn func(key string, value any) bool) {
	for _, k := range b.Keys() {
		if !fn(k, b.items[k]) {
			return
		}
	}
}

func (b Baggage) String() string {
	return "[" + b.KeyList() + "]"
}

// Set returns a copy of b with the typed key set.
func Set[T any](b Baggage, key Key[T], value T) Baggage {
	return b.With(key.name, value)
}

// Get returns the value of a typed key. ok is false when the key is absent
// or holds a value of another type.
func Get[T any](b Baggage, key Key[T]) (value T, ok bool) {
	raw, found := b.items[key.name]
	if !found {
		return value, false
	}
	value, ok = raw.(T)
	return value, ok
}
