// Package fieldmap translates logical field names used in criteria to the
// physical names a backend understands.
//
// A Map is a plain logical → physical table. Several logical keys may
// point at the same physical name, and a logical name that is absent from
// the table but prefixes physical names ("owner" for "owner.id" and
// "owner.type") stands for that whole group when tested for null.
package fieldmap

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Map maps logical field names to physical ones.
// A Map must not be modified once handed to a compiler; it may be shared
// between concurrent compilations.
type Map map[string]string

// Resolve returns the physical name of field, or field itself when it is
// not mapped.
func (m Map) Resolve(field string) string {
	if physical, ok := m[field]; ok {
		return physical
	}
	return field
}

// ResolveSet returns every physical name field stands for. A directly
// mapped field resolves to its single mapping. Otherwise every physical
// name starting with "<field>." is returned, sorted. When there are none
// the result is field itself.
func (m Map) ResolveSet(field string) []string {
	if physical, ok := m[field]; ok {
		return []string{physical}
	}

	prefix := field + "."

	var group []string
	for _, physical := range m {
		if strings.HasPrefix(physical, prefix) {
			group = append(group, physical)
		}
	}

	if len(group) == 0 {
		return []string{field}
	}

	slices.Sort(group)

	return group
}

// Provider returns the map to use for the next compilation.
type Provider interface {
	FieldMap() Map
}

// FieldMap makes a static Map its own Provider.
func (m Map) FieldMap() Map {
	return m
}

// Parse decodes a YAML mapping of logical to physical names.
func Parse(data []byte) (Map, error) {
	m := Map{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("cannot parse field map: %w", err)
	}

	for logical, physical := range m {
		if logical == "" || physical == "" {
			return nil, fmt.Errorf("field map entries cannot be empty: %q -> %q", logical, physical)
		}
	}

	return m, nil
}

// Load reads and parses a YAML field map file.
func Load(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read field map: %w", err)
	}

	return Parse(data)
}
