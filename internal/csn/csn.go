// Package csn parses CSN (Core Schema Notation) object definitions as
// returned by the Datasphere repository and its underlying database.
//
// CSN documents are open-ended JSON: annotations start with "@" and new ones
// appear without notice, so parsing works over decoded maps and keeps only
// the fields the toolkit renders.
package csn

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Annotation keys read from CSN documents.
const (
	annLabel       = "@EndUserText.label"
	annForeignKey  = "@ObjectModel.foreignKey.association"
	annExposed     = "@DataWarehouse.consumption.external"
	annDACUsage    = "@DataWarehouse.dataAccessControl.usage"
	semanticPrefix = "@Semantics."
)

// Element is a single field of a CSN entity or view definition.
type Element struct {
	TechnicalName string         `json:"technicalName"`
	Label         string         `json:"label,omitempty"`
	Type          string         `json:"type"`
	Length        int            `json:"length,omitempty"`
	Key           bool           `json:"key"`
	NotNull       bool           `json:"notNull"`
	Association   string         `json:"association,omitempty"`
	Semantics     map[string]any `json:"semantics,omitempty"`
}

// DACUsage is one data access control applied to a definition: the DAC
// object and the definition's columns mapped onto it.
type DACUsage struct {
	Target  string   `json:"target"`
	Columns []string `json:"columns,omitempty"`
}

// Definition is a complete CSN object definition.
type Definition struct {
	ObjectName string     `json:"objectName"`
	Kind       string     `json:"kind"`
	Label      string     `json:"label,omitempty"`
	Exposed    bool       `json:"exposed"`
	Elements   []Element  `json:"elements"`
	DAC        []DACUsage `json:"dac,omitempty"`
}

// ParseElement builds an Element from one entry of a CSN "elements" map.
func ParseElement(technicalName string, raw map[string]any) Element {
	elem := Element{
		TechnicalName: technicalName,
		Label:         stringValue(raw[annLabel]),
		Type:          stringValueDefault(raw["type"], "unknown"),
		Key:           boolValue(raw["key"]),
		NotNull:       boolValue(raw["notNull"]),
	}

	if length, ok := raw["length"].(float64); ok {
		elem.Length = int(length)
	}

	// Foreign-key associations arrive as {"=": "<target>"}.
	if fk, ok := raw[annForeignKey].(map[string]any); ok {
		elem.Association = stringValue(fk["="])
	}

	for key, value := range raw {
		if strings.HasPrefix(key, semanticPrefix) {
			if elem.Semantics == nil {
				elem.Semantics = make(map[string]any)
			}
			elem.Semantics[key] = value
		}
	}

	return elem
}

// ParseDefinition builds a Definition from a decoded CSN definition body.
// Elements come back sorted by technical name for deterministic rendering;
// CSN maps carry no order of their own.
func ParseDefinition(objectName string, raw map[string]any) Definition {
	def := Definition{
		ObjectName: objectName,
		Kind:       stringValueDefault(raw["kind"], "unknown"),
		Label:      stringValue(raw[annLabel]),
		Exposed:    boolValue(raw[annExposed]),
	}

	if elements, ok := raw["elements"].(map[string]any); ok {
		names := make([]string, 0, len(elements))
		for name := range elements {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if body, ok := elements[name].(map[string]any); ok {
				def.Elements = append(def.Elements, ParseElement(name, body))
			}
		}
	}

	if usages, ok := raw[annDACUsage].([]any); ok {
		for _, usage := range usages {
			body, ok := usage.(map[string]any)
			if !ok {
				continue
			}
			def.DAC = append(def.DAC, DACUsage{
				Target:  stringValue(body["target"]),
				Columns: dacColumns(body["on"]),
			})
		}
	}

	return def
}

// dacColumns extracts the mapped column names from a DAC "on" condition.
// The condition alternates {ref}/operator tokens, one mapping per four
// entries, with the definition's own column first in each mapping.
func dacColumns(v any) []string {
	on, ok := v.([]any)
	if !ok {
		return nil
	}
	var cols []string
	for i := 0; i < len(on); i += 4 {
		entry, ok := on[i].(map[string]any)
		if !ok {
			continue
		}
		if refs, ok := entry["ref"].([]any); ok && len(refs) > 0 {
			if name, ok := refs[0].(string); ok {
				cols = append(cols, name)
			}
		}
	}
	return cols
}

// ParseDocument parses a full deployed CSN artifact body of the shape
// {"definitions": {name: {...}}}. Definitions come back sorted by name.
func ParseDocument(body []byte) ([]Definition, error) {
	var doc struct {
		Definitions map[string]map[string]any `json:"definitions"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse CSN document: %w", err)
	}

	names := make([]string, 0, len(doc.Definitions))
	for name := range doc.Definitions {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		defs = append(defs, ParseDefinition(name, doc.Definitions[name]))
	}
	return defs, nil
}

// KeyFields returns the technical names of all key elements.
func (d Definition) KeyFields() []string {
	var keys []string
	for _, elem := range d.Elements {
		if elem.Key {
			keys = append(keys, elem.TechnicalName)
		}
	}
	return keys
}

// Associations returns element name to association target for all elements
// carrying a foreign-key association.
func (d Definition) Associations() map[string]string {
	out := make(map[string]string)
	for _, elem := range d.Elements {
		if elem.Association != "" {
			out[elem.TechnicalName] = elem.Association
		}
	}
	return out
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func stringValueDefault(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}
