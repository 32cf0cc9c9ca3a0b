package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// AttributeAction is one row of the data-driven verb table: the verb toggles
// one boolean attribute on a target, optionally gated by a tool-held ability.
type AttributeAction struct {
	Verb          string `json:"verb"`
	Attribute     string `json:"attribute"`
	ExpectedValue bool   `json:"expected_value"`
	RequiresTool  bool   `json:"requires_tool,omitempty"`
	Description   string `json:"description,omitempty"`
}

type attributeDoc struct {
	Actions []AttributeAction `json:"actions"`
}

// AttributeTable maps an upper-cased verb to its definition. The same table
// backs solo and cooperative attribute actions.
type AttributeTable map[string]AttributeAction

// LoadAttributeTable reads, schema-validates and decodes the verb table.
func LoadAttributeTable(path string) (AttributeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validateDoc(schemaActions, raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var doc attributeDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return BuildAttributeTable(doc.Actions)
}

func BuildAttributeTable(rows []AttributeAction) (AttributeTable, error) {
	table := AttributeTable{}
	for _, row := range rows {
		verb := strings.ToUpper(strings.TrimSpace(row.Verb))
		if verb == "" {
			return nil, fmt.Errorf("attribute action with empty verb")
		}
		if _, ok := table[verb]; ok {
			return nil, fmt.Errorf("duplicate attribute verb: %s", verb)
		}
		if strings.TrimSpace(row.Attribute) == "" {
			return nil, fmt.Errorf("attribute action %s: empty attribute", verb)
		}
		row.Verb = verb
		table[verb] = row
	}
	return table, nil
}
