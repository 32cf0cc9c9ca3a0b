package scene

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const (
	schemaScene   = "schemas/scene.schema.json"
	schemaTasks   = "schemas/tasks.schema.json"
	schemaActions = "schemas/actions.schema.json"
)

var compiled = map[string]*jsonschema.Schema{}

func init() {
	for _, name := range []string{schemaScene, schemaTasks, schemaActions} {
		raw, err := schemaFS.ReadFile(name)
		if err != nil {
			panic(fmt.Sprintf("scene: missing embedded schema %s: %v", name, err))
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
			panic(fmt.Sprintf("scene: add schema %s: %v", name, err))
		}
		s, err := c.Compile(name)
		if err != nil {
			panic(fmt.Sprintf("scene: compile schema %s: %v", name, err))
		}
		compiled[name] = s
	}
}

// validateDoc checks a raw JSON document against one of the embedded schemas
// before it is decoded into typed structs.
func validateDoc(schemaName string, raw []byte) error {
	s := compiled[schemaName]
	if s == nil {
		return fmt.Errorf("unknown schema: %s", schemaName)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
