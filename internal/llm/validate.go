package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	draftSchemaOnce sync.Once
	draftSchema     *jsonschema.Schema
	draftSchemaErr  error
)

// CompileSchema compiles a schema map with santhosh-tekuri/jsonschema.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateDraft validates a canonical draft document against BuildDraftJSONSchema.
// The document is round-tripped through JSON so Go types match what the validator expects.
func ValidateDraft(doc map[string]any) error {
	draftSchemaOnce.Do(func() {
		draftSchema, draftSchemaErr = CompileSchema(BuildDraftJSONSchema())
	})
	if draftSchemaErr != nil {
		return draftSchemaErr
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal draft: %w", err)
	}
	if err := draftSchema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
