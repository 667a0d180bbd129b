package scene

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ux3d/ANARI-SDK/internal/value"
)

//go:embed scene.schema.json
var schemaJSON []byte

const schemaURL = "https://anari.khronos.org/cts/scene.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parse scene schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add scene schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Validate checks a merged scene document against the embedded schema.
func Validate(doc value.Object) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(value.ToAny(doc)); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
