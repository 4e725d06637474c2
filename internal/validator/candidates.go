package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	_ "embed"
)

//go:embed candidates.schema.json
var schemaData []byte
var schema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("candidates.schema.json", strings.NewReader(string(schemaData))); err != nil {
		panic(err)
	}
	var err error
	schema, err = compiler.Compile("candidates.schema.json")
	if err != nil {
		panic(err)
	}
}

// Candidates decodes a JSON candidate list and checks it against the embedded
// schema and PolicyViolations. All problems are returned joined.
func Candidates(data []byte) ([]string, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if errs := schemaErrors(v); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if errs := PolicyViolations(list); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return list, nil
}

func schemaErrors(v any) []error {
	err := schema.Validate(v)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []error{err}
	}
	var errs []error
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			errs = append(errs, fmt.Errorf("%s: %s", location(e.InstanceLocation), e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return errs
}

func location(l string) string {
	if l == "" {
		return "/"
	}
	return l
}
