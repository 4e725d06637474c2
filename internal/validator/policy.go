package validator

import (
	"errors"
	"fmt"
)

// ErrDuplicate marks a CEP listed more than once.
var ErrDuplicate = errors.New("duplicate cep")

// PolicyViolations runs checks the schema cannot express.
func PolicyViolations(list []string) []error {
	var errs []error
	seen := make(map[string]int, len(list))
	for i, c := range list {
		if first, ok := seen[c]; ok {
			// duplicates skew the uniform pick towards one code
			errs = append(errs, fmt.Errorf("/%d: %w %s (first at /%d)", i, ErrDuplicate, c, first))
			continue
		}
		seen[c] = i
	}
	return errs
}
