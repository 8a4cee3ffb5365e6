package shader

import (
	"fmt"

	"github.com/gogpu/naga"
)

// Validate runs WGSL source through the naga front end before it is handed to the GPU driver.
//
// A syntax error is returned as err and means the source can never compile. Problems found while lowering to IR or while
// validating the IR are returned as issues instead: the driver's own compiler stays authoritative for semantics, so
// callers log issues and carry on.
//
// Parameters:
//   - source: the WGSL source code
//
// Returns:
//   - []error: lowering and validation issues, nil when the module is clean
//   - error: the parse error, if any
func Validate(source string) ([]error, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse wgsl: %w", err)
	}

	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return []error{fmt.Errorf("lower wgsl: %w", err)}, nil
	}

	verrs, err := naga.Validate(module)
	if err != nil {
		return []error{fmt.Errorf("validate wgsl: %w", err)}, nil
	}
	var issues []error
	for _, ve := range verrs {
		issues = append(issues, ve)
	}
	return issues, nil
}
