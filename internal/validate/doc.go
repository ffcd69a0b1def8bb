// Package validate provides input validation for cellrev's domain types.
//
// Validation happens at the store boundary so every code path that persists
// data (CLI, MCP, web, tests) goes through the same rules. Each function
// returns nil on success or an error wrapping one of the sentinels in
// errors.go:
//
//	if errors.Is(err, validate.ErrInvalidCellID) {
//	    // handle invalid id
//	}
//
// Rules are minimal: reject clearly broken input (empty ids, control
// characters, oversized text, unknown approval states) and otherwise store
// what the user gave.
package validate
