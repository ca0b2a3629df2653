// Package preflight provides readiness checks for the tools, directories,
// and narrative provider an inspection run depends on.
//
// The CLI status command renders every check. Runs do not require a passing
// preflight: missing optional tools only degrade the affected stage.
package preflight
