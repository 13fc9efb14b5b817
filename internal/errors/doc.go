// Package errors provides structured, actionable errors for viewmodel.
//
// Every error carries a stable code (e.g. "E101") that maps to a registered
// template with a category, a short message, a longer explanation and a
// documentation URL. Callers add the specifics with the With* builders:
//
//	err := errors.New("E101").
//	    WithDetail(`Missing "foo" adaptor plugin.`).
//	    WithSuggestion("Register the adaptor on the instance, its class, or an ancestor")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E101: Missing plugin
//	//
//	//   Missing "foo" adaptor plugin.
//	//
//	//   Hint: Register the adaptor on the instance, its class, or an ancestor
//	//
//	//   Learn more: https://vango.dev/docs/viewmodel/errors/E101
//
// # Categories
//
//   - runtime: propagation failures (cycles, runaway waves)
//   - construct: fatal instance construction failures (missing plugins, bad data)
//   - config: configuration file problems
//   - cli: command line and scene problems
package errors
