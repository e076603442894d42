// Package errors provides structured, actionable error messages for the
// reactobj command line tools.
//
// Each error carries a code (e.g. "R020") registered with a category, a
// short message, a longer explanation and a documentation link. Errors
// raised while loading a scenario or document can point at the offending
// line and show the surrounding source. FormatJSON renders the same fields
// for machine consumers.
//
// # Error Categories
//
//   - keypath: malformed key paths given on the command line or in files
//   - config: invalid or unreadable reactobj.json
//   - scenario: scenario files that fail to load or whose expectations fail
//   - document: initial documents that cannot be read or decoded
//   - server: inspection server failures
//   - snapshot: snapshot stores that fail or lack a named snapshot
//
// # Usage
//
//	err := errors.New("R021").
//	    WithLocation("scenarios/basic.yaml", 14, 7).
//	    WithSuggestion("Check which paths the computation reads")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR R021: Scenario expectation failed
//	//
//	//   scenarios/basic.yaml:14:7
//	//
//	//     12 │   - set: {path: a.b, value: 2}
//	//     13 │   - flush: true
//	//   → 14 │   - expect:
//	//        │       ^
//	//     15 │       invalidated: [x]
//	//
//	//   Hint: Check which paths the computation reads
//	//
//	//   Learn more: https://reactobj.dev/docs/errors/R021
package errors
