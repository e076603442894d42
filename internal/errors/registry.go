package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Key path errors (R001-R009)
	// ============================================

	"R001": {
		Category: CategoryKeyPath,
		Message:  "Invalid key path",
		Detail:   "Key paths are dot-separated segments. Digit-only segments address sequence indices; escape a literal dot as \\. and a backslash as \\\\.",
		DocURL:   "https://reactobj.dev/docs/errors/R001",
	},
	"R002": {
		Category: CategoryKeyPath,
		Message:  "Missing value",
		Detail:   "A write needs exactly one value.",
		DocURL:   "https://reactobj.dev/docs/errors/R002",
	},

	// ============================================
	// Configuration errors (R010-R019)
	// ============================================

	"R010": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "reactobj.json could not be read or failed validation.",
		DocURL:   "https://reactobj.dev/docs/errors/R010",
	},

	// ============================================
	// Scenario errors (R020-R029)
	// ============================================

	"R020": {
		Category: CategoryScenario,
		Message:  "Cannot load scenario",
		Detail:   "The scenario file could not be read or does not match the scenario format.",
		DocURL:   "https://reactobj.dev/docs/errors/R020",
	},
	"R021": {
		Category: CategoryScenario,
		Message:  "Scenario expectation failed",
		Detail:   "An expect step did not match the state of the store after the preceding steps.",
		DocURL:   "https://reactobj.dev/docs/errors/R021",
	},

	// ============================================
	// Document errors (R030-R039)
	// ============================================

	"R030": {
		Category: CategoryDocument,
		Message:  "Cannot load document",
		Detail:   "The initial document must be a JSON or YAML file whose top level is an object or an array.",
		DocURL:   "https://reactobj.dev/docs/errors/R030",
	},

	// ============================================
	// Server errors (R040-R049)
	// ============================================

	"R040": {
		Category: CategoryServer,
		Message:  "Inspection server failed",
		Detail:   "The inspection server could not start or stopped unexpectedly.",
		DocURL:   "https://reactobj.dev/docs/errors/R040",
	},

	// ============================================
	// Snapshot errors (R050-R059)
	// ============================================

	"R050": {
		Category: CategorySnapshot,
		Message:  "Snapshot failed",
		Detail:   "A snapshot could not be saved to or loaded from the snapshot store.",
		DocURL:   "https://reactobj.dev/docs/errors/R050",
	},
	"R051": {
		Category: CategorySnapshot,
		Message:  "Snapshot not found",
		Detail:   "No snapshot with this name exists in the snapshot store.",
		DocURL:   "https://reactobj.dev/docs/errors/R051",
	},
}
