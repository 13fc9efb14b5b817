package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://vango.dev/docs/viewmodel/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (E001-E099)
	// ============================================

	"E006": {
		Category: CategoryRuntime,
		Message:  "Circular dependency detected",
		Detail:   "A change notification re-entered the dependency graph too deeply. Resolvers and computed values must not depend on themselves.",
		DocURL:   docBase + "E006",
	},
	"E007": {
		Category: CategoryRuntime,
		Message:  "Invalid keypath",
		Detail:   "The keypath could not be written because an intermediate value is not a map or list.",
		DocURL:   docBase + "E007",
	},
	"E008": {
		Category: CategoryRuntime,
		Message:  "Computed property is read-only",
		Detail:   "Computed properties derive their value from other keypaths and cannot be set directly.",
		DocURL:   docBase + "E008",
	},

	// ============================================
	// Construction Errors (E100-E119)
	// ============================================

	"E101": {
		Category: CategoryConstruct,
		Message:  "Missing plugin",
		Detail:   "A plugin referenced by name was not found on the instance, its class chain, or any ancestor instance.",
		DocURL:   docBase + "E101",
	},
	"E102": {
		Category: CategoryConstruct,
		Message:  "Component data must be a function",
		Detail:   "Classes used as components share their definition across instances, so their data must be produced per instance.",
		DocURL:   docBase + "E102",
	},
	"E103": {
		Category: CategoryConstruct,
		Message:  "Invalid computed property",
		Detail:   "A computed property needs a name and a getter.",
		DocURL:   docBase + "E103",
	},
	"E104": {
		Category: CategoryRuntime,
		Message:  "Instance not found",
		Detail:   "No live instance has the given guid. It may have been torn down.",
		DocURL:   docBase + "E104",
	},

	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No viewmodel.json or viewmodel.yaml was found in the directory or its parents.",
		DocURL:   docBase + "E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "The configuration file could not be parsed.",
		DocURL:   docBase + "E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A configuration value is out of range.",
		DocURL:   docBase + "E122",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Invalid scene",
		Detail:   "The scene file could not be parsed or references unknown classes.",
		DocURL:   docBase + "E140",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Data source failed",
		Detail:   "Initial data could not be loaded from the configured source.",
		DocURL:   docBase + "E141",
	},
	"E142": {
		Category: CategoryCLI,
		Message:  "Invalid request",
		Detail:   "The devtools request body could not be decoded.",
		DocURL:   docBase + "E142",
	},
	"E143": {
		Category: CategoryCLI,
		Message:  "File already exists",
		Detail:   "init will not overwrite an existing file.",
		DocURL:   docBase + "E143",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
