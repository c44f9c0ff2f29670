// Package exitcode provides standardized exit codes for pagegraph
package exitcode

// Exit codes for the pagegraph CLI
const (
	Success         = 0
	GeneralError    = 1
	ConfigError     = 2
	UsageError      = 3
	ValidationError = 4
	FileSystemError = 5
	ConflictError   = 6
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case UsageError:
		return "Usage error"
	case ValidationError:
		return "Validation error"
	case FileSystemError:
		return "File system error"
	case ConflictError:
		return "Conflict"
	default:
		return "Unknown error"
	}
}
