// Package version holds the build version stamped into the binary.
package version

// Overridden at build time:
// go build -ldflags "-X tracekg/internal/version.Version=1.0.0 -X tracekg/internal/version.Commit=abc123"
var (
	// Version is the semantic version of tracekg
	Version = "1.2.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"
)

// Info returns the version, with the abbreviated commit when one was stamped.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}
