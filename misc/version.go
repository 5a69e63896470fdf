// Package misc keeps build time information.
package misc

// Set with -ldflags "-X remfallback/misc.version=... -X remfallback/misc.gitHash=..."
var (
	version = "dev"
	gitHash = "unknown"
)

const appName = "remfallback"

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns commit hash program was built from.
func GetGitHash() string {
	return gitHash
}

// GetAppName returns program name used for logs, reports and temporary files.
func GetAppName() string {
	return appName
}
