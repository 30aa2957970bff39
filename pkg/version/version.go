package version

import "fmt"

// Set at build time via -ldflags "-X github.com/jonny/serviceops-ai/pkg/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime)
}

// UserAgent identifies outbound requests made by the agent.
func UserAgent() string {
	return "serviceops-ai/" + Version
}
