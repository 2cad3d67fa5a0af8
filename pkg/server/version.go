package server

// Version is the server version string.
// Override at build time with: go build -ldflags "-X github.com/textspot/textspot/pkg/server.Version=2.1.0"
var Version = "2.0.0"

// VersionString returns the full version display string.
func VersionString() string {
	return "The Text Spot v" + Version
}
