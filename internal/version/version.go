// ABOUTME: Version information for the bridge
// ABOUTME: Reported by --version, the startup log and mDNS TXT records
package version

const (
	// Version is the release version
	Version = "0.3.0"

	// Product is the program name
	Product = "shairport"
)
