// ABOUTME: Tests for version constants
// ABOUTME: Ensures the advertised version is a plain semantic version
package version

import (
	"regexp"
	"testing"
)

func TestVersionIsSemantic(t *testing.T) {
	if !regexp.MustCompile(`^\d+\.\d+\.\d+$`).MatchString(Version) {
		t.Errorf("Version %q is not MAJOR.MINOR.PATCH", Version)
	}
}

func TestVersionFitsTXTRecord(t *testing.T) {
	// "version=" plus the value must fit one DNS-SD TXT string
	if n := len("version=") + len(Version); n > 255 {
		t.Errorf("version record is %d bytes, limit is 255", n)
	}
}

func TestProduct(t *testing.T) {
	if Product != "shairport" {
		t.Errorf("expected product shairport, got %q", Product)
	}
}
