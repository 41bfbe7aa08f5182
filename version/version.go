// Package version reports the build of the binary. Release builds override
// both values with
// -ldflags "-X github.com/AvaProtocol/aa-keyring/version.semver=... -X github.com/AvaProtocol/aa-keyring/version.revision=..."
package version

const shortRevisionLen = 8

var (
	semver   = "0.1.0"
	revision = "unknown"
)

func Get() string {
	return semver
}

func Commit() string {
	return revision
}

// String is the semver with the short revision as build metadata.
func String() string {
	if revision == "" || revision == "unknown" {
		return semver
	}
	r := revision
	if len(r) > shortRevisionLen {
		r = r[:shortRevisionLen]
	}
	return semver + "+" + r
}
