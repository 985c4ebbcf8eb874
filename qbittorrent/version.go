package qbittorrent

import (
	"fmt"
	"strings"

	"github.com/blang/semver"

	"github.com/s0up4200/qbitsync/maindata"
)

// categoryDescriptorsSince is the first Web API version whose sync payloads
// send categories as a map of descriptors instead of a list of names.
var categoryDescriptorsSince = semver.MustParse("2.1.0")

// ParseAPIVersion parses a Web API version string such as "2.8.3" or "v2.1".
func ParseAPIVersion(raw string) (semver.Version, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return semver.Version{}, fmt.Errorf("%w: empty web API version", ErrBadResponse)
	}

	version, err := semver.ParseTolerant(raw)
	if err != nil {
		return semver.Version{}, fmt.Errorf("%w: web API version %q: %w", ErrBadResponse, raw, err)
	}
	return version, nil
}

// CategoriesVariantFor returns the categories encoding used by a server
// speaking the given Web API version.
func CategoriesVariantFor(version semver.Version) maindata.SchemaVariant {
	if version.LT(categoryDescriptorsSince) {
		return maindata.VariantLegacyNameList
	}
	return maindata.VariantDescriptorMap
}
