package dockerfile

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Masterminds/semver/v3"
)

// ErrUnsupportedVersion is returned for runtime versions no layer exists for.
var ErrUnsupportedVersion = errors.New("unsupported runtime version")

type runtimeSpec struct {
	name       string
	constraint string
	supported  string
	// format renders the validated version the way the install layer expects it.
	format func(*semver.Version) string
	// lineOnly rejects versions more specific than format renders.
	lineOnly bool
}

var (
	phpRuntime = runtimeSpec{
		name:       "PHP",
		constraint: ">= 8.1, < 8.4",
		supported:  "8.1, 8.2, 8.3",
		format:     majorMinor,
		lineOnly:   true,
	}
	nodeRuntime = runtimeSpec{
		name:       "Node.js",
		constraint: "~18 || ~20 || ~22",
		supported:  "18, 20, 22",
		format:     major,
		lineOnly:   true,
	}
	goRuntime = runtimeSpec{
		name:       "Go",
		constraint: ">= 1.22, < 1.24",
		supported:  "1.22, 1.23",
		format:     full,
	}
)

// resolve validates version against the runtime's supported range and returns
// the form used in its install layer. PHP and Node.js accept only the release
// line ("8.3", "22"); Go also accepts a patch release and defaults it to .0.
func (r runtimeSpec) resolve(version string) (string, error) {
	v, err := semver.StrictNewVersion(pad(version))
	if err != nil {
		return "", r.unsupported(version)
	}

	c, err := semver.NewConstraint(r.constraint)
	if err != nil {
		return "", fmt.Errorf("invalid %s constraint %q: %w", r.name, r.constraint, err)
	}
	if !c.Check(v) {
		return "", r.unsupported(version)
	}

	formatted := r.format(v)
	if r.lineOnly && formatted != version {
		return "", r.unsupported(version)
	}
	return formatted, nil
}

func (r runtimeSpec) unsupported(version string) error {
	return fmt.Errorf("%w: %s %q, supported versions are %s", ErrUnsupportedVersion, r.name, version, r.supported)
}

// pad completes a major or major.minor version to major.minor.patch.
func pad(version string) string {
	dots := 0
	for _, c := range version {
		if c == '.' {
			dots++
		}
	}
	switch dots {
	case 0:
		return version + ".0.0"
	case 1:
		return version + ".0"
	default:
		return version
	}
}

func major(v *semver.Version) string {
	return strconv.FormatUint(v.Major(), 10)
}

func majorMinor(v *semver.Version) string {
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}

func full(v *semver.Version) string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}
