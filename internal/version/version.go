package version

import (
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"
)

const (
	Name      = "find-undef-syms"
	Copyright = "Copyright (C) 2023 Termux"
)

// version is set at build time with
// -ldflags "-X github.com/termux/find-undef-syms/internal/version.version=v1.2.3".
var version = "0.0.0-dev"

// Get returns the build version in canonical form. Versions that are not
// valid semver are returned unchanged.
func Get() string {
	v, err := semver.NewVersion(version)
	if err != nil {
		return version
	}
	return v.String()
}

// Print writes the --version text.
func Print(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", Name, Get())
	fmt.Fprintf(w, "%s\n"+
		"%s comes with ABSOLUTELY NO WARRANTY.\n"+
		"You may redistribute copies of %s\n"+
		"under the terms of the GNU General Public License.\n"+
		"For more information about these matters, see the file named COPYING.\n",
		Copyright, Name, Name)
}
