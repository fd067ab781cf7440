// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded into the tempo binary at link time:
//
//	go build -ldflags "-X tempo/pkg/build.buildName=tempo -X tempo/pkg/build.buildVersion=0.2.0 ..."
//
// Development builds report "unknown" for every field except the name and
// description.
package build

import (
	"fmt"

	"github.com/pkg/errors"
)

// DefaultName and DefaultDescription are used when the binary is built
// without ldflags.
const (
	DefaultName        = "tempo"
	DefaultDescription = "Tempo estimation and live beat detection"
)

// Info is the build metadata of the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String formats the version line printed by --version.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}

// Package-level variables for build information, populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &Info{
		Name:        DefaultName,
		Description: DefaultDescription,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "unknown",
	}
)

// Initialize validates and copies the ldflags variables into the Info
// returned by GetBuildFlags. It returns an error naming the first missing
// flag and leaves the defaults in place in that case.
func Initialize() error {
	if buildName == "" {
		return errors.New("BuildName is required")
	}
	if buildTime == "" {
		return errors.New("BuildTime is required")
	}
	if buildCommit == "" {
		return errors.New("BuildCommit is required")
	}
	if buildVersion == "" {
		return errors.New("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildFlags
}
