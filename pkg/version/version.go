package version

import (
	"fmt"
	"runtime"
)

// Name is the tool name shown in version output.
const Name = "scripttrace"

// These variables are populated by the build process
var (
	// Version is the version of the build
	Version = "dev"
	// BuildTime is the time when the build was created
	BuildTime = "unknown"
)

// Info is the build metadata.
type Info struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	Platform  string `json:"platform"`
}

// Get returns the build metadata.
func Get() Info {
	return Info{
		Tool:      Name,
		Version:   Version,
		BuildTime: BuildTime,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetVersionInfo returns a formatted string with version information
func GetVersionInfo() string {
	i := Get()
	return fmt.Sprintf("%s v%s (built: %s, %s)", i.Tool, i.Version, i.BuildTime, i.Platform)
}
