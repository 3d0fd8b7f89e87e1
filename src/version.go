package direwolf

import (
	"fmt"
	"runtime/debug"
)

// Set at build time via `-ldflags "-X 'direwolf.DWDL_VERSION=X'"`
var DWDL_VERSION string

func buildSetting(bi *debug.BuildInfo, key string) string {
	if bi != nil {
		for _, bs := range bi.Settings {
			if bs.Key == key {
				return bs.Value
			}
		}
	}

	return "UNKNOWN"
}

func printVersion(verbose bool) {
	var buildInfo, _ = debug.ReadBuildInfo()

	var buildCommit = buildSetting(buildInfo, "vcs.revision")
	if buildSetting(buildInfo, "vcs.modified") == "true" {
		buildCommit += "-DIRTY"
	}

	var version = DWDL_VERSION
	if version == "" {
		version = "!UNKNOWN!"
	}

	fmt.Printf("Dire Wolf Data Link - Version %s (revision %s, built at %s)\n", version, buildCommit, buildSetting(buildInfo, "vcs.time"))

	if verbose {
		fmt.Printf("\nBuildInfo: %+v\n", buildInfo)
	}
}
