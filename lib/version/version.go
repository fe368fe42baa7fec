// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty is "true" when the tree had uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version, set manually for releases.
	Version = "0.1.0-dev"
)

// Build describes the running binary.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Dirty     bool   `json:"dirty"`
	BuildTime string `json:"build_time"`
	Go        string `json:"go"`
	Platform  string `json:"platform"`
}

var (
	buildOnce sync.Once
	build     Build
)

// Current returns the build description. Values not injected with
// -ldflags fall back to the VCS stamp the go command embeds, when
// present.
func Current() Build {
	buildOnce.Do(func() {
		build = Build{
			Version:   Version,
			Commit:    GitCommit,
			Dirty:     GitDirty == "true",
			BuildTime: BuildTime,
			Go:        runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		}
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if build.Commit == "unknown" && len(setting.Value) >= 7 {
					build.Commit = setting.Value[:7]
				}
			case "vcs.time":
				if build.BuildTime == "unknown" {
					build.BuildTime = setting.Value
				}
			case "vcs.modified":
				if GitDirty != "true" && setting.Value == "true" {
					build.Dirty = true
				}
			}
		}
	})
	return build
}

// Info returns the one-line form printed by --version:
// "0.1.0-dev (abc1234, 2026-02-10T12:00:00Z)".
func Info() string {
	current := Current()
	dirty := ""
	if current.Dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", current.Version, current.Commit, dirty, current.BuildTime)
}

// Full returns Info plus the Go version and platform.
func Full() string {
	current := Current()
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s", Info(), current.Go, current.Platform)
}
