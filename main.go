package main

import (
	"github.com/marcus/macropad/cmd"
	"github.com/marcus/macropad/internal/version"
)

// Version may be set at build time via -ldflags "-X main.Version=...".
// If left as "dev", we will attempt to derive a version from Go build info.
var Version = "dev"

func main() {
	cmd.SetVersion(version.Effective(Version))
	cmd.Execute()
}
