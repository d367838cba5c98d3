package main

import (
	"os"

	"github.com/Fid-Deen/fiddeen-kiosk/cmd"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if err := cmd.Execute(version, buildTime, gitCommit); err != nil {
		os.Exit(1)
	}
}
