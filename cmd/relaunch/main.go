package main

import (
	"github.com/devharness/relaunch/internal/cli"
	"github.com/devharness/relaunch/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
