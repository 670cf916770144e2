// cmd/cactus-testrun/main.go
package main

import (
	"github.com/bioswarm/cactus/internal/appshell"
	"github.com/bioswarm/cactus/internal/runapp"
)

func main() { appshell.Main(runapp.RunContext) }
