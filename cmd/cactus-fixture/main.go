// cmd/cactus-fixture/main.go
package main

import (
	"github.com/bioswarm/cactus/internal/appshell"
	"github.com/bioswarm/cactus/internal/fixtureapp"
)

func main() { appshell.Main(fixtureapp.RunContext) }
