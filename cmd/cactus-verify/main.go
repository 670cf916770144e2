// cmd/cactus-verify/main.go
package main

import (
	"github.com/bioswarm/cactus/internal/appshell"
	"github.com/bioswarm/cactus/internal/verifyapp"
)

func main() { appshell.Main(verifyapp.RunContext) }
