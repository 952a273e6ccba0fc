// Command authctl is a CLI client for the AuthGate gRPC service.
package main

import (
	"fmt"
	"os"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (%s)", version, buildDate)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
