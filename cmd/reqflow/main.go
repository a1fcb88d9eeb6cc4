// Command reqflow sends HTTP requests through a configurable handler chain.
package main

import "github.com/adamwoolhether/reqflow/cmd/reqflow/cmd"

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cmd.Execute(version, buildTime)
}
