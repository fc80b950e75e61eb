// The main package for the graphcrawler executable.
package main

import (
	"github.com/mapmaker/graphcrawler/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
