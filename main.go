// The main package for the articles executable.
package main

import (
	"github.com/JakeFAU/articles-api/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
