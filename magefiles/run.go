//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the application.
func (Run) App() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run particle shadowing...")
	return runTool(true, mg.GoCmd(), "run", ".")
}
