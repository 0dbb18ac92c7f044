//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// glslc finds the shader compiler on PATH, then under $VULKAN_SDK/bin.
func glslc() (string, error) {
	if path, err := exec.LookPath("glslc"); err == nil {
		return path, nil
	}
	if sdk := os.Getenv("VULKAN_SDK"); sdk != "" {
		path := filepath.Join(sdk, "bin", "glslc")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("glslc not found on PATH or under $VULKAN_SDK/bin")
}

// runTool echoes the command line. Output is streamed when stream is set or
// mage runs verbose, otherwise it is printed only on failure.
func runTool(stream bool, command string, args ...string) error {
	fmt.Printf("Executing: %s %s\n", command, strings.Join(args, " "))
	if stream || mg.Verbose() {
		return sh.RunV(command, args...)
	}
	out, err := sh.Output(command, args...)
	if err != nil {
		fmt.Println("... failed command output:")
		fmt.Println(out)
		return fmt.Errorf("error executing %s: %w", command, err)
	}
	return nil
}
