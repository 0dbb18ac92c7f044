//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/magefile/mage/target"
)

type Build mg.Namespace

var shaderSources = []string{
	"assets/shaders/particle.vert",
	"assets/shaders/particle.frag",
	"assets/shaders/particle_shadowing.comp",
}

// Compiles every GLSL shader to SPIR-V next to its source with glslc.
func (Build) Shaders() error {
	compiler, err := glslc()
	if err != nil {
		return err
	}
	for _, src := range shaderSources {
		dst := src + ".spv"
		stale, err := target.Path(dst, src)
		if err != nil {
			return err
		}
		if !stale {
			continue
		}
		if err := runTool(true, compiler, src, "-o", dst); err != nil {
			return fmt.Errorf("compile %s: %w", filepath.Base(src), err)
		}
	}
	return nil
}

// Removes the compiled SPIR-V binaries.
func (Build) Clean() error {
	for _, src := range shaderSources {
		if err := sh.Rm(src + ".spv"); err != nil {
			return err
		}
	}
	return nil
}
