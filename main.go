/*
Particle Shadowing renders a particle explosion whose particles shadow
each other, computed on the GPU every frame.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/particle-shadowing/engine"
	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration")
	flag.Parse()

	config, err := engine.LoadApplicationConfig(*configPath)
	if err != nil {
		core.LogFatal("Invalid configuration: %v", err)
	}

	e := engine.New(config)
	if err := e.Initialize(); err != nil {
		if shutdownErr := e.Shutdown(); shutdownErr != nil {
			core.LogError("Shutdown after failed initialization: %v", shutdownErr)
		}
		core.LogFatal("Initialization failed: %v", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		e.Stop()
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("Shutdown: %v", err)
	}
	if runErr != nil {
		core.LogFatal("Frame loop failed: %v", runErr)
	}
}
