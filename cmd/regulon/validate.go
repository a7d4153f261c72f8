package main

import (
	"fmt"
	"os"

	"github.com/regulon-ai/regulon/pkg/config"
)

// ValidateCmd loads and validates a configuration file without starting
// the server, for use in CI or before a deploy.
type ValidateCmd struct {
	ConfigPath string `arg:"" name:"config" help:"Configuration file path." placeholder:"PATH"`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration invalid: %v\n", err)
		return err
	}
	fmt.Printf("%s is valid\n", c.ConfigPath)
	fmt.Printf("  llm:      %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Printf("  vector:   %s (collection=%s, top_k=%d)\n", cfg.Vector.Provider, cfg.Vector.Collection, cfg.Vector.TopKDefault)
	fmt.Printf("  agentic:  max_iterations=%d, request_deadline=%s\n", cfg.Agentic.MaxIterations, cfg.Agentic.RequestDeadline)
	fmt.Printf("  server:   %s\n", cfg.Server.Addr)
	return nil
}
