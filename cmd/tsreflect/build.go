package main

import (
	"context"
	"fmt"
	"io"

	"github.com/tsreflect/tsreflect/internal/pipeline"
)

type BuildCmd struct {
	NoCheck bool `name:"no-check" help:"Skip type checking and report syntax errors only."`
	Force   bool `help:"Rebuild even when nothing changed since the last build."`
	Clean   bool `help:"Remove the output directory before building."`
	Strict  bool `help:"Treat warnings as errors."`
	Quiet   bool `short:"q" help:"Only print errors."`
}

func (c *BuildCmd) Run(ctx context.Context, g *Globals) error {
	s, err := g.open()
	if err != nil {
		return err
	}
	collector, err := s.collector(g.Stderr, c.Strict, c.Quiet)
	if err != nil {
		return err
	}

	req := s.request(g, collector)
	req.NoCheck = c.NoCheck
	req.Force = c.Force
	req.Clean = c.Clean
	if c.Quiet {
		req.Progress = io.Discard
	}

	report, err := pipeline.Run(ctx, req)
	collector.WriteTo(g.Stderr)
	if err != nil {
		return err
	}
	if report.Skipped {
		return nil
	}

	reportTypeErrors(g.Stderr, s.cwd, report)
	if !c.Quiet {
		report.Timing.Print(g.Stderr)
	}
	if n := report.TypeErrors(); n > 0 {
		return fmt.Errorf("found %d type error(s)", n)
	}
	return nil
}
