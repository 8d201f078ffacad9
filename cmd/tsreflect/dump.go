package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/tsreflect/tsreflect/internal/config"
	"github.com/tsreflect/tsreflect/internal/pipeline"
	"github.com/tsreflect/tsreflect/internal/reflector"
)

type DumpCmd struct {
	Files  []string `arg:"" optional:"" help:"Only dump markers in these source files."`
	Output string   `short:"o" help:"Write the JSON to this file instead of stdout." placeholder:"PATH"`
}

// markerDump is one entry of the dump output.
type markerDump struct {
	File        string                 `json:"file"`
	Line        int                    `json:"line"`
	Type        string                 `json:"type"`
	Cached      bool                   `json:"cached,omitzero"`
	Description *reflector.Description `json:"description"`
}

// Run rewrites the project without writing anything and prints every
// marker's description.
func (c *DumpCmd) Run(ctx context.Context, g *Globals) error {
	s, err := g.open()
	if err != nil {
		return err
	}
	collector, err := s.collector(g.Stderr, false, false)
	if err != nil {
		return err
	}

	dry := *s.cfg
	dry.Output = config.OutputConfig{Mode: config.ModeNone}
	req := s.request(g, collector)
	req.Config = &dry
	req.NoCheck = true

	report, err := pipeline.Run(ctx, req)
	collector.WriteTo(g.Stderr)
	if err != nil {
		return err
	}

	wanted := make(map[string]bool, len(c.Files))
	for _, f := range c.Files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(s.cwd, f)
		}
		wanted[filepath.Clean(f)] = true
	}

	dump := []markerDump{}
	for _, f := range report.Files {
		if len(wanted) > 0 && !wanted[filepath.Clean(f.FileName)] {
			continue
		}
		rel, err := filepath.Rel(s.cwd, f.FileName)
		if err != nil {
			rel = f.FileName
		}
		for _, m := range f.Markers {
			dump = append(dump, markerDump{
				File:        filepath.ToSlash(rel),
				Line:        m.Line,
				Type:        m.TypeText,
				Cached:      m.Cached,
				Description: m.Description,
			})
		}
	}
	slices.SortStableFunc(dump, func(a, b markerDump) int {
		return cmp.Or(strings.Compare(a.File, b.File), cmp.Compare(a.Line, b.Line))
	})

	data, err := json.Marshal(dump, jsontext.WithIndent("  "))
	if err != nil {
		return fmt.Errorf("encoding dump: %w", err)
	}
	data = append(data, '\n')

	if c.Output != "" {
		if err := os.WriteFile(c.Output, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", c.Output, err)
		}
		fmt.Fprintf(g.Stderr, "wrote %d marker description(s) to %s\n", len(dump), c.Output)
		return nil
	}
	_, err = g.Stdout.Write(data)
	return err
}
