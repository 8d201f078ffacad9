package main

import (
	"fmt"

	"github.com/tsreflect/tsreflect/internal/plugin"
)

type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	fmt.Fprintln(g.Stdout, plugin.Name, plugin.Version())
	return nil
}
