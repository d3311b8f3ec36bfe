package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ahmedtd/backprop/toolbox"
	"github.com/google/subcommands"
)

type ExportCommand struct {
	networkFile string
	outputFile  string
}

var _ subcommands.Command = (*ExportCommand)(nil)

func (*ExportCommand) Name() string {
	return "export"
}

func (*ExportCommand) Synopsis() string {
	return "Export network weights in safetensors format"
}

func (*ExportCommand) Usage() string {
	return ``
}

func (c *ExportCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.networkFile, "network-file", "network.bin", "Path to the network file written by train")
	f.StringVar(&c.outputFile, "output", "mnist.safetensors", "Path to write the weights to")
}

func (c *ExportCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *ExportCommand) executeErr(ctx context.Context) error {
	net, err := toolbox.LoadFile(c.networkFile)
	if err != nil {
		return fmt.Errorf("while loading network: %w", err)
	}
	if err := writeSafeTensors(c.outputFile, net); err != nil {
		return err
	}
	log.Printf("Exported geometry=%v to %s", net.Geometry(), c.outputFile)
	return nil
}
