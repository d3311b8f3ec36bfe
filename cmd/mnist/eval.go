package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ahmedtd/backprop/dataset"
	"github.com/ahmedtd/backprop/toolbox"
	"github.com/google/subcommands"
)

type EvalCommand struct {
	dataFile string
	network  networkFlags
	limit    int
}

var _ subcommands.Command = (*EvalCommand)(nil)

func (*EvalCommand) Name() string {
	return "eval"
}

func (*EvalCommand) Synopsis() string {
	return "Measure accuracy on the test split"
}

func (*EvalCommand) Usage() string {
	return ``
}

func (c *EvalCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dataFile, "data-file", "mnist.npz", "Path to the mnist.npz input file")
	c.network.register(f)
	f.IntVar(&c.limit, "limit", 100, "Number of test examples to use; negative for all")
}

func (c *EvalCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *EvalCommand) executeErr(ctx context.Context) error {
	geometry, activation, err := c.network.parse()
	if err != nil {
		return err
	}

	net, err := loadNetwork(c.network.networkFile, geometry)
	if err != nil {
		return fmt.Errorf("while loading network: %w", err)
	}

	data, err := dataset.LoadMNIST(c.dataFile)
	if err != nil {
		return fmt.Errorf("while loading MNIST data set: %w", err)
	}

	examples := dataset.Window(data.Test, 0, c.limit)
	eval := toolbox.Evaluate(net, &toolbox.ForwardPropagation{Activate: activation.Fn}, examples)
	log.Printf("testing-loss=%f testing-pct=%.1f correct=%d total=%d", eval.Loss, eval.Percent(), eval.Correct, eval.Total)
	return nil
}
