// Command mnist trains and runs a small fully connected network on the MNIST
// dataset, one example at a time.
//
// To train: `go run ./cmd/mnist train --data-file=cmd/mnist/data/mnist.npz`
//
// To evaluate: `go run ./cmd/mnist eval --data-file=cmd/mnist/data/mnist.npz`
//
// To infer: `go run ./cmd/mnist infer --network-file=network.bin --image=cmd/mnist/data/five.png`
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&TrainCommand{}, "")
	subcommands.Register(&EvalCommand{}, "")
	subcommands.Register(&InferCommand{}, "")
	subcommands.Register(&ExportCommand{}, "")

	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	status := subcommands.Execute(ctx)
	stop()
	os.Exit(int(status))
}
