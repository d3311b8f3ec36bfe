package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/ahmedtd/backprop/dataset"
	"github.com/ahmedtd/backprop/toolbox"
	"github.com/google/subcommands"
)

type TrainCommand struct {
	dataFile string
	network  networkFlags

	learningRate float64
	seed         uint64
	start        int
	limit        int
	saveEvery    int
	logEvery     int

	cpuProfileFile string
}

var _ subcommands.Command = (*TrainCommand)(nil)

func (*TrainCommand) Name() string {
	return "train"
}

func (*TrainCommand) Synopsis() string {
	return "Train the network on the training split"
}

func (*TrainCommand) Usage() string {
	return `train [flags]:
  Trains the network one example at a time, resuming from --network-file if
  it holds a network of the right geometry.
`
}

func (c *TrainCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dataFile, "data-file", "mnist.npz", "Path to the mnist.npz input file")
	c.network.register(f)

	f.Float64Var(&c.learningRate, "learning-rate", 0.001, "Gradient descent step size")
	f.Uint64Var(&c.seed, "seed", 12345, "Seed for the initial weights of a fresh network")
	f.IntVar(&c.start, "start", 0, "Index of the first training example, to resume an interrupted run")
	f.IntVar(&c.limit, "limit", 2000, "Number of training examples to use; negative for all")
	f.IntVar(&c.saveEvery, "save-every", 0, "Save the network after this many examples; 0 saves only at the end")
	f.IntVar(&c.logEvery, "log-every", 100, "Log progress after this many examples")

	f.StringVar(&c.cpuProfileFile, "cpu-profile", "", "Write a CPU profile")
}

func (c *TrainCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *TrainCommand) executeErr(ctx context.Context) error {
	if c.cpuProfileFile != "" {
		f, err := os.Create(c.cpuProfileFile)
		if err != nil {
			return fmt.Errorf("while creating CPU profile file: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("while starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	geometry, activation, err := c.network.parse()
	if err != nil {
		return err
	}

	data, err := dataset.LoadMNIST(c.dataFile)
	if err != nil {
		return fmt.Errorf("while loading MNIST data set: %w", err)
	}
	if data.Train.ImageSize() != geometry[0] {
		return fmt.Errorf("images have %d pixels, input layer has %d nodes", data.Train.ImageSize(), geometry[0])
	}
	if geometry[len(geometry)-1] != dataset.Classes {
		return fmt.Errorf("output layer has %d nodes, want %d", geometry[len(geometry)-1], dataset.Classes)
	}

	net, loaded, err := toolbox.LoadOrMake(c.network.networkFile, geometry)
	if err != nil {
		return fmt.Errorf("while loading network: %w", err)
	}
	if !loaded {
		toolbox.InitializeRandom(net, c.seed)
	}
	log.Printf("Network geometry=%v loaded=%v activation=%s", net.Geometry(), loaded, activation.Name)

	examples := dataset.Window(data.Train, c.start, c.limit)
	trainer := toolbox.NewTrainer(net, activation, toolbox.MeanSquaredErrorDerivative, float32(c.learningRate))

	done, err := c.trainAndSave(ctx, trainer, net, examples)
	if errors.Is(err, context.Canceled) {
		log.Printf("Interrupted after %d examples; network saved to %s, resume with --start=%d", done, c.network.networkFile, c.start+done)
		return nil
	}
	if err != nil {
		return err
	}

	eval := toolbox.Evaluate(net, trainer.Forward, examples)
	log.Printf("training-loss=%f training-pct=%.1f", eval.Loss, eval.Percent())
	return nil
}

// trainAndSave trains net on examples, saving it after every --save-every
// examples, at the end, and when ctx is cancelled.  done is the number of
// examples trained on, which are all reflected in the saved network.
func (c *TrainCommand) trainAndSave(ctx context.Context, trainer *toolbox.Trainer, net *toolbox.Network, examples toolbox.Dataset) (done int, err error) {
	chunk := examples.Len()
	if c.saveEvery > 0 {
		chunk = c.saveEvery
	}

	began := time.Now()
	for offset := 0; offset < examples.Len(); offset += chunk {
		window := dataset.Window(examples, offset, chunk)
		err := trainer.Train(ctx, net, window, func(i, n int) {
			done = offset + i + 1
			if c.logEvery > 0 && done%c.logEvery == 0 {
				log.Printf("trained=%d/%d next-start=%d elapsed=%v", done, examples.Len(), c.start+done, time.Since(began).Round(time.Millisecond))
			}
		})
		if saveErr := toolbox.SaveFile(c.network.networkFile, net); saveErr != nil {
			return done, fmt.Errorf("while saving network: %w", saveErr)
		}
		if err != nil {
			return done, fmt.Errorf("while training: %w", err)
		}
		log.Printf("Saved network to %s after %d examples", c.network.networkFile, done)
	}
	return done, nil
}
