package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"os"

	"github.com/ahmedtd/backprop/toolbox"
	"github.com/google/subcommands"

	_ "image/jpeg"
	_ "image/png"
)

type InferCommand struct {
	network   networkFlags
	imageFile string
}

var _ subcommands.Command = (*InferCommand)(nil)

func (*InferCommand) Name() string {
	return "infer"
}

func (*InferCommand) Synopsis() string {
	return "Predict the digit in an image"
}

func (*InferCommand) Usage() string {
	return ``
}

func (c *InferCommand) SetFlags(f *flag.FlagSet) {
	c.network.register(f)
	f.StringVar(&c.imageFile, "image", "", "Path to the image to predict")
}

func (c *InferCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *InferCommand) executeErr(ctx context.Context) error {
	geometry, activation, err := c.network.parse()
	if err != nil {
		return err
	}

	net, err := loadNetwork(c.network.networkFile, geometry)
	if err != nil {
		return fmt.Errorf("while loading network: %w", err)
	}

	x, err := loadImage(c.imageFile, geometry[0])
	if err != nil {
		return fmt.Errorf("while loading image: %w", err)
	}

	pred := toolbox.Predict(net, &toolbox.ForwardPropagation{Activate: activation.Fn}, x)
	log.Printf("Prediction: %d scores=%v", toolbox.ArgMax(pred), pred)
	return nil
}

// loadImage converts an image to a grayscale signal scaled to [0, 1], row by
// row.
func loadImage(path string, size int) (toolbox.Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening image file: %w", err)
	}
	defer f.Close()

	rawImg, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("while decoding image: %w", err)
	}

	bounds := rawImg.Bounds()
	if bounds.Dx()*bounds.Dy() != size {
		return nil, fmt.Errorf("image is %dx%d, input layer has %d nodes", bounds.Dx(), bounds.Dy(), size)
	}

	out := make(toolbox.Signal, 0, size)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := color.GrayModel.Convert(rawImg.At(x, y)).(color.Gray).Y
			out = append(out, float32(v)/255)
		}
	}
	return out, nil
}
