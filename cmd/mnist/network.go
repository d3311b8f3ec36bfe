package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ahmedtd/backprop/toolbox"
)

// networkFlags are shared by every command that runs a network.
type networkFlags struct {
	networkFile string
	geometry    string
	activation  string
}

func (n *networkFlags) register(f *flag.FlagSet) {
	f.StringVar(&n.networkFile, "network-file", "network.bin", "Path to the network file (.bin, or .safetensors holding weights only)")
	f.StringVar(&n.geometry, "geometry", "784,16,8,10", "Comma-separated layer sizes, input layer first")
	f.StringVar(&n.activation, "activation", "step", "Activation function: step, linear or sigmoid")
}

func (n *networkFlags) parse() (toolbox.Geometry, toolbox.Activation, error) {
	geometry, err := toolbox.ParseGeometry(n.geometry)
	if err != nil {
		return nil, toolbox.Activation{}, fmt.Errorf("while parsing --geometry: %w", err)
	}
	at, err := toolbox.ParseActivationType(n.activation)
	if err != nil {
		return nil, toolbox.Activation{}, fmt.Errorf("while parsing --activation: %w", err)
	}
	return geometry, at.Activation(), nil
}

// loadNetwork reads a network saved by train, or builds one of the given
// geometry around weights exported to safetensors.
func loadNetwork(path string, geometry toolbox.Geometry) (*toolbox.Network, error) {
	if filepath.Ext(path) != ".safetensors" {
		net, err := toolbox.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := toolbox.CheckGeometry(net, geometry); err != nil {
			return nil, err
		}
		return net, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening weights file: %w", err)
	}
	defer f.Close()

	tensors, err := toolbox.ReadSafeTensors(f)
	if err != nil {
		return nil, fmt.Errorf("while reading weight tensors: %w", err)
	}

	net := toolbox.MakeNetwork(geometry)
	if err := net.LoadTensors(tensors); err != nil {
		return nil, fmt.Errorf("while restoring network: %w", err)
	}
	return net, nil
}

func writeSafeTensors(path string, net *toolbox.Network) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating weights file: %w", err)
	}
	defer f.Close()

	tensors := map[string]*toolbox.AF32{}
	net.DumpTensors(tensors)

	if err := toolbox.WriteSafeTensors(f, tensors); err != nil {
		return fmt.Errorf("while writing weight tensors: %w", err)
	}
	return f.Close()
}
