package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ahmedtd/backprop/toolbox"
	"github.com/stretchr/testify/require"
)

func TestLoadNetworkFormats(t *testing.T) {
	dir := t.TempDir()
	geometry := toolbox.Geometry{4, 3, 2}

	net := toolbox.MakeNetwork(geometry)
	toolbox.InitializeRandom(net, 5)

	binPath := filepath.Join(dir, "network.bin")
	require.NoError(t, toolbox.SaveFile(binPath, net))
	fromBin, err := loadNetwork(binPath, geometry)
	require.NoError(t, err)
	require.True(t, fromBin.Equal(net))

	stPath := filepath.Join(dir, "network.safetensors")
	require.NoError(t, writeSafeTensors(stPath, net))
	fromST, err := loadNetwork(stPath, geometry)
	require.NoError(t, err)
	for ilayer := 1; ilayer < net.LayerCount(); ilayer++ {
		require.Equal(t, net.Layers[ilayer].W, fromST.Layers[ilayer].W)
		require.Equal(t, net.Layers[ilayer].B, fromST.Layers[ilayer].B)
	}

	_, err = loadNetwork(binPath, toolbox.Geometry{4, 2})
	require.ErrorIs(t, err, toolbox.ErrGeometryMismatch)

	_, err = loadNetwork(stPath, toolbox.Geometry{4, 2})
	require.Error(t, err)
}

func TestNetworkFlags(t *testing.T) {
	n := networkFlags{geometry: "784,16,8,10", activation: "sigmoid"}
	geometry, activation, err := n.parse()
	require.NoError(t, err)
	require.Equal(t, toolbox.Geometry{784, 16, 8, 10}, geometry)
	require.Equal(t, "sigmoid", activation.Name)

	n.activation = "softmax"
	_, _, err = n.parse()
	require.Error(t, err)

	n = networkFlags{geometry: "784,,10", activation: "step"}
	_, _, err = n.parse()
	require.Error(t, err)
}

func TestLoadImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(0, 0, color.Gray{Y: 0})
	img.SetGray(1, 0, color.Gray{Y: 255})
	img.SetGray(0, 1, color.Gray{Y: 51})
	img.SetGray(1, 1, color.Gray{Y: 102})

	path := filepath.Join(t.TempDir(), "digit.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	got, err := loadImage(path, 4)
	require.NoError(t, err)
	require.Equal(t, toolbox.Signal{0, 1, 0.2, 0.4}, got)

	_, err = loadImage(path, 784)
	require.Error(t, err)
}
