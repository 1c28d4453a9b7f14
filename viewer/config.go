package main

import (
	"os"

	"github.com/BurntSushi/toml"
)

// ViewerConfig is the TOML surface of the demo host.
type ViewerConfig struct {
	Particles  int     `toml:"particles"`
	Solver     string  `toml:"solver"` // monopole | spectral | treepm
	Theta      float32 `toml:"theta"`
	GridSize   int     `toml:"grid_size"`
	Assignment string  `toml:"assignment"` // cic | ngp
	SplitSigma float32 `toml:"split_sigma"`
	Radius     float32 `toml:"disc_radius"`
	CenterMass float32 `toml:"center_mass"`
	Profiling  bool    `toml:"profiling"`
	Width      int     `toml:"window_width"`
	Height     int     `toml:"window_height"`
}

func defaultViewerConfig() ViewerConfig {
	return ViewerConfig{
		Particles:  50000,
		Solver:     "monopole",
		Radius:     1.5,
		CenterMass: 200,
		Width:      1280,
		Height:     720,
	}
}

func loadViewerConfig(path string) (ViewerConfig, error) {
	cfg := defaultViewerConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	_, err := toml.DecodeFile(path, &cfg)
	return cfg, err
}
