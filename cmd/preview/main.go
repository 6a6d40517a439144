package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tilerealm.dev/internal/sim/catalogs"
	"tilerealm.dev/internal/sim/tuning"
	"tilerealm.dev/internal/sim/world"
	"tilerealm.dev/internal/sim/world/atlas"
)

// preview prints an ASCII map of the realm around a tile without starting a
// server.
func main() {
	var (
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seed       = flag.Int64("seed", 1337, "terrain seed")
		at         = flag.String("at", "", "centre tile in tile-string form, e.g. 20#0 (default: realm spawn)")
		width      = flag.Int("w", 64, "width in tiles")
		height     = flag.Int("h", 32, "height in tiles")
		legend     = flag.Bool("legend", false, "print the legend after the map")
	)
	flag.Parse()

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	w, err := world.New(world.ConfigFromTuning("preview", *seed, tune), cats)
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}

	centre := cats.Realm.Spawn
	if s := strings.TrimSpace(*at); s != "" {
		centre, err = atlas.ParseTile(s)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -at:", err)
			os.Exit(2)
		}
	}
	if *width <= 0 || *height <= 0 {
		fmt.Fprintln(os.Stderr, "-w and -h must be > 0")
		os.Exit(2)
	}

	out, err := render(w, centre, *width, *height)
	if err != nil {
		fmt.Fprintln(os.Stderr, "render:", err)
		os.Exit(1)
	}
	fmt.Printf("seed=%d centre=%s size=%dx%d\n", *seed, centre, *width, *height)
	fmt.Print(out)
	if *legend {
		fmt.Print(legendText())
	}
}
