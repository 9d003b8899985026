package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/Hurleyworks/Cook/engine"
	"github.com/Hurleyworks/Cook/engine/gpu"
	"github.com/Hurleyworks/Cook/engine/mesh"
	"github.com/Hurleyworks/Cook/engine/renderable"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Bench drives scripted scene churn on the headless device backend and
// reports build and resource statistics. The scene grows one spawn per frame
// until it reaches the target size, then settles into a steady state of
// transform updates and node recycling.
func Bench(ctx *cli.Context) error {
	setupLogging(ctx)

	nodeCount := ctx.Int("nodes")
	frames := ctx.Int("frames")
	if nodeCount <= 0 || frames <= 0 {
		return errors.New("nodes and frames must be positive")
	}

	e := engine.NewEngine(engine.WithBackend(gpu.BackendTypeNull))
	defer e.Shutdown()
	if !e.Initialize() {
		return errors.New("engine failed to initialize")
	}
	e.EnableProfiler()

	assetPath := ctx.String("asset")
	spawn := func(i int) ([]uint64, error) {
		if assetPath != "" {
			nodes, err := e.LoadAsset(assetPath)
			if err != nil {
				return nil, err
			}
			ids := make([]uint64, len(nodes))
			for j, n := range nodes {
				// Spread repeated instancings of the file apart.
				world := n.WorldTransform()
				world[12] += float32(i) * 4
				e.UpdateNodeTransform(n.ID(), world)
				ids[j] = n.ID()
			}
			return ids, nil
		}

		// Four cube sizes, so the geometry cache shares structures between
		// nodes spawned with the same size.
		size := 1 + float32(i%4)
		n := renderable.NewNode(
			renderable.WithName(fmt.Sprintf("bench_%d", i)),
			renderable.WithMesh(mesh.Cube(fmt.Sprintf("cube_%d", i%4), size)),
			renderable.WithPosition(float32(i%16)*4, 0, float32(i/16)*4),
		)
		if !e.AddNode(e.Registry().Add(n)) {
			return nil, fmt.Errorf("could not add node %d", i)
		}
		return []uint64{n.ID()}, nil
	}

	var ids []uint64
	spawned := 0
	start := time.Now()

	for f := 0; f < frames; f++ {
		switch {
		case spawned < nodeCount:
			batch, err := spawn(spawned)
			if err != nil {
				return err
			}
			ids = append(ids, batch...)
			spawned++
		default:
			// Steady state: move a third of the nodes, and every eighth
			// frame recycle the oldest for a fresh spawn.
			for i := 0; i < len(ids); i += 3 {
				e.UpdateNodeTransform(ids[i], translation(float32(f%32), 0, float32(i)))
			}
			if f%8 == 0 && len(ids) > 0 {
				e.RemoveNodeByID(ids[0])
				ids = ids[1:]
				batch, err := spawn(spawned)
				if err != nil {
					return err
				}
				ids = append(ids, batch...)
				spawned++
			}
		}
		e.Step()
	}

	displayBenchStats(e, frames, time.Since(start))
	return nil
}

func translation(x, y, z float32) [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

func displayBenchStats(e engine.Engine, frames int, elapsed time.Duration) {
	stats := e.Device().Stats()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Frames", fmt.Sprintf("%d", frames)})
	table.Append([]string{"Wall time", fmt.Sprintf("%s", elapsed)})
	table.Append([]string{"Frames/sec", fmt.Sprintf("%.1f", float64(frames)/elapsed.Seconds())})
	table.Append([]string{"Scene nodes", fmt.Sprintf("%d", e.Scene().NodeCount())})
	table.Append([]string{"Shading records", fmt.Sprintf("%d", e.Scene().SBTRecordCount())})
	table.Append([]string{"Structure builds", fmt.Sprintf("%d", stats.AccelBuilds)})
	table.Append([]string{"Avg build time", fmt.Sprintf("%s", e.Profiler().AverageBuildTime())})
	table.Append([]string{"Structures live", fmt.Sprintf("%d", stats.AccelsLive)})
	table.Append([]string{"Buffers live", fmt.Sprintf("%d", stats.BuffersLive)})
	table.Append([]string{"Bytes live", fmt.Sprintf("%d", stats.BytesLive)})
	table.Append([]string{"Peak bytes", fmt.Sprintf("%d", stats.PeakBytes)})
	table.Render()

	logger.Noticef("bench statistics\n%s", buf.String())
}
