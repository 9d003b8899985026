package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/Hurleyworks/Cook/engine"
	"github.com/Hurleyworks/Cook/engine/gpu"
	"github.com/Hurleyworks/Cook/engine/mesh"
	"github.com/Hurleyworks/Cook/engine/renderable"
	"github.com/urfave/cli"
)

// soakSceneSize is how many nodes the soak keeps alive at steady state.
const soakSceneSize = 32

// Soak runs the live frame loop with continuous churn for a fixed duration.
// Meant for leak hunting: the periodic profiler output should show the heap
// and the device counters staying flat once the scene reaches steady state.
func Soak(ctx *cli.Context) error {
	setupLogging(ctx)

	duration := ctx.Duration("duration")
	backend := gpu.BackendTypeNull
	if ctx.Bool("wgpu") {
		backend = gpu.BackendTypeWGPU
	}

	e := engine.NewEngine(
		engine.WithBackend(backend),
		engine.WithTickRate(ctx.Float64("fps")),
		engine.WithProfiling(true),
	)
	defer e.Shutdown()
	if !e.Initialize() {
		return errors.New("engine failed to initialize")
	}

	// The callback runs on the frame goroutine, which is the one place scene
	// mutations are allowed while the loop runs.
	var ids []uint64
	spawned := 0
	deadline := time.Now().Add(duration)
	e.SetFrameCallback(func(frame engine.Frame) {
		if time.Now().After(deadline) {
			e.Quit()
			return
		}

		// A slow orbit keeps the accumulation restart path hot.
		e.Camera().Orbit(0.01, 0)

		switch {
		case len(ids) < soakSceneSize:
			n := renderable.NewNode(
				renderable.WithName(fmt.Sprintf("soak_%d", spawned)),
				renderable.WithMesh(mesh.Cube(fmt.Sprintf("cube_%d", spawned%4), 1+float32(spawned%4))),
				renderable.WithPosition(float32(len(ids))*3, 0, 0),
			)
			if e.AddNode(e.Registry().Add(n)) {
				ids = append(ids, n.ID())
				spawned++
			}
		case frame.Index%4 == 0:
			e.RemoveNodeByID(ids[0])
			ids = ids[1:]
		default:
			e.UpdateNodeTransform(ids[int(frame.Index)%len(ids)], translation(float32(frame.Index%60), 0, 0))
		}
	})

	logger.Noticef("soaking for %s at %.0f fps", duration, ctx.Float64("fps"))
	e.Run()

	stats := e.Device().Stats()
	logger.Noticef("soak finished: %d builds, %d live buffers, %d live structures",
		stats.AccelBuilds, stats.BuffersLive, stats.AccelsLive)
	return nil
}
