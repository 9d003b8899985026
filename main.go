package main

import (
	"os"
	"time"

	"github.com/Hurleyworks/Cook/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "cook"
	app.Usage = "scene and acceleration structure layer for a wavefront path tracer"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "inspect",
			Usage: "load scene files and print what they contain",
			Description: `
Import one or more glTF files through the scene loader and report the meshes,
materials, and instances each contributes, without touching a device.`,
			ArgsUsage: "scene1.gltf scene2.glb ...",
			Action:    cmd.Inspect,
		},
		{
			Name:  "bench",
			Usage: "benchmark acceleration structure rebuilds under churn",
			Description: `
Spawn geometry on the headless device backend and step frames while adding,
moving, and recycling nodes, then report build and resource statistics.`,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "nodes",
					Value: 64,
					Usage: "scene size to grow to, in spawns",
				},
				cli.IntFlag{
					Name:  "frames",
					Value: 240,
					Usage: "number of frames to step",
				},
				cli.StringFlag{
					Name:  "asset",
					Usage: "glTF file to instance instead of procedural cubes",
				},
			},
			Action: cmd.Bench,
		},
		{
			Name:  "soak",
			Usage: "run the live frame loop with continuous scene churn",
			Description: `
Run the frame loop at a fixed tick rate while mutating the scene from the
frame callback. The periodic profiler output should stay flat; rising heap or
device counters point at a leak.`,
			Flags: []cli.Flag{
				cli.DurationFlag{
					Name:  "duration",
					Value: 10 * time.Second,
					Usage: "how long to run",
				},
				cli.Float64Flag{
					Name:  "fps",
					Value: 60,
					Usage: "frame loop tick rate",
				},
				cli.BoolFlag{
					Name:  "wgpu",
					Usage: "use the WebGPU device backend instead of the headless one",
				},
			},
			Action: cmd.Soak,
		},
	}

	app.Run(os.Args)
}
