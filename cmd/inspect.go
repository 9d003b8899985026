package cmd

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Hurleyworks/Cook/engine/loader"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Inspect imports scene files and reports what each one contributes.
func Inspect(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() == 0 {
		return errors.New("missing scene file argument")
	}

	assets := loader.NewLoader(loader.BackendTypeGLTF)
	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)

		logger.Noticef("importing scene: %s", sceneFile)
		imported, err := assets.Load(sceneFile)
		if err != nil {
			return err
		}

		logger.Noticef("scene information:\n%s", describeScene(imported))
	}

	return nil
}

func describeScene(imported *loader.ImportedScene) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Mesh", "Vertices", "Triangles", "Surfaces"})

	var totalTriangles int
	for _, m := range imported.Meshes {
		totalTriangles += m.TriangleCount()
		table.Append([]string{
			m.Name(),
			fmt.Sprintf("%d", m.VertexCount()),
			fmt.Sprintf("%d", m.TriangleCount()),
			fmt.Sprintf("%d", len(m.Surfaces())),
		})
	}
	table.SetFooter([]string{"TOTAL", "", fmt.Sprintf("%d", totalTriangles), ""})
	table.Render()

	emissive := 0
	for i := range imported.Materials {
		if imported.Materials[i].Emissive() {
			emissive++
		}
	}
	fmt.Fprintf(&buf, "%d materials (%d emissive), %d instances\n",
		len(imported.Materials), emissive, len(imported.Nodes))

	return buf.String()
}
