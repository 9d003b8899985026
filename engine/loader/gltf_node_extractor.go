package loader

import (
	"fmt"

	"github.com/Hurleyworks/Cook/common"
)

// gltfNodeExtractorImpl is the implementation of the gltfNodeExtractor interface.
type gltfNodeExtractorImpl struct {
	parser gltfParser
}

// gltfNodeExtractor defines the interface for flattening the glTF node
// hierarchy of the default scene into world-space mesh instances. The instance
// table is what gets turned into renderable nodes; the hierarchy itself does
// not survive the import.
type gltfNodeExtractor interface {
	// ExtractNodes walks the default scene and returns one ImportedNode per
	// (node, primitive) pair with the fully composed world transform. Files
	// without scenes produce no instances; their meshes are still usable.
	//
	// Parameters:
	//   - meshTable: flattened mesh indices per glTF mesh, from ExtractAllMeshes
	//   - materials: the material index of each flattened mesh
	//
	// Returns:
	//   - []ImportedNode: the flattened instances
	//   - error: error if extraction fails
	ExtractNodes(meshTable [][]int, materials []int) ([]ImportedNode, error)
}

var _ gltfNodeExtractor = &gltfNodeExtractorImpl{}

// newGLTFNodeExtractor creates a new node extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfNodeExtractor: the node extractor
func newGLTFNodeExtractor(parser gltfParser) gltfNodeExtractor {
	return &gltfNodeExtractorImpl{parser: parser}
}

func (e *gltfNodeExtractorImpl) ExtractNodes(meshTable [][]int, materials []int) ([]ImportedNode, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if len(doc.Scenes) == 0 {
		return nil, nil
	}

	sceneIndex := 0
	if doc.Scene != nil {
		sceneIndex = *doc.Scene
	}
	if sceneIndex < 0 || sceneIndex >= len(doc.Scenes) {
		return nil, fmt.Errorf("scene index %d out of range", sceneIndex)
	}

	var identity [16]float32
	common.Identity(identity[:])

	var result []ImportedNode
	visited := make(map[int]bool)
	for _, root := range doc.Scenes[sceneIndex].Nodes {
		if err := e.walkNode(root, identity, meshTable, materials, visited, &result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// walkNode composes world transforms depth-first and emits an instance for
// every primitive of every mesh-bearing node. The visited set guards against
// cycles in malformed files; valid glTF node hierarchies are trees.
func (e *gltfNodeExtractorImpl) walkNode(nodeIndex int, parent [16]float32, meshTable [][]int, materials []int, visited map[int]bool, out *[]ImportedNode) error {
	doc := e.parser.Document()
	if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
		return fmt.Errorf("node index %d out of range", nodeIndex)
	}
	if visited[nodeIndex] {
		return nil
	}
	visited[nodeIndex] = true

	node := &doc.Nodes[nodeIndex]

	local := gltfLocalTransform(node)
	var world [16]float32
	common.Mul4(world[:], parent[:], local[:])

	if node.Mesh != nil {
		meshIndex := *node.Mesh
		if meshIndex < 0 || meshIndex >= len(meshTable) {
			return fmt.Errorf("node %d: mesh index %d out of range", nodeIndex, meshIndex)
		}

		name := node.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", nodeIndex)
		}
		for _, flat := range meshTable[meshIndex] {
			*out = append(*out, ImportedNode{
				Name:      name,
				Mesh:      flat,
				Material:  materials[flat],
				Transform: world,
			})
		}
	}

	for _, child := range node.Children {
		if err := e.walkNode(child, world, meshTable, materials, visited, out); err != nil {
			return err
		}
	}

	return nil
}

// gltfLocalTransform returns the node's local transform. A matrix property
// wins over TRS; per the glTF spec the two are mutually exclusive.
func gltfLocalTransform(node *gltfNode) [16]float32 {
	if node.Matrix != nil {
		return *node.Matrix
	}

	t := [3]float32{0, 0, 0}
	r := [4]float32{0, 0, 0, 1}
	s := [3]float32{1, 1, 1}
	if node.Translation != nil {
		t = *node.Translation
	}
	if node.Rotation != nil {
		r = *node.Rotation
	}
	if node.Scale != nil {
		s = *node.Scale
	}
	return gltfComposeTRS(t, r, s)
}

// gltfComposeTRS builds the column-major matrix T * R * S from a translation,
// a unit quaternion (x, y, z, w), and a scale.
func gltfComposeTRS(t [3]float32, r [4]float32, s [3]float32) [16]float32 {
	x, y, z, w := r[0], r[1], r[2], r[3]

	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	var m [16]float32
	m[0] = (1 - 2*(yy+zz)) * s[0]
	m[1] = 2 * (xy + wz) * s[0]
	m[2] = 2 * (xz - wy) * s[0]

	m[4] = 2 * (xy - wz) * s[1]
	m[5] = (1 - 2*(xx+zz)) * s[1]
	m[6] = 2 * (yz + wx) * s[1]

	m[8] = 2 * (xz + wy) * s[2]
	m[9] = 2 * (yz - wx) * s[2]
	m[10] = (1 - 2*(xx+yy)) * s[2]

	m[12], m[13], m[14] = t[0], t[1], t[2]
	m[15] = 1
	return m
}
