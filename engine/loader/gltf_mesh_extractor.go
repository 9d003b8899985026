package loader

import (
	"fmt"

	"github.com/Hurleyworks/Cook/common"
	"github.com/Hurleyworks/Cook/engine/mesh"
)

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
}

// gltfMeshExtractor defines the interface for extracting mesh data from a parsed
// glTF document. It converts raw glTF accessor data into cache-ready Mesh values.
type gltfMeshExtractor interface {
	// ExtractMesh extracts a single glTF mesh by index.
	// Returns one Mesh per primitive (glTF meshes can have multiple primitives),
	// paired with each primitive's material index (-1 when the primitive has none).
	//
	// Parameters:
	//   - meshIndex: the index of the mesh to extract
	//
	// Returns:
	//   - []mesh.Mesh: one Mesh per primitive
	//   - []int: the material index of each primitive, aligned with the meshes
	//   - error: error if extraction fails
	ExtractMesh(meshIndex int) ([]mesh.Mesh, []int, error)

	// ExtractAllMeshes extracts all meshes from the document into a flattened
	// slice with one Mesh per primitive across all meshes. The returned table
	// maps each glTF mesh index to the positions of its primitives within the
	// flattened slice, which is what node instantiation walks.
	//
	// Returns:
	//   - []mesh.Mesh: all meshes (flattened, one per primitive)
	//   - []int: the material index of each flattened mesh
	//   - [][]int: flattened indices per glTF mesh
	//   - error: error if extraction fails
	ExtractAllMeshes() ([]mesh.Mesh, []int, [][]int, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) ([]mesh.Mesh, []int, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, nil, fmt.Errorf("no document loaded")
	}
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, nil, fmt.Errorf("mesh index %d out of range", meshIndex)
	}

	src := &doc.Meshes[meshIndex]
	var meshes []mesh.Mesh
	var materials []int

	for primIdx := range src.Primitives {
		prim := &src.Primitives[primIdx]
		m, materialIndex, err := e.extractPrimitive(prim, src.Name, meshIndex, primIdx)
		if err != nil {
			return nil, nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}
		meshes = append(meshes, m)
		materials = append(materials, materialIndex)
	}

	return meshes, materials, nil
}

func (e *gltfMeshExtractorImpl) ExtractAllMeshes() ([]mesh.Mesh, []int, [][]int, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, nil, nil, fmt.Errorf("no document loaded")
	}

	var allMeshes []mesh.Mesh
	var allMaterials []int
	table := make([][]int, len(doc.Meshes))

	for i := range doc.Meshes {
		meshes, materials, err := e.ExtractMesh(i)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("mesh %d: %w", i, err)
		}
		for j := range meshes {
			table[i] = append(table[i], len(allMeshes))
			allMeshes = append(allMeshes, meshes[j])
			allMaterials = append(allMaterials, materials[j])
		}
	}

	return allMeshes, allMaterials, table, nil
}

// extractPrimitive extracts a single primitive as a Mesh with one surface.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive, meshName string, meshIndex, primIndex int) (mesh.Mesh, int, error) {
	// Check for triangle mode (default is TRIANGLES)
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return nil, 0, fmt.Errorf("unsupported primitive mode: %d (only triangles supported)", *prim.Mode)
	}

	// Extract positions (required)
	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, 0, fmt.Errorf("primitive has no POSITION attribute")
	}

	rawPositions, err := e.parser.ReadVec3Accessor(posAccessor)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read positions: %w", err)
	}
	if len(rawPositions) == 0 {
		return nil, 0, fmt.Errorf("primitive has no vertices")
	}

	vertexCount := len(rawPositions)
	positions := make([]common.Vec3, vertexCount)
	for i, pos := range rawPositions {
		positions[i] = common.Vec3(pos)
	}

	// Extract normals (optional, generated from geometry when absent or when
	// the count does not match the positions)
	var normals []common.Vec3
	if normalAccessor, ok := prim.Attributes["NORMAL"]; ok {
		rawNormals, err := e.parser.ReadVec3Accessor(normalAccessor)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read normals: %w", err)
		}
		if len(rawNormals) == vertexCount {
			normals = make([]common.Vec3, vertexCount)
			for i, n := range rawNormals {
				normals[i] = common.Vec3(n)
			}
		}
	}

	// Extract indices
	var indices []uint32
	if prim.Indices != nil {
		indices, err = e.parser.ReadIndicesAccessor(*prim.Indices)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		// Generate sequential indices if none provided
		indices = make([]uint32, vertexCount)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	// The acceleration structure build consumes whole triangles referencing
	// uploaded vertices, so a ragged or out-of-range index buffer is rejected
	// here rather than corrupting the geometry cache.
	if len(indices)%3 != 0 {
		return nil, 0, fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= vertexCount {
			return nil, 0, fmt.Errorf("index %d out of range for %d vertices", idx, vertexCount)
		}
	}

	// Determine material index
	materialIndex := -1
	if prim.Material != nil {
		materialIndex = *prim.Material
	}

	// Build mesh name
	name := meshName
	if name == "" {
		name = fmt.Sprintf("mesh_%d", meshIndex)
	}
	if primIndex > 0 {
		name = fmt.Sprintf("%s_prim%d", name, primIndex)
	}

	options := []mesh.MeshBuilderOption{
		mesh.WithName(name),
		mesh.WithPositions(positions),
		mesh.WithSurface("triangles", indices),
	}
	if normals != nil {
		options = append(options, mesh.WithNormals(normals))
	} else {
		options = append(options, mesh.WithComputedNormals())
	}

	return mesh.NewMesh(options...), materialIndex, nil
}
