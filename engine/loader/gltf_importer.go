package loader

import (
	"fmt"
	"io"

	"github.com/Hurleyworks/Cook/common"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct{}

// gltfImporter defines the interface for orchestrating a full glTF/GLB import.
// It combines the parser and all extractors to produce a complete ImportedScene.
type gltfImporter interface {
	// Import loads a glTF/GLB file and extracts meshes, materials, and
	// flattened instances into an ImportedScene.
	//
	// Parameters:
	//   - path: the file path to the glTF or GLB file
	//
	// Returns:
	//   - *ImportedScene: the fully populated imported scene
	//   - error: error if import fails
	Import(path string) (*ImportedScene, error)

	// ImportReader loads a glTF document from a reader and extracts all data.
	// The reader should provide a complete glTF JSON or GLB binary stream.
	//
	// Parameters:
	//   - r: the reader providing glTF/GLB data
	//   - isGLB: true if the reader provides GLB binary data, false for glTF JSON
	//
	// Returns:
	//   - *ImportedScene: the fully populated imported scene
	//   - error: error if import fails
	ImportReader(r io.Reader, isGLB bool) (*ImportedScene, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter() gltfImporter {
	return &gltfImporterImpl{}
}

func (imp *gltfImporterImpl) Import(path string) (*ImportedScene, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return imp.importFromParser(parser, path)
}

func (imp *gltfImporterImpl) ImportReader(r io.Reader, isGLB bool) (*ImportedScene, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}

	return imp.importFromParser(parser, "")
}

// importFromParser performs a full import from a parser that has already loaded
// a document.
//
// Parameters:
//   - parser: the glTF parser that has already loaded a document
//   - fallbackPath: optional file path used as a fallback for scene naming
func (imp *gltfImporterImpl) importFromParser(parser gltfParser, fallbackPath string) (*ImportedScene, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document after parsing")
	}

	meshExtractor := newGLTFMeshExtractor(parser)
	materialExtractor := newGLTFMaterialExtractor(parser)
	nodeExtractor := newGLTFNodeExtractor(parser)

	meshes, meshMaterials, meshTable, err := meshExtractor.ExtractAllMeshes()
	if err != nil {
		return nil, fmt.Errorf("mesh extraction failed: %w", err)
	}

	var materials []common.MaterialProperties
	if len(doc.Materials) > 0 {
		materials, err = materialExtractor.ExtractAllMaterials()
		if err != nil {
			return nil, fmt.Errorf("material extraction failed: %w", err)
		}
	}

	nodes, err := nodeExtractor.ExtractNodes(meshTable, meshMaterials)
	if err != nil {
		return nil, fmt.Errorf("node extraction failed: %w", err)
	}

	return &ImportedScene{
		Name:      gltfExtractSceneName(doc, fallbackPath),
		Meshes:    meshes,
		Materials: materials,
		Nodes:     nodes,
	}, nil
}

// gltfExtractSceneName derives a scene name from the document or a file path fallback.
func gltfExtractSceneName(doc *gltfDocument, fallbackPath string) string {
	var sceneName string
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		sceneName = doc.Scenes[*doc.Scene].Name
	}
	return common.Coalesce(sceneName, fallbackPath, "unnamed_scene")
}
