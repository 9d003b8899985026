package loader

import (
	"fmt"

	"github.com/Hurleyworks/Cook/common"
)

// defaultImportedIOR is the index of refraction assumed when a material does
// not carry the KHR_materials_ior extension, per that extension's default.
const defaultImportedIOR = 1.5

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser gltfParser
}

// gltfMaterialExtractor defines the interface for extracting material data from
// a parsed glTF document into slot-ready MaterialProperties values. Texture
// references are ignored; only factor values survive the import.
type gltfMaterialExtractor interface {
	// ExtractMaterial extracts a single material by index.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//
	// Returns:
	//   - common.MaterialProperties: the extracted material
	//   - error: error if extraction fails
	ExtractMaterial(materialIndex int) (common.MaterialProperties, error)

	// ExtractAllMaterials extracts all materials from the document.
	//
	// Returns:
	//   - []common.MaterialProperties: all extracted materials
	//   - error: error if extraction fails
	ExtractAllMaterials() ([]common.MaterialProperties, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(parser gltfParser) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{parser: parser}
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(materialIndex int) (common.MaterialProperties, error) {
	doc := e.parser.Document()
	if doc == nil {
		return common.MaterialProperties{}, fmt.Errorf("no document loaded")
	}
	if materialIndex < 0 || materialIndex >= len(doc.Materials) {
		return common.MaterialProperties{}, fmt.Errorf("material index %d out of range", materialIndex)
	}

	mat := &doc.Materials[materialIndex]

	// glTF spec defaults: white base color, fully metallic, fully rough.
	result := common.MaterialProperties{
		Name:          common.Coalesce(mat.Name, fmt.Sprintf("material_%d", materialIndex)),
		BaseColor:     [4]float32{1, 1, 1, 1},
		Metallic:      1.0,
		Roughness:     1.0,
		IOR:           defaultImportedIOR,
		EmissiveScale: 1.0,
	}

	if mat.PbrMetallicRoughness != nil {
		pbr := mat.PbrMetallicRoughness

		if pbr.BaseColorFactor != nil {
			result.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			result.Metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			result.Roughness = *pbr.RoughnessFactor
		}
	}

	if mat.EmissiveFactor != nil {
		result.Emission = *mat.EmissiveFactor
	}

	if mat.Extensions != nil {
		if es := mat.Extensions.EmissiveStrength; es != nil && es.EmissiveStrength != nil {
			result.EmissiveScale = *es.EmissiveStrength
		}
		if ior := mat.Extensions.IOR; ior != nil && ior.IOR != nil {
			result.IOR = *ior.IOR
		}
	}

	return result, nil
}

func (e *gltfMaterialExtractorImpl) ExtractAllMaterials() ([]common.MaterialProperties, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	materials := make([]common.MaterialProperties, len(doc.Materials))
	for i := range doc.Materials {
		mat, err := e.ExtractMaterial(i)
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		materials[i] = mat
	}

	return materials, nil
}
