// gltf_types.go contains glTF 2.0 spec data structures for JSON deserialization.
// These types map directly to the glTF 2.0 JSON schema and are internal to the loader package.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package loader

// --- glTF Root Structure ---

// gltfDocument represents the root of a glTF JSON document.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-gltf
type gltfDocument struct {
	// Asset contains metadata about the glTF asset.
	Asset gltfAsset `json:"asset"`

	// Scene is the index of the default scene.
	Scene *int `json:"scene,omitempty"`

	// Scenes is an array of scenes.
	Scenes []gltfScene `json:"scenes,omitempty"`

	// Nodes is an array of nodes (transform hierarchy).
	Nodes []gltfNode `json:"nodes,omitempty"`

	// Meshes is an array of meshes.
	Meshes []gltfMesh `json:"meshes,omitempty"`

	// Accessors define how to interpret buffer data.
	Accessors []gltfAccessor `json:"accessors,omitempty"`

	// BufferViews define portions of buffers.
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`

	// Buffers are raw binary data containers.
	Buffers []gltfBuffer `json:"buffers,omitempty"`

	// Materials is an array of materials.
	Materials []gltfMaterial `json:"materials,omitempty"`

	// ExtensionsUsed lists extensions used by this asset.
	ExtensionsUsed []string `json:"extensionsUsed,omitempty"`

	// ExtensionsRequired lists extensions required to load this asset.
	ExtensionsRequired []string `json:"extensionsRequired,omitempty"`
}

// --- Asset Metadata ---

// gltfAsset contains metadata about the glTF asset.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-asset
type gltfAsset struct {
	// Version is the glTF version (required, must be "2.0").
	Version string `json:"version"`

	// MinVersion is the minimum glTF version required.
	MinVersion string `json:"minVersion,omitempty"`

	// Generator is the tool that generated this asset.
	Generator string `json:"generator,omitempty"`

	// Copyright information.
	Copyright string `json:"copyright,omitempty"`
}

// --- Scene Graph ---

// gltfScene is a set of visual objects to render.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-scene
type gltfScene struct {
	// Name is an optional name for this scene.
	Name string `json:"name,omitempty"`

	// Nodes are the indices of root nodes in this scene.
	Nodes []int `json:"nodes,omitempty"`
}

// gltfNode is a node in the node hierarchy.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-node
type gltfNode struct {
	// Name is an optional name for this node.
	Name string `json:"name,omitempty"`

	// Children are indices of child nodes.
	Children []int `json:"children,omitempty"`

	// Mesh is the index of the mesh in this node.
	Mesh *int `json:"mesh,omitempty"`

	// Matrix is a 4x4 transformation matrix (column-major).
	Matrix *[16]float32 `json:"matrix,omitempty"`

	// Translation is the node's translation (x, y, z).
	Translation *[3]float32 `json:"translation,omitempty"`

	// Rotation is the node's rotation as a quaternion (x, y, z, w).
	Rotation *[4]float32 `json:"rotation,omitempty"`

	// Scale is the node's scale (x, y, z).
	Scale *[3]float32 `json:"scale,omitempty"`
}

// --- Mesh Data ---

// gltfMesh is a set of primitives to be rendered.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-mesh
type gltfMesh struct {
	// Name is an optional name for this mesh.
	Name string `json:"name,omitempty"`

	// Primitives defines the geometry to render.
	Primitives []gltfPrimitive `json:"primitives"`
}

// gltfPrimitive defines geometry for rendering.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-mesh-primitive
type gltfPrimitive struct {
	// Attributes is a map of attribute semantic to accessor index.
	// Standard attributes: POSITION, NORMAL, TANGENT, TEXCOORD_0, COLOR_0
	Attributes map[string]int `json:"attributes"`

	// Indices is the accessor index for the index buffer.
	Indices *int `json:"indices,omitempty"`

	// Material is the material index.
	Material *int `json:"material,omitempty"`

	// Mode is the primitive topology.
	// 0=POINTS, 1=LINES, 2=LINE_LOOP, 3=LINE_STRIP, 4=TRIANGLES (default), 5=TRIANGLE_STRIP, 6=TRIANGLE_FAN
	Mode *int `json:"mode,omitempty"`
}

// PrimitiveMode constants
const (
	gltfPrimitiveModeTriangles = 4
)

// --- Buffer Data ---

// gltfAccessor defines how to interpret buffer data.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-accessor
type gltfAccessor struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// BufferView is the index of the bufferView.
	BufferView *int `json:"bufferView,omitempty"`

	// ByteOffset is the offset within the bufferView.
	ByteOffset int `json:"byteOffset,omitempty"`

	// ComponentType is the data type of components.
	// 5120=BYTE, 5121=UNSIGNED_BYTE, 5122=SHORT, 5123=UNSIGNED_SHORT, 5125=UNSIGNED_INT, 5126=FLOAT
	ComponentType int `json:"componentType"`

	// Normalized indicates if integer data should be normalized.
	Normalized bool `json:"normalized,omitempty"`

	// Count is the number of elements.
	Count int `json:"count"`

	// Type is the element type (SCALAR, VEC2, VEC3, VEC4, MAT2, MAT3, MAT4).
	Type string `json:"type"`

	// Max is the maximum value of each component.
	Max []float32 `json:"max,omitempty"`

	// Min is the minimum value of each component.
	Min []float32 `json:"min,omitempty"`

	// Sparse defines sparse storage of accessor values.
	Sparse *gltfAccessorSparse `json:"sparse,omitempty"`
}

// ComponentType constants
const (
	gltfComponentTypeByte          = 5120
	gltfComponentTypeUnsignedByte  = 5121
	gltfComponentTypeShort         = 5122
	gltfComponentTypeUnsignedShort = 5123
	gltfComponentTypeUnsignedInt   = 5125
	gltfComponentTypeFloat         = 5126
)

// AccessorType constants
const (
	gltfAccessorTypeScalar = "SCALAR"
	gltfAccessorTypeVec2   = "VEC2"
	gltfAccessorTypeVec3   = "VEC3"
	gltfAccessorTypeVec4   = "VEC4"
	gltfAccessorTypeMat2   = "MAT2"
	gltfAccessorTypeMat3   = "MAT3"
	gltfAccessorTypeMat4   = "MAT4"
)

// gltfAccessorSparse defines sparse storage.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-accessor-sparse
//
// Only Count is deserialized. The parser rejects sparse accessors, so the
// Indices/Values sub-objects are never read; encoding/json ignores them.
type gltfAccessorSparse struct {
	// Count is the number of sparse entries.
	Count int `json:"count"`
}

// gltfBufferView represents a subset of a buffer.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-bufferview
type gltfBufferView struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// Buffer is the index of the buffer.
	Buffer int `json:"buffer"`

	// ByteOffset is the offset into the buffer.
	ByteOffset int `json:"byteOffset,omitempty"`

	// ByteLength is the length of the bufferView.
	ByteLength int `json:"byteLength"`

	// ByteStride is the stride for interleaved data (optional).
	ByteStride *int `json:"byteStride,omitempty"`

	// Target is the intended GPU buffer type.
	// 34962=ARRAY_BUFFER, 34963=ELEMENT_ARRAY_BUFFER
	Target *int `json:"target,omitempty"`
}

// gltfBuffer represents binary data.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-buffer
type gltfBuffer struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// URI is the URI of the buffer data (can be data: URI or external file).
	URI string `json:"uri,omitempty"`

	// ByteLength is the length of the buffer.
	ByteLength int `json:"byteLength"`

	// Data holds the loaded binary data (not part of JSON, populated during load).
	Data []byte `json:"-"`
}

// --- Materials ---

// gltfMaterial defines the material appearance of a primitive. Texture
// references are ignored; the path tracer shades from factor values only.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-material
type gltfMaterial struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// PbrMetallicRoughness is the PBR metallic-roughness model.
	PbrMetallicRoughness *gltfPbrMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`

	// EmissiveFactor is the emitted radiance color (RGB).
	EmissiveFactor *[3]float32 `json:"emissiveFactor,omitempty"`

	// Extensions holds the material extensions the importer understands.
	Extensions *gltfMaterialExtensions `json:"extensions,omitempty"`
}

// gltfPbrMetallicRoughness is the metallic-roughness material model.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-material-pbrmetallicroughness
type gltfPbrMetallicRoughness struct {
	// BaseColorFactor is the base color (RGBA).
	BaseColorFactor *[4]float32 `json:"baseColorFactor,omitempty"`

	// MetallicFactor is the metalness (0.0 = dielectric, 1.0 = metal).
	MetallicFactor *float32 `json:"metallicFactor,omitempty"`

	// RoughnessFactor is the roughness (0.0 = smooth, 1.0 = rough).
	RoughnessFactor *float32 `json:"roughnessFactor,omitempty"`
}

// gltfMaterialExtensions holds the subset of ratified material extensions
// that map onto MaterialProperties fields.
type gltfMaterialExtensions struct {
	// EmissiveStrength scales EmissiveFactor beyond the [0,1] range.
	// Reference: https://registry.khronos.org/glTF/extensions/2.0/Khronos/KHR_materials_emissive_strength
	EmissiveStrength *gltfEmissiveStrength `json:"KHR_materials_emissive_strength,omitempty"`

	// IOR overrides the default index of refraction (1.5).
	// Reference: https://registry.khronos.org/glTF/extensions/2.0/Khronos/KHR_materials_ior
	IOR *gltfIOR `json:"KHR_materials_ior,omitempty"`
}

// gltfEmissiveStrength is the KHR_materials_emissive_strength extension payload.
type gltfEmissiveStrength struct {
	// EmissiveStrength multiplies EmissiveFactor (default 1.0).
	EmissiveStrength *float32 `json:"emissiveStrength,omitempty"`
}

// gltfIOR is the KHR_materials_ior extension payload.
type gltfIOR struct {
	// IOR is the index of refraction (default 1.5).
	IOR *float32 `json:"ior,omitempty"`
}

// --- GLB Binary Format ---

// gltfGLBHeader is the header of a GLB file (12 bytes).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
type gltfGLBHeader struct {
	Magic   uint32 // Must be 0x46546C67 ("glTF" in ASCII)
	Version uint32 // Must be 2
	Length  uint32 // Total file length
}

// gltfGLBChunkHeader is the header of a GLB chunk (8 bytes).
type gltfGLBChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32 // 0x4E4F534A for JSON, 0x004E4942 for BIN
}

// GLB magic number and chunk type constants
const (
	gltfGLBMagic     = 0x46546C67 // "glTF" in little-endian ASCII
	gltfGLBVersion   = 2
	gltfGLBChunkJSON = 0x4E4F534A // "JSON" in little-endian ASCII
	gltfGLBChunkBIN  = 0x004E4942 // "BIN\0" in little-endian ASCII
)
