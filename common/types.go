// package common contains common types that are used throughout this renderer. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// MaterialProperties describes the surface appearance values behind one
// material slot, pending GPU upload.
type MaterialProperties struct {
	// Name is the material identifier.
	Name string

	// BaseColor is the albedo/diffuse color (RGBA).
	BaseColor [4]float32

	// Metallic factor (0.0 = dielectric, 1.0 = metal).
	Metallic float32

	// Roughness factor (0.0 = smooth, 1.0 = rough).
	Roughness float32

	// IOR is the index of refraction used for dielectric Fresnel terms.
	IOR float32

	// Emission is the emitted radiance color (RGB).
	Emission [3]float32

	// EmissiveScale multiplies Emission. A material only acts as a light
	// source when the scaled emission is non-zero.
	EmissiveScale float32
}

// Emissive reports whether the material emits light, i.e. whether the scaled
// emission color has at least one non-zero channel.
//
// Returns:
//   - bool: true if the material contributes emitted radiance
func (m *MaterialProperties) Emissive() bool {
	if m.EmissiveScale <= 0 {
		return false
	}
	return m.Emission[0] > 0 || m.Emission[1] > 0 || m.Emission[2] > 0
}

// Luminance returns the scalar luminance of the scaled emission color using
// Rec. 709 weights. This is the importance weight used when building light
// sampling distributions.
//
// Returns:
//   - float32: luminance of EmissiveScale * Emission
func (m *MaterialProperties) Luminance() float32 {
	r := m.Emission[0] * m.EmissiveScale
	g := m.Emission[1] * m.EmissiveScale
	b := m.Emission[2] * m.EmissiveScale
	return 0.2126*r + 0.7152*g + 0.0722*b
}
