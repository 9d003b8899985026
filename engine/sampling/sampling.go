// Package sampling builds discrete probability distributions for kernel-side
// importance sampling. The scene layer rebuilds one distribution over the
// per-instance light importance weights on every acceleration-structure build
// and uploads it beside the instance data.
package sampling

import (
	"encoding/binary"
	"math"
	"sort"
)

// HeaderSize is the marshaled size of the count and integral fields. A
// device buffer holding a distribution over at most n items needs
// HeaderSize + 4*n bytes.
const HeaderSize = 8

// Distribution is a discrete probability distribution over a fixed set of
// items, built once from non-negative weights. Items with zero weight carry
// zero probability and are never sampled. The zero Distribution is empty.
type Distribution struct {
	cdf      []float32
	integral float32
}

// NewDistribution builds a distribution from the given weights. Negative
// weights count as zero. When every weight is zero the distribution keeps its
// item count but cannot be sampled.
//
// Parameters:
//   - weights: one non-negative weight per item
//
// Returns:
//   - Distribution: the built distribution
func NewDistribution(weights []float32) Distribution {
	if len(weights) == 0 {
		return Distribution{}
	}

	cdf := make([]float32, len(weights))
	total := float32(0)
	for i, w := range weights {
		if w > 0 {
			total += w
		}
		cdf[i] = total
	}
	if total > 0 {
		inv := 1 / total
		for i := range cdf {
			cdf[i] *= inv
		}
		// Close the final interval exactly regardless of rounding.
		cdf[len(cdf)-1] = 1
	}

	return Distribution{cdf: cdf, integral: total}
}

// Count returns the number of items in the distribution.
//
// Returns:
//   - int: the item count
func (d *Distribution) Count() int {
	return len(d.cdf)
}

// Integral returns the sum of the raw weights. A zero integral means the
// distribution cannot be sampled.
//
// Returns:
//   - float32: the weight sum
func (d *Distribution) Integral() float32 {
	return d.integral
}

// Probability returns the normalized probability of the given item.
//
// Parameters:
//   - index: the item index
//
// Returns:
//   - float32: the probability, 0 for out-of-range indices or a zero integral
func (d *Distribution) Probability(index int) float32 {
	if index < 0 || index >= len(d.cdf) || d.integral <= 0 {
		return 0
	}
	if index == 0 {
		return d.cdf[0]
	}
	return d.cdf[index] - d.cdf[index-1]
}

// Sample maps a uniform random number in [0, 1] to an item index. Items are
// picked proportionally to their weight; zero-weight items are never
// returned.
//
// Parameters:
//   - u: uniform random number in [0, 1]
//
// Returns:
//   - int: the sampled item index
//   - bool: false if the distribution is empty or has a zero integral
func (d *Distribution) Sample(u float32) (int, bool) {
	if len(d.cdf) == 0 || d.integral <= 0 {
		return 0, false
	}
	if u < 0 {
		u = 0
	}
	if u >= 1 {
		u = math.Nextafter32(1, 0)
	}
	// Smallest index with u < cdf[index]. Because the CDF only steps at
	// positive-weight items, the picked item always has positive probability.
	index := sort.Search(len(d.cdf), func(i int) bool {
		return u < d.cdf[i]
	})
	return index, true
}

// Size returns the marshaled size of the distribution in bytes.
//
// Returns:
//   - int: header plus one float per item
func (d *Distribution) Size() int {
	return HeaderSize + 4*len(d.cdf)
}

// Marshal encodes the distribution for device upload.
//
// Layout (little endian):
//
//	offset  0: Count    uint32
//	offset  4: Integral float32
//	offset  8: CDF      [Count]float32, normalized, last entry 1 when Integral > 0
//
// Returns:
//   - []byte: the encoded distribution, header only when empty
func (d *Distribution) Marshal() []byte {
	buf := make([]byte, d.Size())
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(d.cdf)))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(d.integral))
	for i, v := range d.cdf {
		binary.LittleEndian.PutUint32(buf[HeaderSize+i*4:HeaderSize+i*4+4], math.Float32bits(v))
	}
	return buf
}
