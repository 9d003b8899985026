package geometry

// CacheBuilderOption is a functional option for configuring a Cache via NewCache.
type CacheBuilderOption func(*cache)

// WithMaxLeafTriangles is an option builder that sets the largest triangle
// count a bottom-level acceleration structure leaf may hold.
//
// Parameters:
//   - n: the maximum number of triangles per leaf
//
// Returns:
//   - CacheBuilderOption: a function that applies the leaf size option to a cache
func WithMaxLeafTriangles(n int) CacheBuilderOption {
	return func(c *cache) {
		if n > 0 {
			c.maxLeafTriangles = n
		}
	}
}
