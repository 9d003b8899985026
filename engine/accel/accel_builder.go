package accel

// BuilderOption is a functional option for configuring a Builder via NewBuilder.
type BuilderOption func(*builder)

// WithMaxLeafItems is an option builder that sets the largest item count the
// builder will place in a leaf without attempting a split. Values below 1 are
// raised to 1.
//
// Parameters:
//   - n: the maximum number of items per leaf
//
// Returns:
//   - BuilderOption: a function that applies the leaf size option to a builder
func WithMaxLeafItems(n int) BuilderOption {
	return func(b *builder) {
		b.maxLeafItems = n
	}
}

// WithSplitBuckets is an option builder that sets how many evenly spaced
// regions each axis is divided into when enumerating split candidates. More
// buckets give tighter trees at higher build cost. Values are clamped to
// [2, 64].
//
// Parameters:
//   - n: the number of split buckets per axis
//
// Returns:
//   - BuilderOption: a function that applies the bucket count option to a builder
func WithSplitBuckets(n int) BuilderOption {
	return func(b *builder) {
		b.splitBuckets = n
	}
}

// WithWorkers is an option builder that sets the number of goroutines the
// builder's scoring pool may run concurrently. Defaults to one per spare CPU.
//
// Parameters:
//   - n: the worker count for split scoring
//
// Returns:
//   - BuilderOption: a function that applies the worker count option to a builder
func WithWorkers(n int) BuilderOption {
	return func(b *builder) {
		if n > 0 {
			b.workers = n
		}
	}
}
