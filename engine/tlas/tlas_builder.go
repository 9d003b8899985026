package tlas

// ManagerBuilderOption is a functional option for configuring a Manager via NewManager.
type ManagerBuilderOption func(*manager)

// WithLabel is an option builder that sets the label used for the manager's
// device buffers, build submissions, and log lines.
//
// Parameters:
//   - label: the manager identifier
//
// Returns:
//   - ManagerBuilderOption: a function that applies the label option to a manager
func WithLabel(label string) ManagerBuilderOption {
	return func(m *manager) {
		m.label = label
	}
}

// WithMinLeafInstances is an option builder that sets the largest instance
// count a top-level hierarchy leaf may hold. The default of one instance per
// leaf gives the tightest traversal tree.
//
// Parameters:
//   - n: the maximum number of instances per leaf
//
// Returns:
//   - ManagerBuilderOption: a function that applies the leaf size option to a manager
func WithMinLeafInstances(n int) ManagerBuilderOption {
	return func(m *manager) {
		if n > 0 {
			m.minLeafInstances = n
		}
	}
}
