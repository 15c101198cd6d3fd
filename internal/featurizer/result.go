package featurizer

// FeatureResult is a single-row table of named scalar, boolean or vector
// columns. Column order is insertion order; names are generated
// deterministically from the extractor's configuration. A result is built
// during Compute and treated as immutable afterwards.
type FeatureResult struct {
	names  []string
	values map[string]any
}

// NewFeatureResult returns an empty single-row table.
func NewFeatureResult() *FeatureResult {
	return &FeatureResult{values: make(map[string]any)}
}

// SetFloat stores a scalar column.
func (r *FeatureResult) SetFloat(name string, v float64) {
	r.set(name, v)
}

// SetBool stores a boolean column.
func (r *FeatureResult) SetBool(name string, v bool) {
	r.set(name, v)
}

// SetVector stores a vector-valued column.
func (r *FeatureResult) SetVector(name string, v []float64) {
	r.set(name, v)
}

func (r *FeatureResult) set(name string, v any) {
	if _, exists := r.values[name]; !exists {
		r.names = append(r.names, name)
	}
	r.values[name] = v
}

// Columns returns the column names in insertion order.
func (r *FeatureResult) Columns() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of columns.
func (r *FeatureResult) Len() int {
	return len(r.names)
}

// Float returns a scalar column.
func (r *FeatureResult) Float(name string) (float64, bool) {
	v, ok := r.values[name].(float64)
	return v, ok
}

// Bool returns a boolean column.
func (r *FeatureResult) Bool(name string) (bool, bool) {
	v, ok := r.values[name].(bool)
	return v, ok
}

// Vector returns a vector-valued column.
func (r *FeatureResult) Vector(name string) ([]float64, bool) {
	v, ok := r.values[name].([]float64)
	return v, ok
}
