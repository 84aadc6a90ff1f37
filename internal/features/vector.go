package features

// Vector is a named collection of numeric features for one row. A name
// that was never set reads as zero, which is the pipeline's documented
// imputation for missing values: models are trained against zero-filled
// gaps, so inference must reproduce the same convention.
type Vector map[string]float64

// Get returns the value for a feature name, zero when unset.
func (v Vector) Get(name string) float64 {
	return v[name]
}

// Set records a feature value.
func (v Vector) Set(name string, value float64) {
	v[name] = value
}

// SetBool records a binary indicator as 0 or 1.
func (v Vector) SetBool(name string, b bool) {
	if b {
		v[name] = 1
	} else {
		v[name] = 0
	}
}

// Matrix assembles row-major training data from vectors in the exact
// column order given. Column order is what the frozen feature lists
// persist; building through this function is what keeps train and
// inference matrices aligned.
func Matrix(vectors []Vector, columns []string) [][]float64 {
	out := make([][]float64, len(vectors))
	for i, vec := range vectors {
		row := make([]float64, len(columns))
		for j, col := range columns {
			row[j] = vec.Get(col)
		}
		out[i] = row
	}
	return out
}
