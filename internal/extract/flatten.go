package extract

// Flattening of ragged per-spectrum data into flat columns. A table row
// exists per peak, so per-spectrum scalars are repeated once per peak
// of their spectrum and the variable-length arrays are concatenated.
// A spectrum with zero peaks contributes zero rows.

// lengths returns the element count of each array
func lengths(arrs [][]float64) []int {
	l := make([]int, len(arrs))
	for i, a := range arrs {
		l[i] = len(a)
	}
	return l
}

// broadcast repeats scalars[i] lens[i] times, in order
func broadcast(scalars []float64, lens []int) []float64 {
	total := 0
	for _, n := range lens {
		total += n
	}
	out := make([]float64, 0, total)
	for i, n := range lens {
		for j := 0; j < n; j++ {
			out = append(out, scalars[i])
		}
	}
	return out
}

// concat joins the arrays in order
func concat(arrs [][]float64) []float64 {
	total := 0
	for _, a := range arrs {
		total += len(a)
	}
	out := make([]float64, 0, total)
	for _, a := range arrs {
		out = append(out, a...)
	}
	return out
}
