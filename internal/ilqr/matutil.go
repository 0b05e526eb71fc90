package ilqr

// Small dense matrix helpers for the Q-function assembly in backward.go.
// Kept as plain nested-loop slice code in the teacher's style
// (internal/control/lqr.go, internal/integrators/rk4.go); only the
// regularized Cholesky solve itself goes through internal/linalg/gonum.

func zeros(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

func addInPlace(dst, src [][]float64) {
	for i := range dst {
		for j := range dst[i] {
			dst[i][j] += src[i][j]
		}
	}
}

func addVecInPlace(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// matTMat returns A^T * B for A (rows x cols), B (rows x cols2).
func matTMat(a, b [][]float64, rows, cols, cols2 int) [][]float64 {
	out := zeros(cols, cols2)
	for i := 0; i < cols; i++ {
		for j := 0; j < cols2; j++ {
			s := 0.0
			for k := 0; k < rows; k++ {
				s += a[k][i] * b[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

// matTVec returns A^T * v for A (rows x cols), v (rows).
func matTVec(a [][]float64, v []float64, rows, cols int) []float64 {
	out := make([]float64, cols)
	for i := 0; i < cols; i++ {
		s := 0.0
		for k := 0; k < rows; k++ {
			s += a[k][i] * v[k]
		}
		out[i] = s
	}
	return out
}

// matMat returns A*B for A (rows x inner), B (inner x cols).
func matMat(a, b [][]float64, rows, inner, cols int) [][]float64 {
	out := zeros(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			s := 0.0
			for k := 0; k < inner; k++ {
				s += a[i][k] * b[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

func matVec(a [][]float64, v []float64, rows, cols int) []float64 {
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		s := 0.0
		for j := 0; j < cols; j++ {
			s += a[i][j] * v[j]
		}
		out[i] = s
	}
	return out
}

func transpose(a [][]float64, rows, cols int) [][]float64 {
	out := zeros(cols, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[j][i] = a[i][j]
		}
	}
	return out
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func quadFormMV(m [][]float64, v []float64) float64 {
	mv := matVec(m, v, len(m), len(v))
	return dot(v, mv)
}

// The helpers below support the foh-coupled Q-function assembly in
// foh.go: building block-concatenated matrices, scaling/adding into
// sub-blocks, and slicing a solved block back out.

func identity(n int) [][]float64 {
	m := zeros(n, n)
	for i := 0; i < n; i++ {
		m[i][i] = 1
	}
	return m
}

func scaleMatN(m [][]float64, s float64, rows, cols int) [][]float64 {
	out := zeros(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[i][j] = m[i][j] * s
		}
	}
	return out
}

func scaleInPlace(m [][]float64, s float64) {
	for i := range m {
		for j := range m[i] {
			m[i][j] *= s
		}
	}
}

func scaleVecInPlace(v []float64, s float64) {
	for i := range v {
		v[i] *= s
	}
}

func addWeighted(dst, src [][]float64, w float64) {
	for i := range dst {
		for j := range dst[i] {
			dst[i][j] += w * src[i][j]
		}
	}
}

func addVecWeighted(dst, src []float64, w float64) {
	for i := range dst {
		dst[i] += w * src[i]
	}
}

// hconcat returns [a | b] for a (rows x colsA), b (rows x colsB).
func hconcat(a, b [][]float64, rows, colsA, colsB int) [][]float64 {
	out := zeros(rows, colsA+colsB)
	for i := 0; i < rows; i++ {
		copy(out[i][:colsA], a[i])
		copy(out[i][colsA:], b[i])
	}
	return out
}

// hconcat3 returns [a | b | c] for a (rows x colsA), b (rows x colsB), c
// (rows x colsC).
func hconcat3(a, b, c [][]float64, rows, colsA, colsB, colsC int) [][]float64 {
	out := zeros(rows, colsA+colsB+colsC)
	for i := 0; i < rows; i++ {
		copy(out[i][:colsA], a[i])
		copy(out[i][colsA:colsA+colsB], b[i])
		copy(out[i][colsA+colsB:], c[i])
	}
	return out
}

// colVec returns v as a (len(v) x 1) matrix.
func colVec(v []float64) [][]float64 {
	out := make([][]float64, len(v))
	for i := range v {
		out[i] = []float64{v[i]}
	}
	return out
}

// subCols returns m[:, colOff:colOff+width] for an m with the given rows.
func subCols(m [][]float64, rows, colOff, width int) [][]float64 {
	out := zeros(rows, width)
	for i := 0; i < rows; i++ {
		copy(out[i], m[i][colOff:colOff+width])
	}
	return out
}

// colOf returns column colIdx of m as a vector.
func colOf(m [][]float64, colIdx, rows int) []float64 {
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = m[i][colIdx]
	}
	return out
}

// setBlock copies src into dst starting at (rowOff,colOff).
func setBlock(dst, src [][]float64, rowOff, colOff int) {
	for i := range src {
		copy(dst[rowOff+i][colOff:], src[i])
	}
}

// addBlock adds src into dst's block starting at (rowOff,colOff).
func addBlock(dst, src [][]float64, rowOff, colOff int) {
	for i := range src {
		for j := range src[i] {
			dst[rowOff+i][colOff+j] += src[i][j]
		}
	}
}

// addVecBlock adds src into dst starting at offset.
func addVecBlock(dst, src []float64, offset int) {
	for i := range src {
		dst[offset+i] += src[i]
	}
}

// subMat returns dst[rowOff:rowOff+rows][colOff:colOff+cols].
func subMat(m [][]float64, rowOff, colOff, rows, cols int) [][]float64 {
	out := zeros(rows, cols)
	for i := 0; i < rows; i++ {
		copy(out[i], m[rowOff+i][colOff:colOff+cols])
	}
	return out
}
