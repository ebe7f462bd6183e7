package cache

// fold maps a row index r in [0, N') to its logical index r' in [0, N).
// Regression mode doubles the addressable row space (N' = 2N); a row
// r >= N mirrors row 2N-1-r, the convention regression SVMs use to address
// the duplicated, opposite-signed copy of each training example. Outside
// regression mode N' == N and fold is the identity.
func fold(r int32, n int32) int32 {
	if r < n {
		return r
	}
	return 2*n - 1 - r
}
