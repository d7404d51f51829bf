package cryptox

// FastKDFParams returns a deliberately cheap Argon2id cost. It exists so tests
// in this and dependent packages run quickly; never use it for real identities.
func FastKDFParams() KDFParams {
	return KDFParams{
		Algorithm: AlgorithmArgon2id,
		Time:      1,
		MemoryKiB: 1024,
		Threads:   1,
		KeyLen:    KeySize,
	}
}
