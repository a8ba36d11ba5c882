package domain

// Algorithm names the AEAD that sealed an envelope. The name is stored in every
// envelope so that the configured algorithm can change without breaking old data.
type Algorithm string

const (
	// AESGCM is AES-256-GCM, the default where AES-NI is available.
	AESGCM Algorithm = "AES-256-GCM"

	// ChaCha20 is ChaCha20-Poly1305, for hosts without AES hardware support.
	ChaCha20 Algorithm = "CHACHA20-POLY1305"
)

// ParseAlgorithm converts a configuration string into an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AESGCM, ChaCha20:
		return Algorithm(s), nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}

const (
	// KeySize is the size in bytes of every derived data key (256 bits).
	KeySize = 32

	// NonceSize is the size in bytes of the per-envelope IV (96 bits).
	NonceSize = 12

	// MinPBKDF2Iterations is the lower bound for key derivation work.
	// Configuration may raise it but never lower it.
	MinPBKDF2Iterations = 600_000

	// MaxPlaintextSize bounds a single value accepted for encryption over the API.
	MaxPlaintextSize = 1 << 20
)
