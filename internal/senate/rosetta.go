package senate

import (
	"crypto/sha256"
	"encoding/hex"
)

// rosettaSignature computes the content-hash signature the crucible path
// binds to every forged variant: sha256(code + intermediate_representation).
// A signature mismatch at adversary time means the artifact was tampered
// with or truncated in transit and is rejected before the adversary ever
// reasons about it.
func rosettaSignature(code, intermediateRepresentation string) string {
	sum := sha256.Sum256([]byte(code + intermediateRepresentation))
	return hex.EncodeToString(sum[:])
}

// verifyRosetta reports whether signature matches the content hash of code
// and intermediateRepresentation.
func verifyRosetta(code, intermediateRepresentation, signature string) bool {
	return rosettaSignature(code, intermediateRepresentation) == signature
}
