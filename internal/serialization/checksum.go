package serialization

import (
	"crypto/sha256"
	"fmt"
)

// checksum returns the SHA-256 digest of the data section.
func checksum(data []byte) [ChecksumSize]byte {
	return sha256.Sum256(data)
}

// verifyChecksum compares the data section against the digest stored in the
// fixed header.
func verifyChecksum(data []byte, stored [ChecksumSize]byte) error {
	if got := checksum(data); got != stored {
		return fmt.Errorf("%w: stored %x..., computed %x...", ErrChecksumMismatch, stored[:4], got[:4])
	}
	return nil
}
