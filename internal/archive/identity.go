package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// sentAtLayout is the canonical timestamp form used inside identity hashes.
// Existing archives were built with this exact layout; changing it would
// orphan every stored issue.
const sentAtLayout = "2006-01-02 15:04:05"

// DeriveID computes the stable identifier for an issue. The ID is a pure
// function of (source, sourceID, sentAt, subject): re-importing the same
// issue reproduces the same ID, which is what makes sync and batch import
// idempotent. Missing fields participate as empty strings.
func DeriveID(source, sourceID string, sentAt time.Time, subject string) string {
	var ts string
	if !sentAt.IsZero() {
		ts = sentAt.Format(sentAtLayout)
	}
	sum := sha256.Sum256([]byte(source + "|" + sourceID + "|" + ts + "|" + subject))
	return hex.EncodeToString(sum[:])[:16]
}
