package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/solana"
)

// ComputeActivityID computes a deterministic activity_id using SHA256.
// Formula: SHA256(sale|investor|kind|sequence|timestamp)
// Returns hex-encoded hash (64 characters).
func ComputeActivityID(
	sale solana.PublicKey,
	investor solana.PublicKey,
	kind domain.ActivityKind,
	sequence uint64,
	timestamp int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d",
		sale,
		investor,
		string(kind),
		sequence,
		timestamp,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
