package detect

import (
	"crypto/sha1"
	"fmt"
	"hash/fnv"
	"io"
	"strconv"

	"github.com/spanwatch/spanwatch/internal/model"
)

// Fingerprint maps a finalized run to its stable dedup identifier:
// "{type-tag}-{transaction-hash}-{hex-digest}".
//
// The digest covers the detector type id, the transaction-level hash, and
// each member span's content hash in order — never span ids, which vary per
// ingestion. Two runs with identical member shapes therefore collapse into
// one issue; adding, removing, or reordering members changes the result.
// SHA-1 is fine here: collision resistance only affects dedup quality, not
// security.
func Fingerprint(typ model.ProblemType, transaction string, memberHashes []string) string {
	txHash := transactionHash(transaction)
	h := sha1.New()
	_, _ = io.WriteString(h, strconv.Itoa(int(typ)))
	_, _ = io.WriteString(h, txHash)
	for _, mh := range memberHashes {
		_, _ = io.WriteString(h, mh)
	}
	return fmt.Sprintf("%d-%s-%x", int(typ), txHash, h.Sum(nil))
}

// transactionHash is the event-level discriminator: a short stable hash of
// the transaction name so the same span shapes in different transactions
// group separately.
func transactionHash(transaction string) string {
	h := fnv.New32a()
	_, _ = io.WriteString(h, transaction)
	return fmt.Sprintf("%08x", h.Sum32())
}
