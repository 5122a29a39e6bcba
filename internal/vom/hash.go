package vom

import (
	"hash/fnv"

	"github.com/google/uuid"
)

func newComponentID() uuid.UUID {
	return uuid.New()
}

// hashCluster fingerprints (role, text, style bits) so the same visual
// content hashes identically across classifier runs. FormatSnapshot
// copies the hash into each ElementRef; it does not use it when
// numbering refs, which follow classification order.
func hashCluster(role Role, c Cluster) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(role.String()))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(c.Text))
	_, _ = h.Write([]byte{0})
	if c.Style.Inverse {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
	if c.Style.BGIndexed != nil {
		_, _ = h.Write([]byte{1, *c.Style.BGIndexed})
	} else {
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
