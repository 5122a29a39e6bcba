package term

import "hash/fnv"

// fnvHash hashes screen text plus cursor state into a single uint64,
// the same fnv64a idiom the reference parser used for its screen hash.
func fnvHash(screenText string, cur Cursor) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(screenText))
	_, _ = h.Write([]byte{byte(cur.Row), byte(cur.Row >> 8), byte(cur.Col), byte(cur.Col >> 8)})
	if cur.Visible {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
