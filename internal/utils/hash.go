package utils

import "hash/fnv"

// HashKey folds parts into a stable FNV-1a key. Parts are separated by a NUL
// byte so ("ab","c") and ("a","bc") differ.
func HashKey(parts ...string) uint64 {
	h := fnv.New64a()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte(p))
	}
	return h.Sum64()
}
