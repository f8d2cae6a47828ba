package sqlcache

import "fmt"

// MaxKeyLength bounds key sizes so every key fits the indexed VARCHAR(255)
// column with margin, mirroring memcached-compatible limits.
const MaxKeyLength = 250

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidKey, len(key), MaxKeyLength)
	}
	for i := 0; i < len(key); i++ {
		if key[i] < 0x20 || key[i] == 0x7f {
			return fmt.Errorf("%w: control byte 0x%02x at %d", ErrInvalidKey, key[i], i)
		}
	}
	return nil
}

// dedupe returns keys with duplicates removed, preserving first-seen order.
// Multi-key operations treat their inputs as sets.
func dedupe(keys []string) []string {
	if len(keys) < 2 {
		return keys
	}
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
