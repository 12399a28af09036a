package knowledge

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"
)

// PointID derives a stable numeric point id. String source ids are hashed
// with SHA-256 and truncated to a positive 63-bit integer; records without
// a string id use their position in the dataset.
func PointID(sourceID string, index int) uint64 {
	if sourceID == "" {
		return uint64(index)
	}
	sum := sha256.Sum256([]byte(sourceID))
	return binary.BigEndian.Uint64(sum[:8]) & 0x7fffffffffffffff
}

// IDRegistry remembers which source key produced each point id so two
// distinct records never silently overwrite each other.
type IDRegistry struct {
	mu   sync.Mutex
	keys map[uint64]string
}

func NewIDRegistry() *IDRegistry {
	return &IDRegistry{keys: make(map[uint64]string)}
}

// Register records key for id. Re-registering the same key is a no-op.
func (r *IDRegistry) Register(id uint64, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.keys[id]; ok && existing != key {
		return fmt.Errorf("%w: %q and %q both map to %d", ErrIDCollision, existing, key, id)
	}
	r.keys[id] = key
	return nil
}

func (r *IDRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}
