package peer

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultSeenSize = 4096

// SeenCache remembers recently processed inbound sequence numbers of one peer so a
// batch resent after a lost ack is acknowledged again but not applied twice.
type SeenCache struct {
	cache *lru.Cache[int64, struct{}]
}

func NewSeenCache(size int) (*SeenCache, error) {
	if size <= 0 {
		size = DefaultSeenSize
	}
	c, err := lru.New[int64, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &SeenCache{cache: c}, nil
}

// FirstTime records seq and reports whether it had not been seen before.
func (c *SeenCache) FirstTime(seq int64) bool {
	seen, _ := c.cache.ContainsOrAdd(seq, struct{}{})
	return !seen
}

// Reply writes a frame back to the connection an inbound batch came from.
type Reply func(frame []byte) error
