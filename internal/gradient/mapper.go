package gradient

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMemoSize = 1024

type memoKey struct {
	scheme  string
	percent float64
}

// Mapper memoises colour lookups by (scheme, percent). It is safe for concurrent use.
type Mapper struct {
	cache *lru.Cache[memoKey, RGB]
}

// NewMapper returns a Mapper holding up to size entries.
func NewMapper(size int) (*Mapper, error) {
	if size <= 0 {
		size = defaultMemoSize
	}
	cache, err := lru.New[memoKey, RGB](size)
	if err != nil {
		return nil, fmt.Errorf("create colour memo: %w", err)
	}
	return &Mapper{cache: cache}, nil
}

// ColorFor returns the memoised colour for percent under scheme.
func (m *Mapper) ColorFor(percent float64, scheme Scheme) RGB {
	if m == nil || m.cache == nil {
		return ColorFor(percent, scheme)
	}
	key := memoKey{scheme: scheme.name, percent: clamp(percent)}
	if c, ok := m.cache.Get(key); ok {
		return c
	}
	c := ColorFor(key.percent, scheme)
	m.cache.Add(key, c)
	return c
}

// Len reports how many entries are memoised.
func (m *Mapper) Len() int {
	if m == nil || m.cache == nil {
		return 0
	}
	return m.cache.Len()
}
