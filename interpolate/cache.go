package interpolate

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"
)

// WeightsCache keeps the weights of a (source, query) pair under a caller
// chosen key. An entry is rebuilt when the coordinates it was built from
// change.
type WeightsCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	Hits    int
	Builds  int
}

type cacheEntry struct {
	fingerprint uint64
	weights     *Weights
	err         error
}

func NewWeightsCache() *WeightsCache {
	return &WeightsCache{entries: make(map[string]*cacheEntry)}
}

// Get returns the cached weights for key, building them on a miss. A build
// failure is cached too, so a degenerate cloud is not retriangulated every
// step.
func (wc *WeightsCache) Get(key string, source, query [][]float64) (w *Weights, err error) {
	fp := Fingerprint(source, query)
	wc.mu.Lock()
	defer wc.mu.Unlock()
	if e, ok := wc.entries[key]; ok && e.fingerprint == fp {
		wc.Hits++
		return e.weights, e.err
	}
	w, err = BuildWeights(source, query)
	wc.Builds++
	wc.entries[key] = &cacheEntry{fingerprint: fp, weights: w, err: err}
	return
}

func (wc *WeightsCache) Len() int {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return len(wc.entries)
}

// Fingerprint hashes the exact bit patterns of one or more point sets.
func Fingerprint(sets ...[][]float64) uint64 {
	var (
		h   = fnv.New64a()
		buf [8]byte
	)
	for _, set := range sets {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(set)))
		h.Write(buf[:])
		for _, p := range set {
			for _, x := range p {
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
				h.Write(buf[:])
			}
		}
	}
	return h.Sum64()
}
