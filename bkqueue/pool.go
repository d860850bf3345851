// Package bkqueue implements the bounded hand-off between disk readers and
// their counting workers: a fixed-capacity free list of byte buffers per
// reader, and a bounded multi-producer/single-consumer queue feeding each
// reader's worker. Both support a "completed" signal so consumers terminate
// cleanly. Buffers must be explicitly returned to the pool for reuse, which
// a plain buffered channel does not provide on its own.
package bkqueue

import "sync"

// ChunkPool is a bounded free list of fixed-capacity byte slices. Get blocks
// until a chunk is available; Put returns a chunk (resetting its length to
// its capacity) to the pool.
type ChunkPool struct {
	mu        sync.Mutex
	cv        *sync.Cond
	chunkSize int
	maxChunks int
	free      [][]byte
}

// NewChunkPool preallocates maxChunks buffers of chunkSize bytes, so the
// pool never allocates again after construction.
func NewChunkPool(maxChunks, chunkSize int) *ChunkPool {
	p := &ChunkPool{chunkSize: chunkSize, maxChunks: maxChunks}
	p.cv = sync.NewCond(&p.mu)
	p.free = make([][]byte, 0, maxChunks)
	for i := 0; i < maxChunks; i++ {
		p.free = append(p.free, make([]byte, chunkSize))
	}
	return p
}

// Capacity returns the pool's fixed chunk count.
func (p *ChunkPool) Capacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxChunks
}

// Available returns the number of chunks currently free.
func (p *ChunkPool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Get blocks until a chunk is available and returns it, truncated to
// length 0 and capacity chunkSize.
func (p *ChunkPool) Get() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.free) == 0 {
		p.cv.Wait()
	}
	n := len(p.free) - 1
	c := p.free[n]
	p.free = p.free[:n]
	return c[:0]
}

// Put returns a chunk to the pool for reuse.
func (p *ChunkPool) Put(c []byte) {
	p.mu.Lock()
	p.free = append(p.free, c[:cap(c)])
	p.mu.Unlock()
	p.cv.Signal()
}
