package util

import "sync"

// bufPool holds DefaultBufSize buffers shared by the copy and echo loops.
var bufPool = sync.Pool{ //nolint:gochecknoglobals
	New: func() interface{} {
		buf := make([]byte, DefaultBufSize)
		return &buf
	},
}

// GetBuf retrieves a DefaultBufSize buffer from the pool.  Callers must
// return it with [PutBuf] when finished.
func GetBuf() *[]byte {
	return bufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool.  Buffers of any other capacity
// are left to the garbage collector.
func PutBuf(buf *[]byte) {
	if buf == nil || cap(*buf) != DefaultBufSize {
		return
	}
	*buf = (*buf)[:DefaultBufSize]
	bufPool.Put(buf)
}

// Buf returns a buffer of exactly size bytes and the func that gives it
// back.  Sizes up to DefaultBufSize are carved from the pool; larger or
// non-positive sizes fall back to a pooled DefaultBufSize buffer or a
// fresh allocation respectively.
func Buf(size int) (buf []byte, release func()) {
	if size > DefaultBufSize {
		return make([]byte, size), func() {}
	}
	bp := GetBuf()
	if size <= 0 {
		size = DefaultBufSize
	}
	return (*bp)[:size], func() { PutBuf(bp) }
}
