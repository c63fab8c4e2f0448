package xdata

import "sync"

// recordPool recycles *Record allocations across Load calls, the same way bbolt-backed stores commonly
// recycle key and value byte buffers across transactions. It is purely an
// allocation optimization: acquireRecord always returns a cleared record,
// and nothing about Load's observable result depends on whether a given
// *Record came from the pool or was freshly allocated.
var recordPool = sync.Pool{
	New: func() any {
		return NewRecord()
	},
}

func acquireRecord() *Record {
	return recordPool.Get().(*Record)
}

func releaseRecord(r *Record) {
	r.reset()
	recordPool.Put(r)
}
