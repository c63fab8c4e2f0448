package xdata

// Listener receives progress notifications while a root Record is written
// or read. Only the root record's direct entries are reported, not values nested
// inside lists or sub-records.
type Listener interface {
	OnProgress(done, total int)
}

type noopListener struct{}

func (noopListener) OnProgress(done, total int) {}

var defaultListener Listener = noopListener{}
