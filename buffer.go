package coreio

import "github.com/behrlich/coreio/internal/bufpool"

// Buffer is the handle a Task passes into Read/Write-family intents. It
// is defined in internal/bufpool; coreio re-exports the type here so
// callers never need to import the internal package directly.
type Buffer = bufpool.Buffer

// NewBuffer allocates a standalone buffer of the given capacity,
// outside of any Engine's pool. Tasks that need a buffer before an
// Engine exists (e.g. to build a fixed request payload) use this; every
// other buffer should come from Engine.GetBuffer so it participates in
// pooling.
func NewBuffer(capacity int) *Buffer {
	return bufpool.New(capacity)
}
