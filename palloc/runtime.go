package palloc

import _ "unsafe" // for go:linkname

// The per-thread context of a goroutine is keyed by the processor it
// runs on. Pinning for the duration of the id read is enough: the
// context's own lock guards against migration mid-operation.

//go:linkname runtime_procPin runtime.procPin
func runtime_procPin() int

//go:linkname runtime_procUnpin runtime.procUnpin
func runtime_procUnpin()
