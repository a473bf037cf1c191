// Package alttransport implements the alternate host-integrated transport
// described in spec.md §6: the same five-level priority submission API as
// the core gosched.Scheduler, but delegating queueing to a host-provided
// prioritized task API instead of owning the ready/pending heaps itself.
//
// Use this when embedding gosched inside a host that already exposes its
// own priority-aware task queue (e.g. a UI toolkit's own event loop, or a
// browser-style postTask scheduler reached via cgo/wasm) and you only need
// gosched's priority-translation and continuation semantics layered on top,
// not its own heaps and host-adapter goroutine.
package alttransport
