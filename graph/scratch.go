package graph

// ScratchBlockFrames bounds the largest block the runtime will ever be
// asked to process; the two shared scratch buffers are sized to it once,
// at package init, and never resized.
const ScratchBlockFrames = 4096

// MaxInstances is the replication-factor ceiling (CapacityError beyond
// this).
const MaxInstances = 64

// silence and discard are the process-wide scratch buffers every
// unconnected audio port is pre-wired to at compile time: silence is
// never written (an all-zero source for unused inputs), discard is never
// read (a sink for unused outputs). Both are package-level so every
// compiled graph shares the same two allocations.
var (
	silence = make([]float32, ScratchBlockFrames)
	discard = make([]float32, ScratchBlockFrames)
)
