package registry

// PortKind partitions a descriptor's ports into the four kinds the graph
// compiler cares about.
type PortKind int

const (
	AudioIn PortKind = iota
	AudioOut
	ControlIn
	ControlOut
)

func (k PortKind) String() string {
	switch k {
	case AudioIn:
		return "audio-in"
	case AudioOut:
		return "audio-out"
	case ControlIn:
		return "control-in"
	case ControlOut:
		return "control-out"
	default:
		return "unknown"
	}
}

// IsAudio reports whether the kind is one of the two audio kinds.
func (k PortKind) IsAudio() bool { return k == AudioIn || k == AudioOut }

// Hint flags describe how a control port's numeric range should be
// interpreted and whether its bounds scale with the runtime sample rate.
type Hint uint32

const (
	HintNone       Hint = 0
	HintBoolean    Hint = 1 << 0
	HintInteger    Hint = 1 << 1
	HintSampleRate Hint = 1 << 2
	// HintNullData marks an audio port that may be pre-wired to a nil
	// buffer instead of the shared SILENCE/DISCARD scratch buffers.
	HintNullData Hint = 1 << 3
)

func (h Hint) Has(f Hint) bool { return h&f != 0 }

// PortDef is the plugin-supplied metadata for one port, in the order the
// underlying library declares it. Kind is set by the loader; the registry
// derives each port's index-within-kind from it when it partitions a
// RawDescriptor's ports.
type PortDef struct {
	Name    string
	Kind    PortKind
	Default float64
	Min     float64
	Max     float64
	Hint    Hint
}

// Handle is an opaque per-instance plugin handle. Built-in descriptors hold
// a pointer to their own Go state; cgo-backed loaders (ladspa, lv2) hold a
// wrapped C handle. The graph and runtime never look inside it.
type Handle any

// VTable is the descriptor's uniform function-pointer contract — the
// descriptor IS the vtable, no inheritance. Every plugin format (built-in,
// ladspa, lv2) implements exactly this shape.
type VTable struct {
	// Instantiate creates one Handle at the given sample rate. config is
	// the node's opaque configuration blob, or nil.
	Instantiate func(sampleRate float64, config []byte) (Handle, error)
	Activate    func(h Handle) error
	Deactivate  func(h Handle) error
	Cleanup     func(h Handle) error
	// ConnectAudioPort points the plugin at a block of samples for the
	// audio port at portIndex (index within the descriptor's combined
	// port list, not within-kind). buf may be nil for null-data ports.
	ConnectAudioPort func(h Handle, portIndex int, buf []float32) error
	// ConnectControlPort points the plugin at the node-resident scalar
	// cell backing the control port at portIndex.
	ConnectControlPort func(h Handle, portIndex int, cell *float32) error
	// Run executes one block of sampleCount frames.
	Run func(h Handle, sampleCount int) error
}

// RawDescriptor is what a Library hands back for one label: the port list
// in declaration order plus the vtable. The registry wraps this into a
// refcounted Descriptor and computes the per-kind index partitions.
type RawDescriptor struct {
	Label string
	Ports []PortDef
	VTable
}

// Descriptor is immutable metadata for a loaded plugin label: identity,
// refcount, and the port list partitioned by kind, plus scaled defaults for
// every control-in port.
type Descriptor struct {
	Plugin   *Plugin
	Label    string
	refcount int32

	Ports []PortDef // combined, in original declaration order

	AudioInIdx    []int
	AudioOutIdx   []int
	ControlInIdx  []int
	ControlOutIdx []int

	// Defaults is parallel to ControlInIdx: the SAMPLE_RATE-scaled default
	// value for each control-in port.
	Defaults []float64

	VTable VTable
}

// NumAudioIn / NumAudioOut / NumControlIn / NumControlOut are convenience
// accessors used by the compiler when sizing a node's port arrays.
func (d *Descriptor) NumAudioIn() int    { return len(d.AudioInIdx) }
func (d *Descriptor) NumAudioOut() int   { return len(d.AudioOutIdx) }
func (d *Descriptor) NumControlIn() int  { return len(d.ControlInIdx) }
func (d *Descriptor) NumControlOut() int { return len(d.ControlOutIdx) }

// PortByName resolves a port name to its descriptor-wide index, or -1.
func (d *Descriptor) PortByName(name string) int {
	for i, p := range d.Ports {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func partitionPorts(ports []PortDef) (audioIn, audioOut, controlIn, controlOut []int) {
	for i, p := range ports {
		switch p.Kind {
		case AudioIn:
			audioIn = append(audioIn, i)
		case AudioOut:
			audioOut = append(audioOut, i)
		case ControlIn:
			controlIn = append(controlIn, i)
		case ControlOut:
			controlOut = append(controlOut, i)
		}
	}
	return
}
