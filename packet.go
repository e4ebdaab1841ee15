package dagrs

// Packet is a typed, opaque payload produced by a node's action and
// delivered to its successors. Implementations without reflection-free
// generics still need a type tag; we carry the dynamic type alongside the
// value so GetOutput can report a mismatch instead of panicking.
type Packet struct {
	valid bool
	value any
}

// EmptyPacket is the output of a node that produced nothing. It is still a
// completion signal: successors receive it and proceed.
var EmptyPacket = Packet{}

// NewPacket wraps v as a Packet payload.
func NewPacket(v any) Packet {
	return Packet{valid: true, value: v}
}

// IsEmpty reports whether the packet carries no payload.
func (p Packet) IsEmpty() bool { return !p.valid }

// GetPacket extracts a typed value from a Packet. It returns false (never
// panics) when the packet is empty or its dynamic type does not match T —
// matching the "get returns None on type error" contract of §4.6/§9.
func GetPacket[T any](p Packet) (T, bool) {
	var zero T
	if !p.valid {
		return zero, false
	}
	v, ok := p.value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Output wraps a single outgoing packet payload, or the empty value.
type Output struct {
	Packet Packet
}

// EmptyOutput is the canonical "no payload" Output.
func EmptyOutput() Output { return Output{Packet: EmptyPacket} }

// NewOutput wraps v as an Output payload.
func NewOutput(v any) Output { return Output{Packet: NewPacket(v)} }

// Input is an ordered, indexed collection of packets received from
// predecessors, preserving the declared predecessor order from graph-build
// time. Index-based access (At) matches iteration (All) order.
type Input struct {
	packets []Packet
}

// NewInput wraps packets as an Input, for actions driven outside a live
// graph run (tests, REPLs).
func NewInput(packets ...Packet) Input {
	return Input{packets: packets}
}

// Len returns the number of predecessor packets.
func (in Input) Len() int { return len(in.packets) }

// At returns the packet received from the predecessor at position i in
// declared-predecessor order.
func (in Input) At(i int) Packet { return in.packets[i] }

// All returns the packets in declared-predecessor order. The returned
// slice must be treated as read-only.
func (in Input) All() []Packet { return in.packets }
