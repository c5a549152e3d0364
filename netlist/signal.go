package netlist

// SignalList is an ordered working handle on a group of pins, such as
// an address or data bus, moved between nodes by a pass. Bit 0 is the
// least significant. It references pins but owns none of them.
//
// An entry is either an input pin (floating, or owned by a node) that
// stands for the net it reads, or an output pin that stands for the net
// it drives.
type SignalList []*Pin

// Len returns the number of signals.
func (s SignalList) Len() int { return len(s) }

// MSB returns the most significant signal, or nil when empty.
func (s SignalList) MSB() *Pin {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// Slice returns a copy of signals [i, j). Signals past the end are
// returned as nil.
func (s SignalList) Slice(i, j int) SignalList {
	out := make(SignalList, j-i)
	for k := i; k < j && k < len(s); k++ {
		out[k-i] = s[k]
	}
	return out
}

// Concat returns a new list holding s followed by t.
func (s SignalList) Concat(t SignalList) SignalList {
	out := make(SignalList, 0, len(s)+len(t))
	out = append(out, s...)
	return append(out, t...)
}

// Nets returns the net each signal stands for; nil for an unconnected
// signal.
func (s SignalList) Nets() []*Net {
	nets := make([]*Net, len(s))
	for i, pin := range s {
		if pin != nil {
			nets[i] = pin.Net
		}
	}
	return nets
}

// ReleaseSignals frees the floating input pins of a list that was not
// consumed. Pins owned by nodes and drivers are left alone.
func (nl *Netlist) ReleaseSignals(s SignalList) {
	for _, pin := range s {
		if pin != nil && pin.Floating() && pin.Type != OutputPin {
			nl.Release(pin)
		}
	}
}

// Floating returns whether the pin is owned by no node and not freed.
func (pin *Pin) Floating() bool { return !pin.freed && pin.Node == nil }

// Freed returns whether the pin has been freed.
func (pin *Pin) Freed() bool { return pin.freed }
