package memory

import "github.com/andrewarchi/netlegal/netlist"

// Decoder builds an n-input, 2^n-output one-hot decoder. Output i is
// the AND over the address bits, each taken true or inverted according
// to the matching bit of i. An empty address decodes to a single line
// tied high.
func Decoder(b *netlist.Builder, addr netlist.SignalList) netlist.SignalList {
	if len(addr) == 0 {
		return netlist.SignalList{b.One()}
	}
	inv := make(netlist.SignalList, len(addr))
	for j, a := range addr {
		inv[j] = b.Not(a)
	}
	lines := make(netlist.SignalList, 1<<uint(len(addr)))
	terms := make([]*netlist.Pin, len(addr))
	for i := range lines {
		for j := range addr {
			if i>>uint(j)&1 != 0 {
				terms[j] = addr[j]
			} else {
				terms[j] = inv[j]
			}
		}
		lines[i] = b.And(terms...)
	}
	return lines
}

// softRAM expands r into one flip-flop per cell. Each port decodes its
// address and gates its write enable per word; a cell holds its value
// unless a port writes it, with later ports taking priority. Each port
// reads through a select mux per data bit.
func (l *lowering) softRAM(r *ram) []netlist.SignalList {
	b := l.b
	words, w := 1<<uint(r.addrWidth()), r.dataWidth()
	sels := make([]netlist.SignalList, len(r.ports))
	wes := make([]netlist.SignalList, len(r.ports))
	for k, acc := range r.ports {
		sels[k] = Decoder(b, acc.addr)
		wes[k] = make(netlist.SignalList, words)
		for i := range wes[k] {
			wes[k][i] = b.And(sels[k][i], acc.we)
		}
	}

	cells := make([]netlist.SignalList, w)
	for j := range cells {
		cells[j] = make(netlist.SignalList, words)
	}
	for i := 0; i < words; i++ {
		for j := 0; j < w; j++ {
			ff, q := b.FF(r.clk)
			d := q
			for k, acc := range r.ports {
				d = b.Mux2(wes[k][i], d, acc.data[j])
			}
			b.SetD(ff, d)
			cells[j][i] = q
		}
	}

	res := make([]netlist.SignalList, len(r.ports))
	for k := range res {
		res[k] = make(netlist.SignalList, w)
		for j := range res[k] {
			res[k][j] = b.SelectMux(sels[k], cells[j])
		}
	}
	return res
}
