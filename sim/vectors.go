package sim

import (
	"io"

	"github.com/holiman/uint256"
	"github.com/icza/bitio"
	"github.com/pkg/errors"
)

// EncodeVectors writes stimulus or response vectors as a packed bit
// stream: a 32-bit vector count, then for each vector every field in
// order, least significant 64-bit limb first, each field using exactly
// its width in bits.
func EncodeVectors(w io.Writer, widths []int, vectors [][]*uint256.Int) error {
	for _, width := range widths {
		if width < 0 || width > MaxBusWidth {
			return errors.Errorf("sim: vector field width %d out of range", width)
		}
	}
	bw := bitio.NewWriter(w)
	if err := bw.WriteBits(uint64(len(vectors)), 32); err != nil {
		return errors.Wrap(err, "sim: write vector count")
	}
	for i, vec := range vectors {
		if len(vec) != len(widths) {
			return errors.Errorf("sim: vector %d has %d fields, want %d", i, len(vec), len(widths))
		}
		for j, v := range vec {
			for limb, n := 0, widths[j]; n > 0; limb, n = limb+1, n-64 {
				bits := n
				if bits > 64 {
					bits = 64
				}
				word := v[limb]
				if bits < 64 {
					word &= 1<<uint(bits) - 1
				}
				if err := bw.WriteBits(word, uint8(bits)); err != nil {
					return errors.Wrapf(err, "sim: write vector %d", i)
				}
			}
		}
	}
	return errors.Wrap(bw.Close(), "sim: flush vectors")
}

// DecodeVectors reads vectors written by EncodeVectors.
func DecodeVectors(r io.Reader, widths []int) ([][]*uint256.Int, error) {
	br := bitio.NewReader(r)
	count, err := br.ReadBits(32)
	if err != nil {
		return nil, errors.Wrap(err, "sim: read vector count")
	}
	vectors := make([][]*uint256.Int, count)
	for i := range vectors {
		vec := make([]*uint256.Int, len(widths))
		for j, width := range widths {
			v := new(uint256.Int)
			for limb, n := 0, width; n > 0; limb, n = limb+1, n-64 {
				bits := n
				if bits > 64 {
					bits = 64
				}
				word, err := br.ReadBits(uint8(bits))
				if err != nil {
					return nil, errors.Wrapf(err, "sim: read vector %d", i)
				}
				v[limb] = word
			}
			vec[j] = v
		}
		vectors[i] = vec
	}
	return vectors, nil
}
