package coverage

import "github.com/biogo/hts/sam"

// ReferenceSpan returns the number of reference bases consumed by an
// alignment. Only M, D, N, = and X advance along the reference.
func ReferenceSpan(cigar sam.Cigar) uint32 {
	var span uint32
	for _, op := range cigar {
		switch op.Type() {
		case sam.CigarMatch, sam.CigarDeletion, sam.CigarSkipped,
			sam.CigarEqual, sam.CigarMismatch:
			span += uint32(op.Len())
		case sam.CigarInsertion, sam.CigarSoftClipped, sam.CigarHardClipped, sam.CigarPadded:
			// consume query only, or nothing
		}
	}
	return span
}
