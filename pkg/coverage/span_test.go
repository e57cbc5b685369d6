package coverage

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
)

func TestReferenceSpan(t *testing.T) {
	op := sam.NewCigarOp
	tests := []struct {
		name  string
		cigar sam.Cigar
		want  uint32
	}{
		{"empty", nil, 0},
		{"match only", sam.Cigar{op(sam.CigarMatch, 100)}, 100},
		{"insertion and soft clip excluded",
			sam.Cigar{op(sam.CigarMatch, 5), op(sam.CigarInsertion, 3), op(sam.CigarMatch, 4), op(sam.CigarSoftClipped, 2)}, 9},
		{"deletion and skip consume reference",
			sam.Cigar{op(sam.CigarMatch, 10), op(sam.CigarDeletion, 2), op(sam.CigarSkipped, 100), op(sam.CigarMatch, 10)}, 122},
		{"sequence match and mismatch",
			sam.Cigar{op(sam.CigarEqual, 7), op(sam.CigarMismatch, 1), op(sam.CigarEqual, 7)}, 15},
		{"hard clip and pad excluded",
			sam.Cigar{op(sam.CigarHardClipped, 50), op(sam.CigarMatch, 20), op(sam.CigarPadded, 4), op(sam.CigarHardClipped, 50)}, 20},
		{"clips only", sam.Cigar{op(sam.CigarSoftClipped, 30), op(sam.CigarInsertion, 5)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReferenceSpan(tt.cigar))
		})
	}
}
