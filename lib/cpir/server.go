package cpir

import (
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/heint"
	"golang.org/x/xerrors"
)

// Server holds one matrix row's column data, encoded once at Setup time,
// plus the client's Galois keys once they arrive via SetGaloisKey. It
// answers GenReply requests without ever learning which column the
// client actually selected.
type Server struct {
	params Params

	encoder *heint.Encoder
	masks   []*rlwe.Plaintext // masks[i]: one-hot at slot i
	columns []*rlwe.Plaintext // columns[i]: record i's bytes packed into slots

	evaluator *heint.Evaluator
}

// NewServer builds a Server and runs Setup over row, a RecordBytes*Columns
// byte slice holding Columns records concatenated (one IT-PIR row of the
// hybrid matrix).
func NewServer(params Params, row []byte) (*Server, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	want := params.RecordBytes * params.Columns
	if len(row) != want {
		return nil, xerrors.Errorf("cpir: row has length %d, want %d", len(row), want)
	}

	s := &Server{
		params:  params,
		encoder: heint.NewEncoder(params.HE),
	}

	s.masks = make([]*rlwe.Plaintext, params.Columns)
	s.columns = make([]*rlwe.Plaintext, params.Columns)

	for i := 0; i < params.Columns; i++ {
		maskCoeffs := make([]uint64, params.HE.MaxSlots())
		maskCoeffs[i] = 1
		maskPt := heint.NewPlaintext(params.HE, params.HE.MaxLevel())
		if err := s.encoder.Encode(maskCoeffs, maskPt); err != nil {
			return nil, xerrors.Errorf("cpir: encoding mask %d: %w", i, err)
		}
		s.masks[i] = maskPt

		record := row[i*params.RecordBytes : (i+1)*params.RecordBytes]
		colCoeffs := make([]uint64, params.HE.MaxSlots())
		for j, b := range record {
			colCoeffs[j] = uint64(b)
		}
		colPt := heint.NewPlaintext(params.HE, params.HE.MaxLevel())
		if err := s.encoder.Encode(colCoeffs, colPt); err != nil {
			return nil, xerrors.Errorf("cpir: encoding column %d: %w", i, err)
		}
		s.columns[i] = colPt
	}

	return s, nil
}

// SetGaloisKey installs the evaluation key the client generated alongside
// its own secret key. No secret material ever crosses this boundary: a
// Galois key only lets the server permute ciphertext slots, not decrypt
// them.
func (s *Server) SetGaloisKey(encoded []byte) error {
	gk := &rlwe.GaloisKey{}
	if err := gk.UnmarshalBinary(encoded); err != nil {
		return xerrors.Errorf("cpir: decoding galois key: %w", err)
	}
	evk := rlwe.NewMemEvaluationKeySet(nil, gk)
	s.evaluator = heint.NewEvaluator(s.params.HE, evk)
	return nil
}

// GenReply answers an encoded query ciphertext (a one-hot selector over
// the row's columns) by homomorphically combining every column with its
// mask and the client's selector, so that only the selected column's
// bytes survive into the result. The server never has to branch on, or
// even compute, which column was actually selected.
func (s *Server) GenReply(encodedQuery []byte) ([]byte, error) {
	if s.evaluator == nil {
		return nil, xerrors.Errorf("cpir: galois key not installed")
	}

	query := &rlwe.Ciphertext{}
	if err := query.UnmarshalBinary(encodedQuery); err != nil {
		return nil, xerrors.Errorf("cpir: decoding query ciphertext: %w", err)
	}

	n := s.params.HE.MaxSlots()
	answer := heint.NewCiphertext(s.params.HE, 1, s.params.HE.MaxLevel())

	for i := 0; i < s.params.Columns; i++ {
		selected := heint.NewCiphertext(s.params.HE, 1, s.params.HE.MaxLevel())
		if err := s.evaluator.Mul(query, s.masks[i], selected); err != nil {
			return nil, xerrors.Errorf("cpir: masking column %d: %w", i, err)
		}
		if err := s.evaluator.InnerSum(selected, 1, n, selected); err != nil {
			return nil, xerrors.Errorf("cpir: replicating selector for column %d: %w", i, err)
		}

		contribution := heint.NewCiphertext(s.params.HE, 1, s.params.HE.MaxLevel())
		if err := s.evaluator.Mul(selected, s.columns[i], contribution); err != nil {
			return nil, xerrors.Errorf("cpir: applying column %d: %w", i, err)
		}

		if err := s.evaluator.Add(answer, contribution, answer); err != nil {
			return nil, xerrors.Errorf("cpir: accumulating column %d: %w", i, err)
		}
	}

	encoded, err := answer.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("cpir: encoding reply ciphertext: %w", err)
	}
	return encoded, nil
}
