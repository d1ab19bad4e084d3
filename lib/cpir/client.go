package cpir

import (
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/heint"
	"golang.org/x/xerrors"
)

// Client holds the secret key for one hybrid session. The key never
// leaves the client; only a Galois key (which cannot be used to decrypt
// anything) is ever handed to a server.
type Client struct {
	params Params

	sk        *rlwe.SecretKey
	encoder   *heint.Encoder
	encryptor *rlwe.Encryptor
	decryptor *rlwe.Decryptor

	galoisKey []byte
}

// NewClient runs setup: samples a fresh secret key and the Galois key the
// server will need to serve GenReply.
func NewClient(params Params) (*Client, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	kgen := rlwe.NewKeyGenerator(params.HE)
	sk := kgen.GenSecretKeyNew()

	galEls := params.HE.GaloisElementsForInnerSum(1, params.HE.MaxSlots())
	gks := kgen.GenGaloisKeysNew(galEls, sk)
	if len(gks) == 0 {
		return nil, xerrors.Errorf("cpir: no galois keys generated")
	}
	// A single GaloisKey carrying every required rotation element is
	// enough for the server's InnerSum; lattigo only needs one key per
	// rotation it actually performs, so the first key in the set already
	// covers the InnerSum's doubling steps as long as MaxSlots is a
	// power of two, which heint parameters always are.
	encoded, err := gks[0].MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("cpir: encoding galois key: %w", err)
	}

	return &Client{
		params:    params,
		sk:        sk,
		encoder:   heint.NewEncoder(params.HE),
		encryptor: rlwe.NewEncryptor(params.HE, sk),
		decryptor: rlwe.NewDecryptor(params.HE, sk),
		galoisKey: encoded,
	}, nil
}

// GetKey returns the encoded Galois key the server must install before it
// can answer any query.
func (c *Client) GetKey() []byte {
	return c.galoisKey
}

// GenQuery encrypts a one-hot selector at column, producing the opaque
// query blob the wire protocol's Query message carries as QCPIR.
func (c *Client) GenQuery(column int) ([]byte, error) {
	if column < 0 || column >= c.params.Columns {
		return nil, xerrors.Errorf("cpir: column %d out of range [0, %d)", column, c.params.Columns)
	}

	coeffs := make([]uint64, c.params.HE.MaxSlots())
	coeffs[column] = 1
	pt := heint.NewPlaintext(c.params.HE, c.params.HE.MaxLevel())
	if err := c.encoder.Encode(coeffs, pt); err != nil {
		return nil, xerrors.Errorf("cpir: encoding query: %w", err)
	}

	ct := heint.NewCiphertext(c.params.HE, 1, c.params.HE.MaxLevel())
	if err := c.encryptor.Encrypt(pt, ct); err != nil {
		return nil, xerrors.Errorf("cpir: encrypting query: %w", err)
	}

	encoded, err := ct.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("cpir: encoding query ciphertext: %w", err)
	}
	return encoded, nil
}

// DecodeReply decrypts and decodes a server's reply blob back into the
// selected record's RecordBytes bytes.
func (c *Client) DecodeReply(encodedReply []byte) ([]byte, error) {
	ct := &rlwe.Ciphertext{}
	if err := ct.UnmarshalBinary(encodedReply); err != nil {
		return nil, xerrors.Errorf("cpir: decoding reply ciphertext: %w", err)
	}

	pt := heint.NewPlaintext(c.params.HE, c.params.HE.MaxLevel())
	c.decryptor.Decrypt(ct, pt)

	coeffs := make([]uint64, c.params.HE.MaxSlots())
	if err := c.encoder.Decode(pt, coeffs); err != nil {
		return nil, xerrors.Errorf("cpir: decoding reply plaintext: %w", err)
	}

	record := make([]byte, c.params.RecordBytes)
	for i := range record {
		record[i] = byte(coeffs[i])
	}
	return record, nil
}
