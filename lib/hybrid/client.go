package hybrid

import (
	"github.com/lukechampine/fastxor"
	"golang.org/x/xerrors"

	"github.com/KoffeinFlummi/hybridpir/lib/cpir"
	"github.com/KoffeinFlummi/hybridpir/lib/itpir"
)

// Client drives one hybrid retrieval session: it owns the C-PIR secret
// key (so it, and only it, can decode a reply) and builds the per-server
// IT-PIR bitmap shares for a chosen record.
type Client struct {
	params Params
	cpir   *cpir.Client
}

// NewClient runs C-PIR setup (fresh secret key, Galois key) for a session
// configured by params.
func NewClient(params Params) (*Client, error) {
	c, err := cpir.NewClient(params.CPIR)
	if err != nil {
		return nil, xerrors.Errorf("hybrid: setting up cpir client: %w", err)
	}
	return &Client{params: params, cpir: c}, nil
}

// GaloisKey returns the encoded key every server must install before
// answering a query on this session.
func (c *Client) GaloisKey() []byte {
	return c.cpir.GetKey()
}

// Query is one client's full request for a single record: k IT-PIR
// bitmap shares (one per server) plus the single C-PIR column selector
// every server evaluates identically against its own copy of the matrix.
type Query struct {
	Bitmaps   [][]byte
	CPIRQuery []byte
}

// BuildQuery selects record by flat index, splitting it into a row and
// column and constructing the IT-PIR row shares and the C-PIR column
// selector.
func (c *Client) BuildQuery(recordIndex int) (*Query, error) {
	row, column, err := c.params.RowAndColumn(recordIndex)
	if err != nil {
		return nil, err
	}

	itQuery, err := itpir.NewQuery(c.params.ITPIR, row)
	if err != nil {
		return nil, xerrors.Errorf("hybrid: building row shares: %w", err)
	}

	cpirQuery, err := c.cpir.GenQuery(column)
	if err != nil {
		return nil, xerrors.Errorf("hybrid: building column selector: %w", err)
	}

	return &Query{Bitmaps: itQuery.Bitmaps, CPIRQuery: cpirQuery}, nil
}

// Combine decrypts each server's answer independently, then XORs the
// decoded plaintext rows together, recovering the selected record's
// bytes. Each answer is its own server's ciphertext over a different
// plaintext row contribution; they must be decoded before combining,
// since XOR over their raw ciphertext bytes carries no meaning. Answer
// order must match the bitmap order the query was issued with.
func (c *Client) Combine(answers [][]byte) ([]byte, error) {
	if len(answers) == 0 {
		return nil, xerrors.Errorf("hybrid: no answers to combine")
	}

	var record []byte
	for i, a := range answers {
		plain, err := c.cpir.DecodeReply(a)
		if err != nil {
			return nil, xerrors.Errorf("hybrid: decoding answer %d: %w", i, err)
		}
		if record == nil {
			record = make([]byte, len(plain))
		} else if len(plain) != len(record) {
			return nil, xerrors.Errorf("hybrid: decoded answer %d has length %d, want %d", i, len(plain), len(record))
		}
		fastxor.Bytes(record, record, plain)
	}
	return record, nil
}
