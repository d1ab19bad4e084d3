// Package bridge is the mobile/host bridge: the single surface a
// gomobile binding exposes to an Android or iOS host, taking and
// returning only primitive types so the generated JNI/Objective-C glue
// never has to marshal a Go struct across the language boundary. Every
// configuration field of a query is flattened into scalar function
// arguments before crossing into native code.
package bridge

import (
	"strings"

	"golang.org/x/xerrors"

	"github.com/KoffeinFlummi/hybridpir/lib/cpir"
	"github.com/KoffeinFlummi/hybridpir/lib/hybrid"
	"github.com/KoffeinFlummi/hybridpir/lib/itpir"
	"github.com/KoffeinFlummi/hybridpir/lib/pool"
)

// FetchRecord runs one complete hybrid retrieval and returns the
// recovered record's bytes. addresses is a comma-separated list of
// "host:port" server addresses, in the same order the IT-PIR row shares
// must be dispatched in. rows/numServers/threshold configure the IT-PIR
// side; columns/recordBytes configure the C-PIR side; recordIndex is the
// flat index (0..rows*columns) of the record to retrieve.
func FetchRecord(addresses string, rows, numServers, threshold, columns, recordBytes, recordIndex int) ([]byte, error) {
	addrList := splitAddresses(addresses)

	cpirParams, err := cpir.NewParams(cpir.DefaultLiteral, columns, recordBytes)
	if err != nil {
		return nil, xerrors.Errorf("bridge: building cpir params: %w", err)
	}
	params := hybrid.Params{
		ITPIR: itpir.Params{Rows: rows, NumServers: numServers, Threshold: threshold},
		CPIR:  cpirParams,
	}

	client, err := hybrid.NewClient(params)
	if err != nil {
		return nil, xerrors.Errorf("bridge: setting up client: %w", err)
	}

	query, err := client.BuildQuery(recordIndex)
	if err != nil {
		return nil, xerrors.Errorf("bridge: building query: %w", err)
	}

	p, err := pool.New(addrList)
	if err != nil {
		return nil, xerrors.Errorf("bridge: building server pool: %w", err)
	}

	answers, err := p.Run(query, client.GaloisKey())
	if err != nil {
		return nil, xerrors.Errorf("bridge: running query: %w", err)
	}

	record, err := client.Combine(answers)
	if err != nil {
		return nil, xerrors.Errorf("bridge: combining answers: %w", err)
	}
	return record, nil
}

func splitAddresses(addresses string) []string {
	parts := strings.Split(addresses, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
