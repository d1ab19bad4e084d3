// Package config loads the two configuration files a hybrid deployment
// needs: a TOML scheme-parameters file describing the matrix shape and
// record size, and a YAML server-target file listing the addresses a
// client's pool dials. The split keeps per-run scheme config separate
// from anything describing where servers live; the YAML side is loaded
// with a plain os.ReadFile + yaml.Unmarshal.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"

	"github.com/KoffeinFlummi/hybridpir/lib/cpir"
	"github.com/KoffeinFlummi/hybridpir/lib/hybrid"
	"github.com/KoffeinFlummi/hybridpir/lib/itpir"
)

// SchemeParams is the TOML shape of a scheme-parameters file: the IT-PIR
// matrix dimensions and fault tolerance, plus the C-PIR column count and
// record size. HE parameters themselves are not exposed here; every
// deployment in a session uses cpir.DefaultLiteral, naming a primitive
// and its shape in config while leaving cryptographic constants to the
// code.
type SchemeParams struct {
	Rows        int
	NumServers  int
	Threshold   int
	Columns     int
	RecordBytes int
}

// LoadSchemeParams reads and decodes a scheme-parameters TOML file.
func LoadSchemeParams(path string) (*SchemeParams, error) {
	sp := new(SchemeParams)
	if _, err := toml.DecodeFile(path, sp); err != nil {
		return nil, xerrors.Errorf("config: decoding scheme params %s: %w", path, err)
	}
	return sp, nil
}

// HybridParams builds the hybrid.Params a client or server needs from a
// decoded SchemeParams, using cpir.DefaultLiteral for the HE side.
func (sp *SchemeParams) HybridParams() (hybrid.Params, error) {
	cp, err := cpir.NewParams(cpir.DefaultLiteral, sp.Columns, sp.RecordBytes)
	if err != nil {
		return hybrid.Params{}, xerrors.Errorf("config: building cpir params: %w", err)
	}
	return hybrid.Params{
		ITPIR: itpir.Params{
			Rows:       sp.Rows,
			NumServers: sp.NumServers,
			Threshold:  sp.Threshold,
		},
		CPIR: cp,
	}, nil
}

// Targets is the YAML shape of a server-target file: the ordered list of
// "host:port" addresses a client's pool dials, one per IT-PIR bitmap
// share position.
type Targets struct {
	Servers []string `yaml:"servers"`
}

// LoadTargets reads and decodes a server-target YAML file.
func LoadTargets(path string) (*Targets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("config: reading targets %s: %w", path, err)
	}

	targets := new(Targets)
	if err := yaml.Unmarshal(data, targets); err != nil {
		return nil, xerrors.Errorf("config: parsing targets %s: %w", path, err)
	}
	if len(targets.Servers) == 0 {
		return nil, xerrors.Errorf("config: %s lists no servers", path)
	}
	return targets, nil
}
