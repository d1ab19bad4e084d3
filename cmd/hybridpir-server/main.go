// Command hybridpir-server runs one physical server of a hybrid PIR
// deployment: it holds its own copy of the record matrix, answers
// exactly one query per TCP connection, and exits non-zero on a bind or
// configuration failure.
package main

import (
	"fmt"
	"math/rand"
	"net"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/KoffeinFlummi/hybridpir/lib/config"
	"github.com/KoffeinFlummi/hybridpir/lib/database"
	"github.com/KoffeinFlummi/hybridpir/lib/hybrid"
	"github.com/KoffeinFlummi/hybridpir/lib/logging"
)

// basePort is the listen port for server id 0; server id occupies
// basePort+id.
const basePort = 7000

// dbSeed reproduces a deterministic synthetic database at start-up when
// no external data source is configured.
const dbSeed = 1234

func main() {
	app := &cli.App{
		Name:      "hybridpir-server",
		Usage:     "run one server of a hybrid PIR deployment",
		ArgsUsage: "id",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "TOML scheme-parameters file", Required: true},
			&cli.IntFlag{Name: "records", Usage: "number of records N in the synthetic database", Required: true},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logging.Fatalf("%v", err)
	}
}

func run(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("expected exactly one positional argument: id", 1)
	}
	id, err := strconv.Atoi(c.Args().Get(0))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid id: %v", err), 1)
	}

	sp, err := config.LoadSchemeParams(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if id < 0 || id >= sp.NumServers {
		return cli.Exit(fmt.Sprintf("id %d out of range [0, %d)", id, sp.NumServers), 1)
	}

	records := syntheticRecords(c.Int("records"), sp.RecordBytes)
	matrix, columns, err := database.Fold(records, sp.Rows, sp.RecordBytes)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	sp.Columns = columns

	params, err := sp.HybridParams()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	server, err := hybrid.NewServer(params, matrix)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	addr := fmt.Sprintf(":%d", basePort+id)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return cli.Exit(fmt.Sprintf("binding %s: %v", addr, err), 1)
	}
	logging.Infof("server %d listening on %s (%d records folded into %dx%d matrix)", id, addr, len(records), sp.Rows, columns)

	for {
		conn, err := ln.Accept()
		if err != nil {
			logging.Errorf("accept: %v", err)
			continue
		}
		go func() {
			if err := hybrid.ServeConnection(conn, server); err != nil {
				logging.Errorf("connection: %v", err)
			}
		}()
	}
}

func syntheticRecords(n, recordBytes int) [][]byte {
	prng := rand.New(rand.NewSource(dbSeed))
	records := make([][]byte, n)
	for i := range records {
		buf := make([]byte, recordBytes)
		_, _ = prng.Read(buf)
		records[i] = buf
	}
	return records
}
