// Command hybridpir-bench drives the benchmark protocol envelope
// against a set of already-running bench servers, repeating a hybrid
// retrieval and reporting latency statistics: the query and reconstruct
// times of each repetition's Block, summarized with monitor.Summarize.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/KoffeinFlummi/hybridpir/lib/bench"
	"github.com/KoffeinFlummi/hybridpir/lib/cpir"
	"github.com/KoffeinFlummi/hybridpir/lib/hybrid"
	"github.com/KoffeinFlummi/hybridpir/lib/itpir"
	"github.com/KoffeinFlummi/hybridpir/lib/logging"
	"github.com/KoffeinFlummi/hybridpir/lib/monitor"
)

func main() {
	app := &cli.App{
		Name:  "hybridpir-bench",
		Usage: "drive or serve the optional benchmark protocol envelope",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "listen for benchmark envelope connections (any variant, reconfigurable per-connection)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Value: ":7100", Usage: "address to listen on"},
				},
				Action: serve,
			},
			{
				Name:  "run",
				Usage: "repeat a hybrid retrieval against bench servers and report latency statistics",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "server", Usage: "host:port of a hybridpir-bench serve instance, one per IT-PIR share", Required: true},
					&cli.IntFlag{Name: "rows", Value: 64, Usage: "IT-PIR row count R"},
					&cli.IntFlag{Name: "threshold", Usage: "IT-PIR collusion threshold t (defaults to NumServers)"},
					&cli.IntFlag{Name: "columns", Value: 16, Usage: "C-PIR column count C"},
					&cli.IntFlag{Name: "record-bytes", Value: 16, Usage: "record size in bytes"},
					&cli.IntFlag{Name: "repetitions", Value: 10, Usage: "number of repeated queries to time"},
					&cli.IntFlag{Name: "index", Value: 0, Usage: "flat record index to query every repetition"},
				},
				Action: run,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.Fatalf("%v", err)
	}
}

func serve(c *cli.Context) error {
	ln, err := net.Listen("tcp", c.String("listen"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("binding %s: %v", c.String("listen"), err), 1)
	}
	logging.Infof("benchmark envelope listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			logging.Errorf("accept: %v", err)
			continue
		}
		go func() {
			if err := bench.ServeConnection(conn); err != nil {
				logging.Errorf("connection: %v", err)
			}
		}()
	}
}

func run(c *cli.Context) error {
	addrs := c.StringSlice("server")
	numServers := len(addrs)
	if numServers < 2 {
		return cli.Exit("need at least 2 --server addresses", 1)
	}

	threshold := c.Int("threshold")
	if threshold == 0 {
		threshold = numServers
	}

	cp, err := cpir.NewParams(cpir.DefaultLiteral, c.Int("columns"), c.Int("record-bytes"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	params := hybrid.Params{
		ITPIR: itpir.Params{Rows: c.Int("rows"), NumServers: numServers, Threshold: threshold},
		CPIR:  cp,
	}

	conns := make([]net.Conn, numServers)
	for i, addr := range addrs {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return cli.Exit(fmt.Sprintf("dialing %s: %v", addr, err), 1)
		}
		defer conn.Close()

		codec := bench.NewCodec()
		setupErr := bench.Setup(codec, conn, bench.SetupParams{
			Variant:     bench.VariantHybrid,
			Rows:        params.ITPIR.Rows,
			NumServers:  numServers,
			Threshold:   threshold,
			Columns:     params.CPIR.Columns,
			RecordBytes: params.CPIR.RecordBytes,
		})
		if setupErr != nil {
			return cli.Exit(fmt.Sprintf("setting up %s: %v", addr, setupErr), 1)
		}
		conns[i] = conn
	}

	client, err := hybrid.NewClient(params)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	index := c.Int("index")
	reps := c.Int("repetitions")

	queryTimes := make([]float64, 0, reps)
	reconstructTimes := make([]float64, 0, reps)

	for i := 0; i < reps; i++ {
		_, block, err := bench.RunHybrid(conns, client, index)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		queryTimes = append(queryTimes, block.Query)
		reconstructTimes = append(reconstructTimes, block.Reconstruct)
	}

	querySummary, err := monitor.Summarize(queryTimes)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	reconstructSummary, err := monitor.Summarize(reconstructTimes)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Printf("query:       mean=%.3fms median=%.3fms p95=%.3fms\n", querySummary.Mean, querySummary.Median, querySummary.P95)
	fmt.Printf("reconstruct: mean=%.3fms median=%.3fms p95=%.3fms\n", reconstructSummary.Mean, reconstructSummary.Median, reconstructSummary.P95)
	return nil
}
