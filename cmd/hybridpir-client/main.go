// Command hybridpir-client runs one hybrid PIR retrieval against a fixed
// set of servers, taking a positional list of host:port (one per
// server) and a target record index.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/KoffeinFlummi/hybridpir/lib/config"
	"github.com/KoffeinFlummi/hybridpir/lib/hybrid"
	"github.com/KoffeinFlummi/hybridpir/lib/logging"
	"github.com/KoffeinFlummi/hybridpir/lib/pool"
)

func main() {
	app := &cli.App{
		Name:      "hybridpir-client",
		Usage:     "fetch one record from a hybrid PIR deployment",
		ArgsUsage: "host:port [host:port ...] index",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "TOML scheme-parameters file"},
			&cli.StringFlag{Name: "targets", Usage: "YAML server-target file (overrides positional host:port args)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logging.Fatalf("%v", err)
	}
}

func run(c *cli.Context) error {
	if c.String("config") == "" {
		return cli.Exit("missing required --config", 1)
	}
	sp, err := config.LoadSchemeParams(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	params, err := sp.HybridParams()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	addrs, index, err := addressesAndIndex(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	client, err := hybrid.NewClient(params)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	query, err := client.BuildQuery(index)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	p, err := pool.New(addrs)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	answers, err := p.Run(query, client.GaloisKey())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	record, err := client.Combine(answers)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Printf("%x\n", record)
	return nil
}

func addressesAndIndex(c *cli.Context) ([]string, int, error) {
	if targetFile := c.String("targets"); targetFile != "" {
		targets, err := config.LoadTargets(targetFile)
		if err != nil {
			return nil, 0, err
		}
		if c.Args().Len() != 1 {
			return nil, 0, cli.Exit("expected exactly one positional argument: index", 1)
		}
		index, err := strconv.Atoi(c.Args().Get(0))
		if err != nil {
			return nil, 0, cli.Exit(fmt.Sprintf("invalid index: %v", err), 1)
		}
		return targets.Servers, index, nil
	}

	args := c.Args().Slice()
	if len(args) < 3 {
		return nil, 0, cli.Exit("expected at least 2 host:port arguments and a target index", 1)
	}
	index, err := strconv.Atoi(args[len(args)-1])
	if err != nil {
		return nil, 0, cli.Exit(fmt.Sprintf("invalid index: %v", err), 1)
	}
	return args[:len(args)-1], index, nil
}
