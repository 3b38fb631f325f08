// Package main is the entry point of the beacon node. It builds the chain
// config from the command line, starts the blockchain service and runs
// until interrupted.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/blockchain"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/db"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/flags"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/params"
	"github.com/prysmaticlabs/geth-sharding/shared/cmd"
	"github.com/prysmaticlabs/geth-sharding/shared/logutil"
	"github.com/prysmaticlabs/geth-sharding/shared/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "main")

var appFlags = []cli.Flag{
	cmd.DataDirFlag,
	cmd.VerbosityFlag,
	cmd.ChainConfigFileFlag,
	cmd.LogFormat,
	cmd.LogFileName,
	cmd.LogFileFormat,
	cmd.DisableMonitoringFlag,
	cmd.MonitoringPortFlag,
	flags.InMemoryFlag,
	flags.DemoValidatorsFlag,
}

func main() {
	app := cli.App{}
	app.Name = "beacon-chain"
	app.Usage = "this is a beacon chain implementation for Ethereum 2.0"
	app.Action = startNode
	app.Flags = appFlags

	app.Before = func(ctx *cli.Context) error {
		if err := logutil.ConfigureStdout(ctx.String(cmd.VerbosityFlag.Name), ctx.String(cmd.LogFormat.Name)); err != nil {
			return err
		}
		if logFileName := ctx.String(cmd.LogFileName.Name); logFileName != "" {
			if err := logutil.ConfigurePersistentLogging(logFileName, ctx.String(cmd.LogFileFormat.Name)); err != nil {
				log.WithError(err).Error("Failed to configure logging to disk.")
			}
		}
		runtime.GOMAXPROCS(runtime.NumCPU())
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func startNode(ctx *cli.Context) error {
	chainCfg, err := chainConfig(ctx)
	if err != nil {
		return err
	}
	dbCfg, err := dbConfig(ctx)
	if err != nil {
		return err
	}

	service, err := blockchain.NewChainService(ctx.Context, &blockchain.Config{
		ChainConfig: chainCfg,
		DB:          dbCfg,
	})
	if err != nil {
		return err
	}
	service.Start()
	if err := service.Status(); err != nil {
		return errors.Wrap(err, "could not start blockchain service")
	}
	if !ctx.Bool(cmd.DisableMonitoringFlag.Name) {
		monitoring := prometheus.NewPrometheusService(
			fmt.Sprintf(":%d", ctx.Int(cmd.MonitoringPortFlag.Name)),
			map[string]prometheus.StatusReporter{"blockchain": service},
		)
		monitoring.Start()
		defer func() {
			if err := monitoring.Stop(); err != nil {
				log.WithError(err).Error("Could not stop monitoring service")
			}
		}()
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)
	select {
	case <-sigc:
		log.Info("Got interrupt, shutting down...")
	case <-ctx.Context.Done():
	}
	return service.Stop()
}

// chainConfig loads the chain config file, or builds a demo config with
// generated validators.
func chainConfig(ctx *cli.Context) (*params.ChainConfig, error) {
	if file := ctx.String(cmd.ChainConfigFileFlag.Name); file != "" {
		cfg, err := params.LoadChainConfigFile(file)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"file":       file,
			"config":     cfg.ConfigName,
			"validators": len(cfg.InitialValidators),
		}).Info("Loaded chain config")
		return cfg, nil
	}
	n := ctx.Int(flags.DemoValidatorsFlag.Name)
	if n <= 0 {
		return nil, fmt.Errorf("either --%s or --%s is required", cmd.ChainConfigFileFlag.Name, flags.DemoValidatorsFlag.Name)
	}
	cfg := params.DemoConfig()
	cfg.InitialValidators = params.DemoValidators(n, cfg.ShardCount)
	log.WithField("validators", n).Warn("Running a demo chain with generated validators")
	return cfg, nil
}

func dbConfig(ctx *cli.Context) (*db.Config, error) {
	if ctx.Bool(flags.InMemoryFlag.Name) {
		return &db.Config{InMemory: true}, nil
	}
	dataDir := ctx.String(cmd.DataDirFlag.Name)
	if dataDir == "" {
		return nil, fmt.Errorf("no data directory, set --%s or --%s", cmd.DataDirFlag.Name, flags.InMemoryFlag.Name)
	}
	return &db.Config{DataDir: filepath.Join(dataDir, "beaconchaindata")}, nil
}
