package main

import (
	"flag"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/prysmaticlabs/geth-sharding/beacon-chain/flags"
	"github.com/prysmaticlabs/geth-sharding/shared/cmd"
	"github.com/prysmaticlabs/geth-sharding/shared/testutil/assert"
	"github.com/prysmaticlabs/geth-sharding/shared/testutil/require"
	"github.com/urfave/cli/v2"
)

func TestAllFlagsExistInHelp(t *testing.T) {
	var helpFlags []cli.Flag
	for _, group := range appHelpFlagGroups {
		helpFlags = append(helpFlags, group.Flags...)
	}
	for _, f := range appFlags {
		found := false
		for _, h := range helpFlags {
			if h.Names()[0] == f.Names()[0] {
				found = true
				break
			}
		}
		assert.Equal(t, true, found, "flag %s is not in a help group", f.Names()[0])
	}
}

func TestChainConfig_DemoValidators(t *testing.T) {
	app := cli.App{}
	set := flag.NewFlagSet("test", 0)
	set.Int(flags.DemoValidatorsFlag.Name, 8, "")
	ctx := cli.NewContext(&app, set, nil)

	cfg, err := chainConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.ConfigName)
	assert.Equal(t, 8, len(cfg.InitialValidators))
}

func TestChainConfig_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, ioutil.WriteFile(file, []byte("PRESET_BASE: demo\nCYCLE_LENGTH: 8\n"), 0600))

	app := cli.App{}
	set := flag.NewFlagSet("test", 0)
	set.String(cmd.ChainConfigFileFlag.Name, file, "")
	set.Int(flags.DemoValidatorsFlag.Name, 8, "")
	ctx := cli.NewContext(&app, set, nil)

	cfg, err := chainConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), cfg.CycleLength)
	assert.Equal(t, 0, len(cfg.InitialValidators), "the config file takes precedence")
}

func TestChainConfig_Missing(t *testing.T) {
	app := cli.App{}
	set := flag.NewFlagSet("test", 0)
	ctx := cli.NewContext(&app, set, nil)

	_, err := chainConfig(ctx)
	assert.ErrorContains(t, "either --chain-config-file or --demo-validators is required", err)
}

func TestDBConfig(t *testing.T) {
	app := cli.App{}
	set := flag.NewFlagSet("test", 0)
	set.Bool(flags.InMemoryFlag.Name, true, "")
	cfg, err := dbConfig(cli.NewContext(&app, set, nil))
	require.NoError(t, err)
	assert.Equal(t, true, cfg.InMemory)

	dir := t.TempDir()
	set = flag.NewFlagSet("test", 0)
	set.String(cmd.DataDirFlag.Name, dir, "")
	cfg, err = dbConfig(cli.NewContext(&app, set, nil))
	require.NoError(t, err)
	assert.Equal(t, false, cfg.InMemory)
	assert.Equal(t, filepath.Join(dir, "beaconchaindata"), cfg.DataDir)

	set = flag.NewFlagSet("test", 0)
	set.String(cmd.DataDirFlag.Name, "", "")
	_, err = dbConfig(cli.NewContext(&app, set, nil))
	assert.ErrorContains(t, "no data directory", err)
}
