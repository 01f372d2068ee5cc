// ocv2: Streaming calldata validator for Kiln on-chain v2 staking
// Copyright 2024 ocv2 Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/golang/snappy"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// config is the set of defaults that may be stored in a YAML file. Command line
// flags take precedence over anything loaded.
type config struct {
	Verbosity int  `yaml:"verbosity"`
	Snappy    bool `yaml:"snappy"`
	Trace     bool `yaml:"trace"`
}

var defaultConfig = config{
	Verbosity: 3,
}

// loadConfig assembles the settings from the defaults, the optional config file
// and the explicitly set flags, in that order.
func loadConfig(ctx *cli.Context) (*config, error) {
	cfg := defaultConfig

	if path := ctx.String(configFlag.Name); path != "" {
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(blob))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	if ctx.IsSet(snappyFlag.Name) {
		cfg.Snappy = ctx.Bool(snappyFlag.Name)
	}
	if ctx.IsSet(traceFlag.Name) {
		cfg.Trace = ctx.Bool(traceFlag.Name)
	}
	return &cfg, nil
}

// readCalldata retrieves the calldata from the --data flag, the file argument
// or stdin, in that order.
func readCalldata(ctx *cli.Context, cfg *config) ([]byte, error) {
	if ctx.IsSet(dataFlag.Name) {
		return parseHex(ctx.String(dataFlag.Name))
	}
	var (
		blob []byte
		err  error
	)
	if path := ctx.Args().First(); path != "" {
		blob, err = os.ReadFile(path)
	} else {
		blob, err = io.ReadAll(ctx.App.Reader)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read calldata: %w", err)
	}
	if cfg.Snappy {
		calldata, err := snappy.Decode(nil, blob)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress calldata: %w", err)
		}
		return calldata, nil
	}
	return parseHex(string(blob))
}

// parseHex decodes hex calldata, tolerating a missing 0x prefix and whitespace.
func parseHex(input string) ([]byte, error) {
	input = strings.Join(strings.Fields(input), "")
	if !strings.HasPrefix(input, "0x") && !strings.HasPrefix(input, "0X") {
		input = "0x" + input
	}
	calldata, err := hexutil.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("invalid hex calldata: %w", err)
	}
	return calldata, nil
}
