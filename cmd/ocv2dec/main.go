// ocv2: Streaming calldata validator for Kiln on-chain v2 staking
// Copyright 2024 ocv2 Authors
// SPDX-License-Identifier: BSD-3-Clause

// ocv2dec validates the calldata of a Kiln on-chain v2 staking call the same
// way a signing device would, streaming it word by word into the decoders.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/kilnfi/ocv2"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

var (
	dataFlag = &cli.StringFlag{
		Name:  "data",
		Usage: "Hex encoded calldata to validate (selector included)",
	}
	snappyFlag = &cli.BoolFlag{
		Name:  "snappy",
		Usage: "Input file holds snappy compressed raw calldata instead of hex",
	}
	traceFlag = &cli.BoolFlag{
		Name:  "trace",
		Usage: "Print the verdict on every argument word",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: defaultConfig.Verbosity,
	}
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML file with default settings",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:      "ocv2dec",
		Usage:     "validate Kiln on-chain v2 staking calldata",
		ArgsUsage: "[file]",
		Flags:     []cli.Flag{dataFlag, snappyFlag, traceFlag, verbosityFlag, configFlag},
		Action:    validate,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func validate(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	setupLogging(ctx.App.ErrWriter, cfg.Verbosity)

	calldata, err := readCalldata(ctx, cfg)
	if err != nil {
		return err
	}
	dec, err := decode(ctx.App.Writer, calldata, cfg.Trace)
	if err != nil {
		return err
	}
	printFields(ctx.App.Writer, dec)
	return nil
}

// setupLogging installs a terminal logger on w, coloured if w is a terminal.
func setupLogging(w io.Writer, verbosity int) {
	var usecolor bool
	if f, ok := w.(*os.File); ok {
		usecolor = isatty.IsTerminal(f.Fd()) && os.Getenv("TERM") != "dumb"
	}
	handler := log.NewTerminalHandlerWithLevel(w, log.FromLegacyLevel(verbosity), usecolor)
	log.SetDefault(log.NewLogger(handler))
}

// decode streams the calldata into a decoder one word at a time, the way the
// signing host delivers it, optionally printing the verdict on every word.
func decode(w io.Writer, calldata []byte, trace bool) (*ocv2.Decoder, error) {
	var tracer ocv2.TraceFunc
	if trace {
		tracer = func(offset uint32, word *[ocv2.WordSize]byte, outcome ocv2.Outcome) {
			fmt.Fprintf(w, "[%4d] %x %s\n", ocv2.SelectorSize+offset, word[:], outcome)
		}
	}
	dec, err := ocv2.DecodeFromBytesTraced(calldata, tracer)
	if err != nil {
		return dec, fmt.Errorf("invalid calldata: %w", err)
	}
	log.Info("Validated calldata", "function", dec.Function(), "words", (len(calldata)-ocv2.SelectorSize)/ocv2.WordSize)
	return dec, nil
}

// printFields writes the extracted display fields of a decoded call.
func printFields(w io.Writer, dec *ocv2.Decoder) {
	fields := dec.Fields()

	fmt.Fprintf(w, "function:      %s\n", dec.Function().Signature())
	switch dec.Function() {
	case ocv2.FunctionRequestExit:
		fmt.Fprintf(w, "amount:        %s\n", fields.Amount.Dec())
	case ocv2.FunctionClaim:
		fmt.Fprintf(w, "ticketIds:     %d\n", fields.TicketIDs)
		fmt.Fprintf(w, "caskIds:       %d\n", fields.CaskIDs)
		fmt.Fprintf(w, "maxClaimDepth: %d\n", fields.MaxClaimDepth)
	case ocv2.FunctionMultiClaim:
		fmt.Fprintf(w, "exitQueues:    %d\n", fields.ExitQueues)
		fmt.Fprintf(w, "ticketIds:     %d groups\n", fields.TicketIDs)
		fmt.Fprintf(w, "caskIds:       %d groups\n", fields.CaskIDs)
	}
}
