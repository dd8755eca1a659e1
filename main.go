package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"px/pkg/cli"
	"px/pkg/common"
	"px/pkg/config"
	"px/pkg/display"
	"px/pkg/index"
	"px/pkg/pip"
	"px/pkg/venv"
)

func main() {
	res, err := PxEngine(context.Background(), os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(common.ExitError)
	}
	os.Exit(res.ExitCode)
}

func PxEngine(ctx context.Context, args []string) (*common.ExecutionResult, error) {
	engine := cli.NewEngine("px", os.Stdout, cli.Commands())

	// 1. Parse command line arguments
	inv, err := engine.Parse(args)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		// help was printed
		return common.Ok(), nil
	}

	// 2. Initialize console and verbosity
	disp := display.NewConsole()
	if inv.Verbose {
		disp.SetVerbose(true)
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// 3. Wire managers
	cfg, err := config.Init()
	if err != nil {
		return nil, fmt.Errorf("error initializing config: %w", err)
	}

	managers := &cli.Managers{
		Cfg:   cfg,
		Disp:  disp,
		Venvs: venv.NewContainer(cfg.GetVenvsDir()),
		Pip:   pip.NewRunner(cfg.GetLogDir()),
		Index: index.NewClient(cfg.GetIndexURL()),
	}

	// 4. Execute
	res, err := inv.Command.Run(ctx, managers, inv)
	if err != nil {
		return nil, err
	}
	if res.Output != nil {
		disp.RenderOutput(res.Output)
	}
	return res, nil
}
