package config

import (
	"flag"
	"fmt"
	"io"
)

const (
	CommandRun      = "run"
	CommandDecide   = "decide"
	CommandBacktest = "backtest"
	CommandSetup    = "setup"
)

// Command parsed command line.
type Command struct {
	Name       string
	ConfigPath string
	// Platform overrides the platform from the config file and resets the quote to
	// that platform's default.
	Platform string
	// Loop repeats backtests while the prompt keeps improving.
	Loop bool
	// JSON prints the decision as raw JSON instead of a card.
	JSON bool
	// Out file the setup wizard writes.
	Out string
}

// ParseArgs parses `trendsignal [run|decide|backtest|setup] [flags]`. The command
// defaults to run.
func ParseArgs(args []string, output io.Writer) (Command, error) {
	cmd := Command{Name: CommandRun}
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		cmd.Name = args[0]
		args = args[1:]
	}

	switch cmd.Name {
	case CommandRun, CommandDecide, CommandBacktest, CommandSetup:
	default:
		return Command{}, fmt.Errorf("unknown command %q, expected run, decide, backtest or setup", cmd.Name)
	}

	fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cmd.ConfigPath, "config", "", "path to yaml config")
	fs.StringVar(&cmd.Platform, "platform", "", "market data platform: coinbase, binance, bybit or hyperliquid")
	fs.BoolVar(&cmd.Loop, "loop", false, "backtest: repeat until target accuracy or no improvement")
	fs.BoolVar(&cmd.JSON, "json", false, "decide: print raw decision JSON")
	fs.StringVar(&cmd.Out, "out", "config.gen.yaml", "setup: output file")

	if err := fs.Parse(args); err != nil {
		return Command{}, err
	}
	if fs.NArg() > 0 {
		return Command{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return cmd, nil
}

// Resolve loads the config file and applies command line overrides.
func (c Command) Resolve() (Config, error) {
	cfg, err := Load(c.ConfigPath)
	if err != nil {
		return Config{}, err
	}
	if c.Platform == "" {
		return cfg, nil
	}

	tmp := ConfigTmp{Platform: c.Platform}
	override, err := FromTmp(tmp)
	if err != nil {
		return Config{}, err
	}
	cfg.Platform = override.Platform
	cfg.Quote = override.Quote
	return cfg, nil
}
