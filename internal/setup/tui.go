package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/trendsignal/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

const title = "TRENDSIGNAL CONFIG WIZARD"

// answers raw wizard input.
type answers struct {
	platform       string
	interval       string
	margin         string
	webAddr        string
	llmEnabled     bool
	apiURL         string
	apiKey         string
	model          string
	backtestMode   string
	window         string
	candles        string
	targetAccuracy string
	historyDB      string
}

func defaultAnswers() answers {
	return answers{
		platform:       config.PlatformCoinbase,
		interval:       "1h",
		margin:         "0.003",
		apiURL:         "https://api.openai.com/v1/chat/completions",
		model:          "o1-mini",
		backtestMode:   config.BacktestModeEngine,
		window:         "24",
		candles:        "96",
		targetAccuracy: "0.7",
		historyDB:      "backtest_runs.db",
	}
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	a := defaultAnswers()
	confirm := false

	step := func(name string) {
		fmt.Print("\033[H\033[2J") // clear screen
		fmt.Println(headerStyle.Render(title))
		fmt.Println(stepStyle.Render(name))
	}

	step("STEP 1: MARKET DATA")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("ETH, BTC and SOL candles are read from this platform.\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Exchange Platform").
				Options(
					huh.NewOption("Coinbase", config.PlatformCoinbase),
					huh.NewOption("Binance", config.PlatformBinance),
					huh.NewOption("Bybit", config.PlatformBybit),
					huh.NewOption("Hyperliquid", config.PlatformHyperliquid),
				).
				Value(&a.platform),
			huh.NewInput().
				Title("Candle Interval").
				Description("e.g. 1h, 4h, 1d").
				Value(&a.interval),
			huh.NewInput().
				Title("Trend Margin").
				Description("Minimum relative move per period (0.003 = 0.3%)").
				Value(&a.margin).
				Validate(validateMargin),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 2: LLM ADVISOR")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Ask an LLM alongside the trend engine?").
				Value(&a.llmEnabled),
		),
	).Run()
	if err != nil {
		return err
	}

	if a.llmEnabled {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("LLM API URL").
					Value(&a.apiURL),
				huh.NewInput().
					Title("LLM API Key").
					Description("Leave empty to read LLM_API_KEY or OPENAI_API_KEY").
					Value(&a.apiKey).
					EchoMode(huh.EchoModePassword),
				huh.NewInput().
					Title("Model Name").
					Value(&a.model),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	step("STEP 3: BACKTEST")
	modeOptions := []huh.Option[string]{huh.NewOption("Trend engine", config.BacktestModeEngine)}
	if a.llmEnabled {
		modeOptions = append(modeOptions, huh.NewOption("LLM with prompt improvement", config.BacktestModeLLM))
	}
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What should backtests score?").
				Options(modeOptions...).
				Value(&a.backtestMode),
			huh.NewInput().
				Title("Window").
				Description("Candles per prediction (min 3)").
				Value(&a.window).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("History").
				Description("Candles fetched per asset").
				Value(&a.candles).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Target Accuracy").
				Description("Stop improving the prompt once reached (0-1)").
				Value(&a.targetAccuracy),
			huh.NewInput().
				Title("Run History DB").
				Description("SQLite file, empty keeps history in memory").
				Value(&a.historyDB),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 4: WEB")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen Address").
				Description("e.g. :8080, empty disables the web server").
				Value(&a.webAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	tmp, err := a.configTmp()
	if err != nil {
		return err
	}

	step("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Platform: %s\nInterval: %s\nMargin: %s\nLLM: %t\nBacktest: %s\n",
		tmp.Platform, tmp.Interval, tmp.MarginStr, tmp.LLM.Enabled, tmp.Backtest.Mode,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := writeConfig(path, tmp); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", path)))
	return nil
}

// configTmp converts the answers and validates them the same way Load does.
func (a answers) configTmp() (config.ConfigTmp, error) {
	tmp := config.ConfigTmp{
		Platform:  a.platform,
		Interval:  strings.TrimSpace(a.interval),
		MarginStr: strings.TrimSpace(a.margin),
		WebAddr:   strings.TrimSpace(a.webAddr),
		Backtest: config.BacktestTmp{
			Mode:              a.backtestMode,
			WindowStr:         strings.TrimSpace(a.window),
			CandlesStr:        strings.TrimSpace(a.candles),
			TargetAccuracyStr: strings.TrimSpace(a.targetAccuracy),
			HistoryDB:         strings.TrimSpace(a.historyDB),
		},
	}
	if a.llmEnabled {
		tmp.LLM = config.LLMTmp{
			Enabled: true,
			APIURL:  strings.TrimSpace(a.apiURL),
			APIKey:  strings.TrimSpace(a.apiKey),
			Model:   strings.TrimSpace(a.model),
		}
	}

	if _, err := config.FromTmp(tmp); err != nil {
		return config.ConfigTmp{}, err
	}
	return tmp, nil
}

func writeConfig(path string, tmp config.ConfigTmp) error {
	data, err := yaml.Marshal(tmp)
	if err != nil {
		return errors.Wrap(err, "failed to generate yaml")
	}
	// the file may hold an API key
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to save config file")
	}
	return nil
}

func validateMargin(s string) error {
	_, err := config.FromTmp(config.ConfigTmp{MarginStr: strings.TrimSpace(s)})
	return err
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}
