package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"SharpeSentinel/internal/collector"
	"SharpeSentinel/internal/config"
	"SharpeSentinel/internal/fund"
	"SharpeSentinel/internal/logger"
	"SharpeSentinel/internal/model"
	"SharpeSentinel/internal/notifier"
	"SharpeSentinel/internal/recorder"
	"SharpeSentinel/internal/runner"
	"SharpeSentinel/internal/scheduler"
	"SharpeSentinel/internal/server"
)

const (
	exitOK       = 0
	exitData     = 1
	exitBadUsage = 2
)

// newFetcher picks the upstream data source; replaced in tests.
var newFetcher = func(cfg *config.Config) collector.Fetcher {
	if cfg.DataSource.BaseURL != "" {
		return collector.NewVsTraderFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	}
	return collector.NewYahooFetcher(cfg.Proxy)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	chartPath  string
	serve      bool
}

// parseFlags loads the config file and applies explicitly set flags on top.
func parseFlags(args []string, stderr io.Writer) (*config.Config, options, error) {
	fs := flag.NewFlagSet("optimizer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	symbols := fs.String("symbols", strings.Join(config.DefaultSymbols, ","), "comma separated symbols")
	start := fs.String("start", "2011-01-01", "first day of the window (YYYY-MM-DD)")
	end := fs.String("end", "2011-12-31", "last day of the window (YYYY-MM-DD)")
	units := fs.Int("units", 10, "allocation grid resolution (weights step 1/units)")
	workers := fs.Int("workers", 1, "parallel search workers")
	padFirst := fs.Bool("pad-first-return", false, "keep a leading zero daily return")
	fs.StringVar(&opts.chartPath, "chart", "", "write the value chart of the best portfolio to this PNG")
	fs.StringVar(&opts.configPath, "config", envOr("CONFIG_PATH", "configs/config.yaml"), "config file")
	fs.BoolVar(&opts.serve, "serve", false, "run the scheduler, Telegram bot and HTTP API")
	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}
	if fs.NArg() > 0 {
		return nil, opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, opts, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "symbols":
			cfg.Symbols = config.ParseSymbols(*symbols)
		case "start":
			cfg.Start = *start
		case "end":
			cfg.End = *end
		case "units":
			cfg.Optimizer.Units = *units
		case "workers":
			cfg.Optimizer.Workers = *workers
		case "pad-first-return":
			cfg.Optimizer.PadFirstReturn = *padFirst
		}
	})

	if opts.serve {
		err = cfg.ValidateDaemon()
	} else {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, opts, fmt.Errorf("config validation: %w", err)
	}
	return cfg, opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitBadUsage
	}

	log := logger.NewWithWriter(cfg.LoggerConfig(), stderr)
	logger.SetGlobalLogger(log)

	if opts.serve {
		if err := serve(cfg, log); err != nil {
			log.Error().Err(err).Msg("daemon stopped with error")
			return exitData
		}
		return exitOK
	}

	start, _ := cfg.StartDate()
	end, _ := cfg.EndDate()
	fetcher := newFetcher(cfg)
	log.Info().Str("source", fetcher.Name()).Msg("data source selected")

	r := runner.New(collector.NewCollector(fetcher, log), cfg.Optimizer, log)
	rep, err := r.Run(context.Background(), cfg.Symbols, start, end)
	if err != nil {
		log.Error().Err(err).Msg("optimisation failed")
		if errors.Is(err, model.ErrInvalidArgument) {
			return exitBadUsage
		}
		return exitData
	}

	printReport(stdout, rep.Best)

	if opts.chartPath != "" {
		png, err := notifier.RenderAllocationChart(rep)
		if err == nil {
			err = os.WriteFile(opts.chartPath, png, 0o644)
		}
		if err != nil {
			log.Error().Err(err).Str("path", opts.chartPath).Msg("write chart")
			return exitData
		}
		log.Info().Str("path", opts.chartPath).Msg("chart written")
	}
	return exitOK
}

// printReport writes the five summary lines of the best result.
func printReport(w io.Writer, best *model.BestResult) {
	fmt.Fprintf(w, "Best Allocation : %s\n", formatAllocation(best.Allocation))
	fmt.Fprintf(w, "Best Sharpe     : %s\n", formatFloat(best.SharpeRatio))
	fmt.Fprintf(w, "Best Std Dev    : %s\n", formatFloat(best.Volatility))
	fmt.Fprintf(w, "Best Cum Returns: %s\n", formatFloat(best.CumulativeReturn))
	fmt.Fprintf(w, "Best Avg Daily  : %s\n", formatFloat(best.MeanDailyReturn))
}

func formatAllocation(a model.Allocation) string {
	parts := make([]string, len(a))
	for i, w := range a {
		parts[i] = strconv.FormatFloat(w, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}

// serve runs the scheduler, the Telegram bot and the HTTP API until SIGINT
// or SIGTERM.
func serve(cfg *config.Config, log zerolog.Logger) error {
	log.Info().Msg("SharpeSentinel starting")

	fetcher := newFetcher(cfg)
	log.Info().Str("source", fetcher.Name()).Msg("data source selected")
	r := runner.New(collector.NewCollector(fetcher, log), cfg.Optimizer, log)

	fm, err := fund.NewManager(cfg.Fund.StateFile, cfg.Fund.Capital, log)
	if err != nil {
		return fmt.Errorf("init fund manager: %w", err)
	}

	tn, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
	if err != nil {
		return fmt.Errorf("init telegram: %w", err)
	}

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start, _ := cfg.StartDate()
	end, _ := cfg.EndDate()
	job := scheduler.Job{
		Symbols:      cfg.Symbols,
		Start:        start,
		End:          end,
		LookbackDays: cfg.Schedule.LookbackDays,
	}
	sched := scheduler.NewScheduler(ctx, r, fm, tn, rec, job, log)
	if err := sched.RegisterAll(cfg.Schedule.OptimizeCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info().Msg("telegram polling started")

	srv := server.New(server.Config{
		Addr:      cfg.Server.Addr,
		Log:       log,
		Optimizer: sched,
		Recorder:  rec,
		Planner:   fm,
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, running optimisation now")
		go func() { _, _ = sched.RunOptimization(recorder.TriggerCron) }()
	}

	log.Info().Msg("SharpeSentinel is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info().Msg("shutdown signal received, stopping")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP shutdown")
	}
	log.Info().Msg("SharpeSentinel stopped")
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
