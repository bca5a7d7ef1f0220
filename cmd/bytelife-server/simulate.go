package main

import (
	"context"
	"fmt"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/config"
	"github.com/MRamiBalles/ByteLife/internal/domain/company"
	"github.com/MRamiBalles/ByteLife/internal/domain/employee"
	"github.com/MRamiBalles/ByteLife/internal/domain/resource"
	"github.com/MRamiBalles/ByteLife/internal/engine"
	"github.com/MRamiBalles/ByteLife/internal/events"
	"github.com/MRamiBalles/ByteLife/internal/platform/clock"
	"github.com/MRamiBalles/ByteLife/internal/platform/metrics"
	"github.com/spf13/cobra"
)

var simulateCommand = &cobra.Command{
	Use:   "simulate",
	Short: "Settle scripted players offline and print economy and tuning results",
	Long: `Registers scripted players in memory, gives each a company, an employee, a job and a skill download,
then runs the requested number of ticks on a fake clock. Nothing is persisted.`,
	RunE: runSimulate,
}

var (
	simPlayers  int
	simTicks    int
	simCurrency int64
)

func init() {
	simulateCommand.Flags().IntVar(&simPlayers, "players", 100, "Number of scripted players")
	simulateCommand.Flags().IntVar(&simTicks, "ticks", 288, "Ticks to settle (288 is one in-game day)")
	simulateCommand.Flags().Int64Var(&simCurrency, "currency", 2500, "Starting currency per player")
	rootCmd.AddCommand(simulateCommand)
}

// simResult totals a simulation run.
type simResult struct {
	Setups     int
	Rejections int
	Reports    int
	Net        int64
	JobPayout  int64
	Shortfall  int64
	Levels     int
	Faults     int
	Elapsed    time.Duration
}

func simulate(ctx context.Context, cfg *config.Config, players, ticks int, currency int64, m *metrics.Collector) (simResult, error) {
	start := resource.DefaultState()
	start.Currency = currency
	fc := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	eng := engine.NewEngine(events.NewEventLog(nil, events.WithCapacity(cfg.EventLogCapacity)), newLogger(cfg), engine.Options{
		Workers:     cfg.SettlementWorkers,
		MaxSessions: players,
		Clock:       fc,
		Metrics:     m,
		StartPool:   &start,
	})

	var res simResult
	for i := 0; i < players; i++ {
		id := fmt.Sprintf("sim-%04d", i)
		if _, err := eng.Register(id, id); err != nil {
			return res, err
		}
		steps := []func() error{
			func() error {
				c, err := eng.CreateCompany(id, "Company "+id, company.TierSmall)
				if err != nil {
					return err
				}
				_, err = eng.HireAI(id, c.ID, "Bot", employee.TierCommon)
				return err
			},
			func() error { _, err := eng.StartJob(id, "data-entry"); return err },
			func() error { _, err := eng.PurchaseSkill(id, "web-dev"); return err },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				res.Rejections++
				continue
			}
			res.Setups++
		}
	}

	began := time.Now()
	for i := 0; i < ticks; i++ {
		fc.Advance(engine.TickSeconds * time.Second)
		eng.AdvanceDownloads(engine.TickSeconds * time.Second)
		reports, err := eng.OnTick(ctx)
		if err != nil {
			return res, err
		}
		for _, r := range reports {
			res.Reports++
			res.Net += r.CurrencyAfter - r.CurrencyBefore
			res.JobPayout += r.JobPayout
			res.Shortfall += r.Shortfall
			res.Levels += r.LevelsGained
			res.Faults += len(r.Faults)
		}
	}
	res.Elapsed = time.Since(began)
	return res, nil
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.LogLevel = "error"
	m := metrics.New()

	res, err := simulate(cmd.Context(), cfg, simPlayers, simTicks, simCurrency, m)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "players=%d ticks=%d elapsed=%s\n", simPlayers, simTicks, res.Elapsed)
	fmt.Fprintf(out, "setup actions: %d ok, %d rejected\n", res.Setups, res.Rejections)
	fmt.Fprintf(out, "reports=%d net=%d job_payout=%d shortfall=%d levels=%d faults=%d\n",
		res.Reports, res.Net, res.JobPayout, res.Shortfall, res.Levels, res.Faults)

	rec := config.Analyze(m.Snapshot())
	for _, note := range rec.Notes {
		fmt.Fprintf(out, "tuning: %s\n", note)
	}
	if len(rec.Notes) == 0 {
		fmt.Fprintln(out, "tuning: current profile is sufficient")
	}
	return nil
}
