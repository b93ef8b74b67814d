package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"SharpeSentinel/internal/fund"
	"SharpeSentinel/internal/model"
	"SharpeSentinel/internal/notifier"
	"SharpeSentinel/internal/recorder"
)

// Optimizer produces a report for a symbol set and date window.
type Optimizer interface {
	Run(ctx context.Context, symbols []string, start, end time.Time) (*model.Report, error)
}

// Job describes what a scheduled run optimises.
type Job struct {
	Symbols []string
	Start   time.Time
	End     time.Time
	// LookbackDays, when positive, replaces Start/End with a window ending
	// today.
	LookbackDays int
}

// Window returns the date range to optimise over at now.
func (j Job) Window(now time.Time) (start, end time.Time) {
	if j.LookbackDays > 0 {
		y, m, d := now.UTC().Date()
		end = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return end.AddDate(0, 0, -j.LookbackDays), end
	}
	return j.Start, j.End
}

// Scheduler manages cron tasks and bot commands.
type Scheduler struct {
	Cron      *cron.Cron
	Optimizer Optimizer
	Fund      *fund.Manager
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	Job       Job
	Ctx       context.Context
	log       zerolog.Logger
	now       func() time.Time
	weights   func(symbols []string, alloc model.Allocation) ([]byte, error)
}

// NewScheduler creates a new Scheduler. tn may be nil when no notifications
// are wanted.
func NewScheduler(ctx context.Context, opt Optimizer, fm *fund.Manager, tn notifier.Notifier, rec recorder.Recorder, job Job, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Optimizer: opt,
		Fund:      fm,
		Notifier:  tn,
		Recorder:  rec,
		Job:       job,
		Ctx:       ctx,
		log:       log.With().Str("component", "scheduler").Logger(),
		now:       time.Now,
		weights:   notifier.RenderWeightsChart,
	}
}

func (s *Scheduler) sendWeights() {
	state := s.Fund.GetState()
	png, err := s.weights(state.Symbols, state.Allocation)
	if err != nil {
		s.log.Warn().Err(err).Msg("render weights chart")
		return
	}
	if err := s.Notifier.SendPhoto("weights.png", png, ""); err != nil {
		s.log.Error().Err(err).Msg("send weights chart")
	}
}

// RegisterAll registers the optimisation task.
func (s *Scheduler) RegisterAll(optimizeCron string) error {
	if _, err := s.Cron.AddFunc(optimizeCron, s.optimizeTask); err != nil {
		return fmt.Errorf("register optimize task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) optimizeTask() {
	if _, err := s.RunOptimization(recorder.TriggerCron); err != nil {
		s.log.Error().Err(err).Msg("scheduled optimisation failed")
	}
}

// RunOptimization runs the search over the job window, records the run,
// updates the allocation state and sends the report with its chart.
func (s *Scheduler) RunOptimization(trigger string) (*model.Report, error) {
	start, end := s.Job.Window(s.now())
	s.log.Info().Str("trigger", trigger).Strs("symbols", s.Job.Symbols).
		Str("start", start.Format("2006-01-02")).Str("end", end.Format("2006-01-02")).
		Msg("running optimisation")

	rep, err := s.Optimizer.Run(s.Ctx, s.Job.Symbols, start, end)
	if err != nil {
		s.trySend(notifier.FormatError("Optimisation failed", err))
		return nil, err
	}

	if err := s.Recorder.RecordRun(recorder.NewRunRecord(rep, trigger)); err != nil {
		s.log.Error().Err(err).Msg("record run")
	}

	text := notifier.FormatReport(rep)
	if s.Fund != nil && !rep.Best.IsSentinel() {
		drift, err := s.Fund.Apply(rep)
		if err != nil {
			s.log.Error().Err(err).Msg("update allocation state")
		}
		if drift != nil {
			text += "\n" + notifier.FormatDrift(drift)
		}
	}

	s.trySend(text)
	if s.Notifier != nil {
		if png, err := notifier.RenderAllocationChart(rep); err != nil {
			s.log.Warn().Err(err).Msg("render chart")
		} else if err := s.Notifier.SendPhoto("allocation.png", png, ""); err != nil {
			s.log.Error().Err(err).Msg("send chart")
		}
	}
	return rep, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/optimize":
		// RunOptimization delivers the report or the failure itself.
		_, _ = s.RunOptimization(recorder.TriggerTelegram)
		return ""
	case "/last":
		rec, err := s.Recorder.LatestRun()
		if errors.Is(err, recorder.ErrNoRuns) {
			return "No runs recorded yet. Send /optimize to start one."
		}
		if err != nil {
			return notifier.FormatError("Load last run", err)
		}
		return notifier.FormatRun(rec)
	case "/plan":
		if s.Fund == nil {
			return "Capital planning is disabled."
		}
		plan, err := s.Fund.Plan()
		if errors.Is(err, fund.ErrNoAllocation) {
			return "No allocation yet. Send /optimize to compute one."
		}
		if err != nil {
			return notifier.FormatError("Build plan", err)
		}
		if s.Notifier != nil {
			s.sendWeights()
		}
		return notifier.FormatPlan(plan)
	case "/capital":
		if s.Fund == nil {
			return "Capital planning is disabled."
		}
		if len(fields) < 2 {
			return fmt.Sprintf("Capital: $%.0f. Usage: /capital 50000", s.Fund.GetState().Capital)
		}
		capital, err := strconv.ParseFloat(fields[1], 64)
		if err == nil {
			err = s.Fund.SetCapital(capital)
		}
		if err != nil {
			return notifier.FormatError("Set capital", err)
		}
		return fmt.Sprintf("✅ Capital set to $%.0f", capital)
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
