package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mcs-portfolio/internal/portfolio"
	"mcs-portfolio/internal/timeparsing"
)

const scopeName = "mcs-portfolio/simulation"

// DefaultTrials is the number of trials run when Options.Trials is not set.
const DefaultTrials = 10000

var (
	ErrNoTeams          = errors.New("no teams to simulate")
	ErrInvalidDueDate   = errors.New("invalid due date")
	ErrDueDateNotFuture = errors.New("due date must be after today")
)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Trials   int
	Workers  int              // defaults to GOMAXPROCS
	Seed     int64            // 0 picks a time-based seed, reported in Result.Seed
	Now      func() time.Time // defaults to time.Now
	Observer TrialObserver
}

// Engine performs the portfolio Monte-Carlo simulation.
type Engine struct {
	opts    Options
	tracer  trace.Tracer
	trialsC metric.Int64Counter
}

// Result is the annotated portfolio plus run metadata.
type Result struct {
	Teams     []portfolio.Team `json:"teams"`
	StartDate string           `json:"start_date"`
	DueDate   string           `json:"due_date"`
	Days      int              `json:"days"`
	Trials    int              `json:"trials"`
	Workers   int              `json:"workers"`
	Seed      int64            `json:"seed"`
	ElapsedMS int64            `json:"elapsed_ms"`
	Warnings  []string         `json:"warnings,omitempty"`
}

func NewEngine(opts Options) *Engine {
	if opts.Trials <= 0 {
		opts.Trials = DefaultTrials
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Workers > opts.Trials {
		opts.Workers = opts.Trials
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	counter, err := otel.Meter(scopeName).Int64Counter("mcs.simulation.trials",
		metric.WithDescription("Completed simulation trials"),
	)
	if err != nil {
		log.Debug().Err(err).Msg("Trial counter unavailable")
	}
	return &Engine{
		opts:    opts,
		tracer:  otel.Tracer(scopeName),
		trialsC: counter,
	}
}

// Run forecasts every feature and returns a copy of teams with each feature's
// Forecast and IsBlocked populated. The input is not modified.
func (e *Engine) Run(ctx context.Context, teams []portfolio.Team, dueDate string) ([]portfolio.Team, error) {
	res, err := e.Forecast(ctx, teams, dueDate)
	if err != nil {
		return nil, err
	}
	return res.Teams, nil
}

// Forecast is Run plus the run metadata.
func (e *Engine) Forecast(ctx context.Context, teams []portfolio.Team, dueDate string) (res *Result, err error) {
	if len(teams) == 0 {
		return nil, ErrNoTeams
	}
	now := e.opts.Now()
	start := timeparsing.Day(now)
	due, perr := timeparsing.ParseDueDate(dueDate, now)
	if perr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDueDate, perr)
	}
	if !due.After(start) {
		return nil, fmt.Errorf("%w: %s is not after %s", ErrDueDateNotFuture,
			due.Format(timeparsing.DateLayout), start.Format(timeparsing.DateLayout))
	}
	if err := portfolio.Validate(teams); err != nil {
		return nil, err
	}

	seed := e.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	days := timeparsing.DaysBetween(start, due) + 1
	p := compilePlan(teams, days)

	ctx, span := e.tracer.Start(ctx, "simulation.forecast",
		trace.WithAttributes(
			attribute.Int("mcs.teams", len(teams)),
			attribute.Int("mcs.features", len(p.features)),
			attribute.Int("mcs.trials", e.opts.Trials),
			attribute.Int("mcs.days", days),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	warnings := e.collectWarnings(teams)

	log.Info().
		Int("teams", len(teams)).
		Int("features", len(p.features)).
		Int("trials", e.opts.Trials).
		Int("workers", e.opts.Workers).
		Int("days", days).
		Int64("seed", seed).
		Msg("Starting portfolio simulation")

	began := time.Now()
	acc, err := e.runTrials(ctx, p, teams, seed)
	if err != nil {
		log.Warn().Err(err).Msg("Portfolio simulation aborted")
		return nil, err
	}
	elapsed := time.Since(began)

	out := portfolio.Clone(teams)
	fi := 0
	for ti := range p.teams {
		byID := make(map[string]int, len(out[ti].Features))
		for i := range out[ti].Features {
			byID[out[ti].Features[i].ID] = i
		}
		for _, idx := range p.teams[ti].features {
			f := &out[ti].Features[byID[p.features[idx].key.FeatureID]]
			fc := Summarize(acc[idx], e.opts.Trials, start)
			f.Forecast = &fc
			f.TeamID = out[ti].ID
			f.IsBlocked = f.DependsOn != nil
			fi++
		}
	}

	log.Info().
		Int("features", fi).
		Dur("elapsed", elapsed).
		Msg("Portfolio simulation finished")

	return &Result{
		Teams:     out,
		StartDate: start.Format(timeparsing.DateLayout),
		DueDate:   due.Format(timeparsing.DateLayout),
		Days:      days,
		Trials:    e.opts.Trials,
		Workers:   e.opts.Workers,
		Seed:      seed,
		ElapsedMS: elapsed.Milliseconds(),
		Warnings:  warnings,
	}, nil
}

func (e *Engine) collectWarnings(teams []portfolio.Team) []string {
	var warnings []string
	for _, t := range teams {
		if len(t.PastThroughput) == 0 {
			log.Warn().Str("team", t.Name).Float64("fallback", FallbackThroughput).Msg("Team has no throughput history")
			warnings = append(warnings, fmt.Sprintf("team %s has no throughput history; using %v per day", t.Name, FallbackThroughput))
		}
	}
	for _, issue := range portfolio.Inspect(teams) {
		log.Warn().Str("feature", issue.Feature.String()).Str("kind", issue.Kind).Int("stalled", len(issue.Stalled)).Msg(issue.Message)
		warnings = append(warnings, issue.Message)
	}
	return warnings
}

// runTrials spreads the trials over the worker pool. Worker w runs trials
// w, w+W, w+2W, ... into a private accumulator; the accumulators are
// concatenated once every worker has returned.
func (e *Engine) runTrials(ctx context.Context, p *plan, teams []portfolio.Team, seed int64) (accumulator, error) {
	workers := e.opts.Workers
	parts := make([]accumulator, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			acc := newAccumulator(len(p.features))
			rng := rand.New(rand.NewSource(seed))
			done := 0
			for trial := w; trial < e.opts.Trials; trial += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				rng.Seed(trialSeed(seed, trial))
				s := runTrial(p, rng)
				acc.record(s)
				if e.opts.Observer != nil {
					e.opts.Observer(trial, s.outcome(p, teams))
				}
				done++
			}
			parts[w] = acc
			if e.trialsC != nil {
				e.trialsC.Add(gctx, int64(done))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := newAccumulator(len(p.features))
	for _, part := range parts {
		total.merge(part)
	}
	return total, nil
}

// trialSeed derives an independent seed per trial so results do not depend on
// how trials are distributed over workers.
func trialSeed(seed int64, trial int) int64 {
	return int64(uint64(seed) + uint64(trial+1)*0x9E3779B97F4A7C15)
}
