package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/pagecrawl/internal/crawler"
	"github.com/nao1215/pagecrawl/internal/model"
)

// ErrSkip is returned by a step to drop the current page. Later steps do
// not see it and the pipeline does not treat it as a failure.
var ErrSkip = errors.New("skip page")

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence for every emitted page.
type Step interface {
	// Do processes one page. Returning ErrSkip drops the page; any other
	// error is a failure of the consumer.
	Do(ctx context.Context, page *model.PageRecord) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// RunHook is implemented by steps that need to know when a run begins and
// ends.
type RunHook interface {
	// Begin is called before the first page. summary carries the
	// normalized seed and the start time; a hook may set summary.ID.
	Begin(ctx context.Context, summary *model.RunSummary) error

	// End is called once with the final summary, also after failures.
	End(ctx context.Context, summary *model.RunSummary) error
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError keeps feeding pages to later steps, and keeps the
	// crawl going, when a step fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged and the page moves on to
// the next step.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps for one page.
// It checks for cancellation before each step.
//
// Returns nil when a step skips the page, and the first step error unless
// continueOnError is set.
func (p *Pipeline) Execute(ctx context.Context, page *model.PageRecord) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", err,
			)
			return err
		}

		err := step.Do(ctx, page)
		switch {
		case err == nil:
			continue
		case errors.Is(err, ErrSkip):
			p.logger.Debug("page skipped",
				"step", step.Name(),
				"url", page.URL,
			)
			return nil
		default:
			p.logger.Error("step failed",
				"step", step.Name(),
				"url", page.URL,
				"error", err,
			)
			if !p.continueOnError {
				return err
			}
		}
	}

	return nil
}

// Begin calls Begin on every step that implements RunHook, in order.
func (p *Pipeline) Begin(ctx context.Context, summary *model.RunSummary) error {
	for _, step := range p.steps {
		hook, ok := step.(RunHook)
		if !ok {
			continue
		}
		if err := hook.Begin(ctx, summary); err != nil {
			return err
		}
	}
	return nil
}

// End calls End on every step that implements RunHook. All hooks are
// called; their errors are joined.
func (p *Pipeline) End(ctx context.Context, summary *model.RunSummary) error {
	var errs []error
	for _, step := range p.steps {
		hook, ok := step.(RunHook)
		if !ok {
			continue
		}
		if err := hook.End(ctx, summary); err != nil {
			p.logger.Error("step failed at end of run",
				"step", step.Name(),
				"seed", summary.Seed,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run crawls seed with spider and passes every emitted page through the
// pipeline. It always returns a summary. The error is a configuration
// error from the spider, a step failure, or the context error if ctx ended
// the run early.
//
// End hooks run with a context that is not cancelled together with ctx,
// so an interrupted run is still recorded.
func (p *Pipeline) Run(ctx context.Context, spider *crawler.Spider, seed string) (*model.RunSummary, error) {
	started := time.Now()

	run, err := spider.Start(seed)
	if err != nil {
		summary := &model.RunSummary{Seed: seed, StartedAt: started, FinishedAt: started}
		summary.Fail(err)
		return summary, err
	}

	begin := &model.RunSummary{Seed: run.Seed(), StartedAt: started}
	begin.SetOutcome(model.OutcomeRunning)
	if err := p.Begin(ctx, begin); err != nil {
		begin.FinishedAt = time.Now()
		begin.Fail(err)
		return begin, err
	}

	var stepErr error
	for page := range run.Pages(ctx) {
		if err := p.Execute(ctx, page); err != nil {
			stepErr = err
			break
		}
	}

	final := run.Summary()
	final.ID = begin.ID
	if final.StartedAt.IsZero() {
		final.StartedAt = started
	}
	if final.FinishedAt.IsZero() {
		final.FinishedAt = time.Now()
	}

	runErr := stepErr
	switch {
	case stepErr != nil:
		final.Fail(stepErr)
	case run.Err() != nil:
		runErr = run.Err()
		final.SetOutcome(model.OutcomeCancelled)
		final.Error = runErr
		final.ErrorMessage = runErr.Error()
	}

	endErr := p.End(context.WithoutCancel(ctx), &final)
	return &final, errors.Join(runErr, endErr)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
