package generator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tolarian/deckforge/internal/model"
	"github.com/tolarian/deckforge/internal/resilience"
	"github.com/tolarian/deckforge/pkg/brewer"
)

// Phase is one stage of a generation attempt, with a human-readable label
// and its progress percentage.
type Phase struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Progress int    `json:"progress"`
}

// Phases is the fixed ordered phase list. Progress is strictly increasing.
var Phases = []Phase{
	{Name: "analyzing", Label: "Analyzing your consultation", Progress: 10},
	{Name: "generating", Label: "Generating cards", Progress: 30},
	{Name: "assembling", Label: "Assembling the deck", Progress: 60},
	{Name: "statistics", Label: "Computing statistics", Progress: 80},
	{Name: "finalizing", Label: "Finalizing", Progress: 100},
}

// ProgressEvent is delivered to the progress subscriber on every phase
// transition. RetryCount distinguishes a phase reset at the start of a
// retry from normal in-attempt progress.
type ProgressEvent struct {
	Phase      Phase `json:"phase"`
	PhaseIndex int   `json:"phase_index"`
	RetryCount int   `json:"retry_count"`
}

// Config tunes the orchestrator's retry and pacing behavior.
type Config struct {
	// Retry is the backoff policy for transient failures.
	Retry resilience.RetryConfig

	// AutoRetryLimit caps silent automatic retries; failures beyond it
	// surface for manual retry. Default: 2.
	AutoRetryLimit int

	// AnalyzeDelay is the fixed interval the analyzing phase waits before
	// the network request is issued, regardless of network speed.
	// Default: 750ms.
	AnalyzeDelay time.Duration
}

// DefaultConfig returns the generation policy defaults.
func DefaultConfig() Config {
	return Config{
		Retry:          resilience.DefaultRetryConfig(),
		AutoRetryLimit: 2,
		AnalyzeDelay:   750 * time.Millisecond,
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfig replaces the default generation policy.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		if cfg.AutoRetryLimit <= 0 {
			cfg.AutoRetryLimit = 2
		}
		if cfg.AnalyzeDelay <= 0 {
			cfg.AnalyzeDelay = 750 * time.Millisecond
		}
		o.cfg = cfg
	}
}

// WithProgress subscribes to phase transitions.
func WithProgress(fn func(ProgressEvent)) Option {
	return func(o *Orchestrator) {
		o.onProgress = fn
	}
}

// WithCompletion subscribes to terminal outcomes. onComplete fires at most
// once per attempt even if the transport delivers duplicate completion
// signals; onError receives classified terminal errors (never
// cancellation).
func WithCompletion(onComplete func(*model.GeneratedDeckRecord), onError func(error)) Option {
	return func(o *Orchestrator) {
		o.onComplete = onComplete
		o.onError = onError
	}
}

// WithSleeper injects the waiting primitive so tests run without real
// timers.
func WithSleeper(s resilience.Sleeper) Option {
	return func(o *Orchestrator) {
		o.sleep = s
	}
}

// Orchestrator drives a single asynchronous generation attempt through the
// fixed phases, with idempotency guarding, bounded auto-retry and
// cooperative cancellation. One generation request per instance at a time;
// a second Generate while one is in flight returns ErrAttemptInFlight.
type Orchestrator struct {
	client     brewer.Client
	cfg        Config
	sleep      resilience.Sleeper
	onProgress func(ProgressEvent)
	onComplete func(*model.GeneratedDeckRecord)
	onError    func(error)

	mu       sync.Mutex
	attempt  Attempt
	cancelCh chan struct{}
	alive    bool
}

// New creates an orchestrator for the given recommendation client.
func New(client brewer.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client: client,
		cfg:    DefaultConfig(),
		sleep:  resilience.TimerSleeper,
		alive:  true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Attempt returns a snapshot of the current attempt state.
func (o *Orchestrator) Attempt() Attempt {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempt
}

// Cancel marks the attempt cancelled. Pending phase timers and the eventual
// network response become no-ops; neither completion nor error callbacks
// fire afterwards.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	prev := o.attempt.Status
	o.attempt = transition(o.attempt, evCancel{})
	if o.attempt.Status == StatusCancelled && prev != StatusCancelled && o.cancelCh != nil {
		close(o.cancelCh)
	}
}

// Close tears the orchestrator down (owning context unmounted). Every
// pending timer and the eventual network resolution become no-ops.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.alive = false
	o.mu.Unlock()
	o.Cancel()
}

// Generate runs one end-to-end generation attempt for a finalized
// consultation record and returns the assembled deck. Transient failures
// auto-retry silently up to the configured limit; other failures surface
// classified. On cancellation it returns ErrCancelled.
func (o *Orchestrator) Generate(
	ctx context.Context,
	record model.ConsultationRecord,
	commander string,
	constraints model.GenerationConstraints,
	sessionID string,
) (*model.GeneratedDeckRecord, error) {
	o.mu.Lock()
	if !o.alive {
		o.mu.Unlock()
		return nil, ErrCancelled
	}
	if o.attempt.Status == StatusRunning {
		o.mu.Unlock()
		return nil, ErrAttemptInFlight
	}
	o.attempt = transition(Attempt{}, evStart{})
	o.cancelCh = make(chan struct{})
	cancelCh := o.cancelCh
	o.mu.Unlock()

	log := zap.L().With(zap.String("session_id", sessionID), zap.String("commander", commander))
	log.Info("generation: starting attempt")

	req := brewer.GenerateRequest{
		SessionID:        sessionID,
		ConsultationData: record,
		Commander:        commander,
		Constraints:      constraints,
	}

	for {
		deck, retry, err := o.runOnce(ctx, req, record, commander, cancelCh, log)
		if retry {
			continue
		}
		return deck, err
	}
}

// runOnce executes a single attempt iteration: analyzing delay, network
// call, assembly and statistics. It reports whether the caller loop should
// immediately retry.
func (o *Orchestrator) runOnce(
	ctx context.Context,
	req brewer.GenerateRequest,
	record model.ConsultationRecord,
	commander string,
	cancelCh chan struct{},
	log *zap.Logger,
) (*model.GeneratedDeckRecord, bool, error) {
	// Phase 1: analyzing always waits its fixed interval before the
	// network request goes out, so the caller sees progress even on a
	// fast network.
	if !o.enterPhase(0) {
		return nil, false, ErrCancelled
	}
	if err := o.sleep(ctx, o.cfg.AnalyzeDelay); err != nil {
		return nil, false, o.finishCancelled(ctx.Err())
	}

	if !o.enterPhase(1) {
		return nil, false, ErrCancelled
	}

	resp, err := o.callService(ctx, req, cancelCh)
	if err != nil {
		if o.cancelledLocked() {
			return nil, false, ErrCancelled
		}
		return o.handleFailure(ctx, err, log)
	}
	if o.cancelledLocked() {
		// Late response after cancellation: discard without callbacks.
		return nil, false, ErrCancelled
	}

	if !o.enterPhase(2) {
		return nil, false, ErrCancelled
	}
	deck, err := Assemble(resp, record, commander)
	if err != nil {
		// Assembly errors are terminal for this attempt; the retry
		// affordance re-runs the whole attempt, never just assembly.
		return o.handleFailure(ctx, err, log)
	}

	if !o.enterPhase(3) {
		return nil, false, ErrCancelled
	}
	if !o.enterPhase(4) {
		return nil, false, ErrCancelled
	}

	if !o.deliverSuccess(deck) {
		return nil, false, ErrCancelled
	}
	log.Info("generation: attempt succeeded",
		zap.String("deck_id", deck.ID),
		zap.Int("cards", len(deck.Cards)),
		zap.Int("retries", o.Attempt().RetryCount),
	)
	return deck, false, nil
}

// callService issues the single network request for this attempt and waits
// for either its completion or cancellation. The response of a cancelled
// call is discarded on arrival.
func (o *Orchestrator) callService(ctx context.Context, req brewer.GenerateRequest, cancelCh chan struct{}) (*brewer.GenerateResponse, error) {
	type completion struct {
		resp *brewer.GenerateResponse
		err  error
	}
	ch := make(chan completion, 1)
	go func() {
		resp, err := o.client.GenerateDeck(ctx, req)
		ch <- completion{resp: resp, err: err}
	}()

	select {
	case c := <-ch:
		return c.resp, c.err
	case <-cancelCh:
		return nil, ErrCancelled
	}
}

// handleFailure classifies the error and decides between silent auto-retry
// and surfacing it.
func (o *Orchestrator) handleFailure(ctx context.Context, err error, log *zap.Logger) (*model.GeneratedDeckRecord, bool, error) {
	o.mu.Lock()
	o.attempt = transition(o.attempt, evDeliverFailure{err: err})
	cancelled := o.attempt.Status == StatusCancelled || !o.alive
	retryCount := o.attempt.RetryCount
	o.mu.Unlock()
	if cancelled {
		return nil, false, ErrCancelled
	}

	shouldRetry := o.cfg.Retry.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = resilience.IsTransient
	}
	if ctx.Err() == nil && shouldRetry(err) && retryCount < o.cfg.AutoRetryLimit {
		log.Warn("generation: transient failure, retrying",
			zap.Int("retry", retryCount+1),
			zap.Error(err),
		)
		if sleepErr := o.sleep(ctx, resilience.Backoff(retryCount, o.cfg.Retry)); sleepErr == nil {
			o.mu.Lock()
			o.attempt = transition(o.attempt, evScheduleRetry{})
			retryScheduled := o.attempt.Status == StatusRunning
			o.mu.Unlock()
			if retryScheduled {
				return nil, true, nil
			}
		}
		return nil, false, o.finishCancelled(ctx.Err())
	}

	log.Error("generation: attempt failed",
		zap.String("kind", string(Classify(err))),
		zap.Int("retries", retryCount),
		zap.Error(err),
	)
	if o.onError != nil {
		o.onError(err)
	}
	return nil, false, err
}

// enterPhase records the phase transition and notifies the subscriber.
// Returns false if the attempt is no longer live (cancelled or torn down).
func (o *Orchestrator) enterPhase(index int) bool {
	o.mu.Lock()
	if !o.alive || o.attempt.Status == StatusCancelled {
		o.mu.Unlock()
		return false
	}
	o.attempt = transition(o.attempt, evPhase{index: index})
	ev := ProgressEvent{
		Phase:      Phases[index],
		PhaseIndex: index,
		RetryCount: o.attempt.RetryCount,
	}
	onProgress := o.onProgress
	o.mu.Unlock()

	if onProgress != nil {
		onProgress(ev)
	}
	return true
}

// deliverSuccess applies the success transition exactly once. A duplicate
// delivery (the underlying mutation primitive firing twice) is ignored:
// assembly results and the completion callback reach the caller at most
// once per attempt.
func (o *Orchestrator) deliverSuccess(deck *model.GeneratedDeckRecord) bool {
	o.mu.Lock()
	if !o.alive {
		o.mu.Unlock()
		return false
	}
	before := o.attempt
	o.attempt = transition(o.attempt, evDeliverSuccess{})
	applied := o.attempt.Status == StatusSucceeded && before.Status != StatusSucceeded
	onComplete := o.onComplete
	o.mu.Unlock()

	if applied && onComplete != nil {
		onComplete(deck)
	}
	return applied
}

// finishCancelled normalizes cancellation exits: a cancelled attempt
// surfaces ErrCancelled and never the underlying context error.
func (o *Orchestrator) finishCancelled(ctxErr error) error {
	o.mu.Lock()
	o.attempt = transition(o.attempt, evCancel{})
	o.mu.Unlock()
	if ctxErr != nil {
		zap.L().Debug("generation: context ended", zap.Error(ctxErr))
	}
	return ErrCancelled
}

func (o *Orchestrator) cancelledLocked() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.alive || o.attempt.Status == StatusCancelled
}
