package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/KatariSolutions/NumberGame/internal/engine"
	"github.com/KatariSolutions/NumberGame/internal/types"
	pub "github.com/KatariSolutions/NumberGame/pkg/types"
)

var ErrStopped = errors.New("session engine stopped")
var ErrMissingDependency = errors.New("session engine dependency missing")

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type OutcomeGenerator interface {
	Generate() (engine.Outcome, error)
}

// ActivationSource answers whether a new round may start.
type ActivationSource interface {
	IsGameActive(ctx context.Context) (bool, error)
}

// Persistence receives finalized rounds. Failures never stop the round.
type Persistence interface {
	SaveRound(ctx context.Context, info engine.RoundInfo, bids []engine.Bid) (int64, error)
	SaveSettlement(ctx context.Context, durableID int64, info engine.RoundInfo, s engine.Settlement) error
}

type Broadcaster interface {
	Broadcast(msg types.ServerMessage)
	SendTo(connIDs []string, msg types.ServerMessage)
}

type Deps struct {
	Clock       Clock
	Generator   OutcomeGenerator
	Activation  ActivationSource
	Store       Persistence
	Broadcaster Broadcaster
	Logger      *zap.Logger
}

type Options struct {
	Timing         engine.Timing
	Limits         engine.Limits
	TickInterval   time.Duration // zero disables the internal ticker
	ResumePoll     time.Duration
	PersistTimeout time.Duration
	WarningsKept   int
}

func DefaultOptions() Options {
	return Options{
		Timing:         engine.Timing{Active: 10 * time.Minute, Locked: 2 * time.Minute, Results: 3 * time.Minute},
		Limits:         engine.Limits{MaxBid: 10000},
		TickInterval:   time.Second,
		ResumePoll:     5 * time.Second,
		PersistTimeout: 10 * time.Second,
		WarningsKept:   50,
	}
}

// Warning is an operator-facing record of a degraded boundary call.
type Warning struct {
	At      time.Time `json:"at"`
	RoundID string    `json:"roundId,omitempty"`
	Op      string    `json:"op"`
	Error   string    `json:"error"`
}

type JoinResult struct {
	State pub.RoundState
	Bids  []pub.BidView
}

type Msg interface{ isEngineMsg() }

type tickMsg struct{ now time.Time }

type joinMsg struct {
	participant string
	connID      string
	reply       chan JoinResult
}

type leaveMsg struct {
	participant string
	connID      string
	done        chan struct{}
}

type placeMsg struct {
	cmd    engine.PlaceBid
	connID string
	reply  chan bidResult
}

type deleteMsg struct {
	cmd    engine.DeleteBid
	connID string
	reply  chan bidResult
}

type snapshotMsg struct{ reply chan pub.RoundState }

type bidsMsg struct {
	participant string
	reply       chan []pub.BidView
}

type overrideMsg struct {
	outcome engine.Outcome
	reply   chan error
}

type warningsMsg struct{ reply chan []Warning }

type lockDoneMsg struct {
	roundID   string
	durableID int64
	err       error
}

type settleDoneMsg struct {
	roundID string
	err     error
}

type bidResult struct {
	ack pub.BidView
	err error
}

func (tickMsg) isEngineMsg()       {}
func (joinMsg) isEngineMsg()       {}
func (leaveMsg) isEngineMsg()      {}
func (placeMsg) isEngineMsg()      {}
func (deleteMsg) isEngineMsg()     {}
func (snapshotMsg) isEngineMsg()   {}
func (bidsMsg) isEngineMsg()       {}
func (overrideMsg) isEngineMsg()   {}
func (warningsMsg) isEngineMsg()   {}
func (lockDoneMsg) isEngineMsg()   {}
func (settleDoneMsg) isEngineMsg() {}

type job func(ctx context.Context) Msg

// Engine runs the global round. All round state is owned by the loop
// goroutine; every public method is a message into its inbox.
type Engine struct {
	inbox chan Msg
	jobs  chan job
	ctx   context.Context
	stop  context.CancelFunc
	done  chan struct{}

	clock      Clock
	gen        OutcomeGenerator
	activation ActivationSource
	store      Persistence
	bc         Broadcaster
	log        *zap.Logger
	opts       Options

	cur      *Session
	waiting  *Registry // connections seen while paused
	lastPoll time.Time
	lastTick time.Time
	seq      int64
	warnings []Warning
}

func NewEngine(parent context.Context, deps Deps, opts Options) (*Engine, error) {
	if deps.Generator == nil || deps.Activation == nil || deps.Store == nil || deps.Broadcaster == nil {
		return nil, ErrMissingDependency
	}
	if err := opts.Timing.Validate(); err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 10 * time.Second
	}
	if opts.WarningsKept <= 0 {
		opts.WarningsKept = 50
	}

	ctx, cancel := context.WithCancel(parent)
	e := &Engine{
		inbox:      make(chan Msg, 64),
		jobs:       make(chan job, 8),
		ctx:        ctx,
		stop:       cancel,
		done:       make(chan struct{}),
		clock:      deps.Clock,
		gen:        deps.Generator,
		activation: deps.Activation,
		store:      deps.Store,
		bc:         deps.Broadcaster,
		log:        deps.Logger.Named("session"),
		opts:       opts,
		waiting:    NewRegistry(),
	}

	go e.loop()
	go e.worker()
	if opts.TickInterval > 0 {
		go e.ticker(opts.TickInterval)
	}
	return e, nil
}

func (e *Engine) loop() {
	defer close(e.done)

	e.resume(e.clock.Now())
	for {
		select {
		case <-e.ctx.Done():
			return
		case m := <-e.inbox:
			e.handle(m)
		}
	}
}

func (e *Engine) handle(m Msg) {
	switch msg := m.(type) {
	case tickMsg:
		e.onTick(msg.now)

	case joinMsg:
		reg := e.registry()
		reg.Add(msg.participant, msg.connID)
		msg.reply <- JoinResult{
			State: e.snapshot(e.now()),
			Bids:  e.participantBids(msg.participant),
		}

	case leaveMsg:
		e.leave(msg.participant, msg.connID)
		close(msg.done)

	case placeMsg:
		msg.reply <- e.placeBid(msg.cmd, msg.connID)

	case deleteMsg:
		msg.reply <- e.deleteBid(msg.cmd, msg.connID)

	case snapshotMsg:
		msg.reply <- e.snapshot(e.now())

	case bidsMsg:
		msg.reply <- e.participantBids(msg.participant)

	case overrideMsg:
		msg.reply <- e.overrideOutcome(msg.outcome)

	case warningsMsg:
		out := make([]Warning, len(e.warnings))
		copy(out, e.warnings)
		msg.reply <- out

	case lockDoneMsg:
		e.onLockDone(msg)

	case settleDoneMsg:
		e.onSettleDone(msg)
	}
}

// worker runs boundary calls one at a time, in the order transitions queued
// them, and reports back through the inbox.
func (e *Engine) worker() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case j := <-e.jobs:
			ctx, cancel := context.WithTimeout(context.WithoutCancel(e.ctx), e.opts.PersistTimeout)
			m := j(ctx)
			cancel()
			e.post(m)
		}
	}
}

func (e *Engine) ticker(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-t.C:
			e.post(tickMsg{now: e.clock.Now()})
		}
	}
}

func (e *Engine) post(m Msg) {
	select {
	case e.inbox <- m:
	case <-e.ctx.Done():
	}
}

func (e *Engine) registry() *Registry {
	if e.cur != nil {
		return e.cur.Registry
	}
	return e.waiting
}

// now is the latest time the engine has seen, so a tick carrying a time ahead
// of the clock is never walked back.
func (e *Engine) now() time.Time {
	now := e.clock.Now()
	if e.lastTick.After(now) {
		return e.lastTick
	}
	return now
}

func (e *Engine) warn(op string, roundID string, err error) {
	e.log.Error("boundary call failed", zap.String("op", op), zap.String("round_id", roundID), zap.Error(err))
	e.warnings = append(e.warnings, Warning{At: e.now(), RoundID: roundID, Op: op, Error: err.Error()})
	if over := len(e.warnings) - e.opts.WarningsKept; over > 0 {
		e.warnings = append(e.warnings[:0:0], e.warnings[over:]...)
	}
}

// Public API

// Tick hands a clock pulse to the loop. It never blocks past shutdown.
func (e *Engine) Tick(now time.Time) {
	e.post(tickMsg{now: now})
}

func (e *Engine) Join(ctx context.Context, participant, connID string) (JoinResult, error) {
	reply := make(chan JoinResult, 1)
	return request(ctx, e, joinMsg{participant: participant, connID: connID, reply: reply}, reply)
}

func (e *Engine) Leave(ctx context.Context, participant, connID string) error {
	done := make(chan struct{})
	if err := e.send(ctx, leaveMsg{participant: participant, connID: connID, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}
}

// PlaceBid overwrites the participant's wager on value. A rejected command
// returns an *engine.Rejection and leaves the ledger untouched.
func (e *Engine) PlaceBid(ctx context.Context, participant, connID string, value engine.Value, amount float64) (pub.BidView, error) {
	reply := make(chan bidResult, 1)
	cmd := engine.PlaceBid{Participant: participant, Value: value, Amount: amount}
	res, err := request(ctx, e, placeMsg{cmd: cmd, connID: connID, reply: reply}, reply)
	if err != nil {
		return pub.BidView{}, err
	}
	return res.ack, res.err
}

func (e *Engine) DeleteBid(ctx context.Context, participant, connID string, value engine.Value) (pub.BidView, error) {
	reply := make(chan bidResult, 1)
	cmd := engine.DeleteBid{Participant: participant, Value: value}
	res, err := request(ctx, e, deleteMsg{cmd: cmd, connID: connID, reply: reply}, reply)
	if err != nil {
		return pub.BidView{}, err
	}
	return res.ack, res.err
}

func (e *Engine) Snapshot(ctx context.Context) (pub.RoundState, error) {
	reply := make(chan pub.RoundState, 1)
	return request(ctx, e, snapshotMsg{reply: reply}, reply)
}

func (e *Engine) ParticipantBids(ctx context.Context, participant string) ([]pub.BidView, error) {
	reply := make(chan []pub.BidView, 1)
	return request(ctx, e, bidsMsg{participant: participant, reply: reply}, reply)
}

// OverrideOutcome replaces the committed outcome. Only allowed before lock.
func (e *Engine) OverrideOutcome(ctx context.Context, outcome engine.Outcome) error {
	reply := make(chan error, 1)
	err, serr := request(ctx, e, overrideMsg{outcome: outcome, reply: reply}, reply)
	if serr != nil {
		return serr
	}
	return err
}

func (e *Engine) Warnings(ctx context.Context) ([]Warning, error) {
	reply := make(chan []Warning, 1)
	return request(ctx, e, warningsMsg{reply: reply}, reply)
}

// Shutdown stops the loop and waits for it to exit.
func (e *Engine) Shutdown() {
	e.stop()
	<-e.done
}

func (e *Engine) Done() <-chan struct{} { return e.done }

func (e *Engine) send(ctx context.Context, m Msg) error {
	select {
	case e.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.ctx.Done():
		return ErrStopped
	}
}

func request[T any](ctx context.Context, e *Engine, m Msg, reply <-chan T) (T, error) {
	var zero T
	if err := e.send(ctx, m); err != nil {
		return zero, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-e.done:
		return zero, ErrStopped
	}
}
