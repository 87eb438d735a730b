package driver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bibcheck/internal/check"
	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
	"bibcheck/internal/logging"
	"bibcheck/internal/observ"
)

// Phase is the state of a Pass. A pass only moves forward:
// idle, indexing, checking, done.
type Phase uint32

const (
	PhaseIdle Phase = iota
	PhaseIndexing
	PhaseChecking
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseIndexing:
		return "indexing"
	case PhaseChecking:
		return "checking"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", uint32(p))
	}
}

// ErrPassStarted is returned when Run is called on a pass that already ran.
var ErrPassStarted = errors.New("pass already started")

// Options configure a pass.
type Options struct {
	// Suite defaults to the default preferences without collaborators.
	Suite *check.Suite
	// Jobs limits parallel entry checks; 0 means GOMAXPROCS.
	Jobs int
	// MaxDiagnostics caps Result.Bag; 0 means unlimited.
	MaxDiagnostics int
	Logger         *zap.Logger
	Metrics        *observ.Metrics
	// Timer receives the index and check phases; a fresh one is used when nil.
	Timer *observ.Timer
}

func (o Options) suite() *check.Suite {
	if o.Suite != nil {
		return o.Suite
	}
	return check.NewSuite(check.DefaultPreferences(), check.Deps{})
}

// Result is the outcome of one pass.
type Result struct {
	PassID uuid.UUID
	// PerEntry holds the messages of entry i at index i.
	PerEntry [][]diag.Message
	// Bag holds all messages in entry order, capped by Options.MaxDiagnostics.
	Bag    *diag.Bag
	Timing observ.Report
}

// Messages returns all messages in entry order, ignoring the cap.
func (r *Result) Messages() []diag.Message {
	var out []diag.Message
	for _, msgs := range r.PerEntry {
		out = append(out, msgs...)
	}
	return out
}

// Pass runs the checker suite over one database snapshot. The caller must
// not mutate the database while the pass runs.
type Pass struct {
	id    uuid.UUID
	db    *entry.Database
	opts  Options
	phase atomic.Uint32
	plan  *check.Plan
}

func NewPass(db *entry.Database, opts Options) *Pass {
	return &Pass{id: uuid.New(), db: db, opts: opts}
}

func (p *Pass) ID() uuid.UUID { return p.id }
func (p *Pass) Phase() Phase  { return Phase(p.phase.Load()) }

// Run indexes the database, checks every entry and returns the messages in
// entry order. When ctx is cancelled the partial results are discarded.
func (p *Pass) Run(ctx context.Context) (*Result, error) {
	if !p.phase.CompareAndSwap(uint32(PhaseIdle), uint32(PhaseIndexing)) {
		return nil, ErrPassStarted
	}
	defer p.phase.Store(uint32(PhaseDone))

	log := logging.OrNop(p.opts.Logger).With(zap.String("pass", p.id.String()))
	timer := p.opts.Timer
	if timer == nil {
		timer = observ.NewTimer()
	}
	entries := p.db.Entries()
	log.Debug("pass started", zap.Int("entries", len(entries)), zap.Stringer("mode", p.db.Mode()))

	idx := timer.Begin("index")
	p.plan = p.opts.suite().Prepare(p.db)
	timer.End(idx, fmt.Sprintf("%d entries", len(entries)))

	p.phase.Store(uint32(PhaseChecking))
	idx = timer.Begin("check")
	slots, err := checkEntries(ctx, p.plan, entries, p.opts.Jobs)
	timer.End(idx, "")
	if err != nil {
		log.Debug("pass cancelled", zap.Error(err))
		return nil, err
	}

	res := &Result{
		PassID:   p.id,
		PerEntry: slots,
		Bag:      diag.NewBag(p.opts.MaxDiagnostics),
		Timing:   timer.Report(),
	}
	for _, msgs := range slots {
		res.Bag.AddAll(msgs)
		for _, m := range msgs {
			p.opts.Metrics.Diagnostic(m.Code().ID(), m.Severity().String())
		}
	}
	p.opts.Metrics.EntriesChecked(len(entries))
	p.opts.Metrics.ObserveTimer(timer)

	log.Info("pass finished",
		zap.Int("entries", len(entries)),
		zap.Int("diagnostics", res.Bag.Len()),
		zap.Float64("total_ms", res.Timing.TotalMS),
	)
	return res, nil
}

// CheckDatabase runs a full pass over db.
func CheckDatabase(ctx context.Context, db *entry.Database, opts Options) (*Result, error) {
	return NewPass(db, opts).Run(ctx)
}

// CheckEntry checks one entry in the context of db: links, duplicates and
// mode are resolved against db.
func CheckEntry(ctx context.Context, db *entry.Database, e *entry.Entry, opts Options) ([]diag.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	plan := opts.suite().Prepare(db)
	return plan.Check(e), nil
}
