package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"
	"github.com/robfig/cron/v3"

	"github.com/roach88/agenda/internal/docstore"
	"github.com/roach88/agenda/internal/index"
	"github.com/roach88/agenda/internal/model"
	"github.com/roach88/agenda/internal/view"
)

// Subscription names, used in logs and notifications.
const (
	sourceAgenda   = "agenda"
	sourceSpecials = "special_dates"
	sourceLedger   = "finances"
)

// Coordinator keeps the in-memory agenda and finance state in sync with a
// docstore.Store.
//
// Thread-safety model:
//   - Run(): must be called from exactly one goroutine, once
//   - read accessors (Index, Agenda, SpecialDates, Ledger, Summary): safe
//     from any goroutine
//   - commands (AddItem, ToggleItem, ...): safe from any goroutine; they
//     block until the command has been applied and its write has settled
type Coordinator struct {
	store    docstore.Store
	paths    Paths
	logger   *slog.Logger
	notifier Notifier
	clock    Clock
	ids      IDGenerator
	loc      *time.Location
	decoder  model.Decoder
	prune    string // cron schedule for the special-date sweep

	queue   *eventQueue
	running atomic.Bool

	// Published state. Written only by the loop.
	index    atomic.Pointer[index.Index]
	agenda   atomic.Pointer[view.Agenda]
	specials atomic.Pointer[[]model.SpecialDate]
	ledger   atomic.Pointer[model.MonthLedger]

	// Loop-owned.
	selected civil.Date
	pending  map[string]bool

	ready     chan struct{}
	readyOnce sync.Once

	writes   sync.WaitGroup
	writeCtx context.Context
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithNotifier sets where user-facing failures are reported.
// Default: LogNotifier on the coordinator's logger.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// WithClock sets the wall clock. Default: SystemClock.
func WithClock(clock Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithIDGenerator sets the ID source for new records. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Coordinator) { c.ids = g }
}

// WithLocation sets the zone calendar dates are computed in. Default: time.Local.
func WithLocation(loc *time.Location) Option {
	return func(c *Coordinator) { c.loc = loc }
}

// WithPruneSchedule runs SweepSpecialDates on a cron schedule while Run is
// active. Empty disables the schedule; pruning on snapshot still happens.
func WithPruneSchedule(spec string) Option {
	return func(c *Coordinator) { c.prune = spec }
}

// New creates a coordinator. Nothing is read until Run is called; until the
// first snapshots arrive the state is empty.
func New(store docstore.Store, paths Paths, opts ...Option) *Coordinator {
	c := &Coordinator{
		store: store,
		paths: paths,
		clock: SystemClock{},
		ids:   UUIDv7Generator{},
		loc:   time.Local,
		queue: newEventQueue(),
		ready: make(chan struct{}),
		pending: map[string]bool{
			sourceAgenda:   true,
			sourceSpecials: true,
			sourceLedger:   true,
		},
		writeCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.notifier == nil {
		c.notifier = LogNotifier{Logger: c.logger}
	}
	c.decoder = model.Decoder{Location: c.loc}

	today := c.today()
	c.selected = today
	ix := index.Empty()
	c.index.Store(ix)
	a := view.Project(ix, today)
	c.agenda.Store(&a)
	c.specials.Store(&[]model.SpecialDate{})
	l := emptyLedger(model.MonthKey(today))
	c.ledger.Store(&l)
	return c
}

// Run subscribes to the actor's collections and processes events until ctx
// is cancelled. On return every subscription has been cancelled, queued
// commands have been rejected with ErrClosed and in-flight writes have
// finished.
//
// Run returns ctx.Err() after cancellation.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("engine: Run called twice")
	}
	c.writeCtx = context.WithoutCancel(ctx)

	c.logger.Info("coordinator starting",
		"agenda", c.paths.Agenda,
		"finances", c.paths.Finances,
		"meta", c.paths.Meta,
	)

	unsubs := c.subscribe(ctx)

	var sched *cron.Cron
	if c.prune != "" {
		sched = cron.New(cron.WithLocation(c.loc))
		if _, err := sched.AddFunc(c.prune, func() {
			c.queue.Enqueue(event{kind: eventSweep, source: "schedule"})
		}); err != nil {
			c.logger.Error("invalid prune schedule", "schedule", c.prune, "error", err)
		} else {
			sched.Start()
		}
	}

	err := c.loop(ctx)

	if sched != nil {
		<-sched.Stop().Done()
	}
	for _, unsub := range unsubs {
		unsub()
	}
	c.queue.Close()
	c.drain()
	c.writes.Wait()
	c.markAllReady()

	c.logger.Info("coordinator stopped")
	return err
}

// subscribe opens the three standing listeners. A listener that cannot be
// opened is reported like any other subscription failure.
func (c *Coordinator) subscribe(ctx context.Context) []docstore.Unsubscribe {
	var unsubs []docstore.Unsubscribe

	onError := func(source string) docstore.ErrorFunc {
		return func(err error) {
			c.queue.Enqueue(event{kind: eventSubscriptionError, source: source, err: err})
		}
	}

	if u, err := c.store.Subscribe(ctx, c.paths.Agenda, func(docs []docstore.Document) {
		c.queue.Enqueue(event{kind: eventAgendaSnapshot, source: sourceAgenda, docs: docs})
	}, onError(sourceAgenda)); err != nil {
		onError(sourceAgenda)(err)
	} else {
		unsubs = append(unsubs, u)
	}

	if u, err := c.store.SubscribeDocument(ctx, c.paths.Meta, SpecialDatesKey, func(doc docstore.Document, exists bool) {
		c.queue.Enqueue(event{kind: eventSpecialSnapshot, source: sourceSpecials, doc: doc, exists: exists})
	}, onError(sourceSpecials)); err != nil {
		onError(sourceSpecials)(err)
	} else {
		unsubs = append(unsubs, u)
	}

	if u, err := c.store.Subscribe(ctx, c.paths.Finances, func(docs []docstore.Document) {
		c.queue.Enqueue(event{kind: eventLedgerSnapshot, source: sourceLedger, docs: docs})
	}, onError(sourceLedger)); err != nil {
		onError(sourceLedger)(err)
	} else {
		unsubs = append(unsubs, u)
	}

	return unsubs
}

// loop is the single-writer event loop.
func (c *Coordinator) loop(ctx context.Context) error {
	for {
		if ev, ok := c.queue.TryDequeue(); ok {
			c.process(ev)
			continue
		}

		select {
		case <-ctx.Done():
			c.logger.Info("coordinator stopping: context cancelled")
			return ctx.Err()
		case <-c.queue.Wait():
		}
	}
}

// drain rejects commands that were queued but never processed.
func (c *Coordinator) drain() {
	for {
		ev, ok := c.queue.TryDequeue()
		if !ok {
			return
		}
		if ev.kind == eventCommand {
			ev.cmd.done <- ErrClosed
		}
	}
}

// process routes an event. Called only from the loop goroutine.
func (c *Coordinator) process(ev event) {
	switch ev.kind {
	case eventAgendaSnapshot:
		c.applyAgendaSnapshot(ev.docs)
		c.markReady(ev.source)
	case eventSpecialSnapshot:
		c.applySpecialSnapshot(ev.doc, ev.exists)
		c.markReady(ev.source)
	case eventLedgerSnapshot:
		c.applyLedgerSnapshot(ev.docs)
		c.markReady(ev.source)
	case eventSubscriptionError:
		c.notifier.Notify(Notification{
			Level:   slog.LevelError,
			Code:    CodeSubscription,
			Message: fmt.Sprintf("listening to %s failed; showing last known data", ev.source),
			Err:     &Error{Code: CodeSubscription, Op: ev.source, Err: ev.err},
		})
		c.markReady(ev.source)
	case eventSweep:
		c.pruneInBackground("schedule")
	case eventCommand:
		c.runCommand(ev.cmd)
	default:
		c.logger.Error("unknown event kind", "kind", int(ev.kind))
	}
}

func (c *Coordinator) markReady(source string) {
	if !c.pending[source] {
		return
	}
	delete(c.pending, source)
	if len(c.pending) == 0 {
		c.markAllReady()
	}
}

func (c *Coordinator) markAllReady() {
	c.readyOnce.Do(func() { close(c.ready) })
}

// Ready is closed once every subscription has delivered its first snapshot
// or failed, or Run has returned.
func (c *Coordinator) Ready() <-chan struct{} {
	return c.ready
}

func (c *Coordinator) applyAgendaSnapshot(docs []docstore.Document) {
	days := make([]model.DayDocument, 0, len(docs))
	undecodable := 0
	for _, d := range docs {
		day, err := c.decoder.DecodeDay(d.Key, d.Data)
		if err != nil {
			undecodable++
			c.logger.Warn("skipping undecodable day document", "day_key", d.Key, "error", err)
			continue
		}
		days = append(days, day)
	}

	ix, stats := index.Build(days)
	c.index.Store(ix)
	c.reproject()

	c.logger.Debug("agenda rebuilt",
		"documents", stats.Documents,
		"items", stats.Items,
		"duplicates", stats.Duplicates,
		"misanchored", stats.Misanchored,
		"malformed", stats.Malformed+undecodable,
	)
}

func (c *Coordinator) applySpecialSnapshot(doc docstore.Document, exists bool) {
	dates := []model.SpecialDate{}
	if exists {
		decoded, skipped, err := model.DecodeSpecialDates(doc.Data)
		if err != nil {
			c.logger.Warn("special dates document undecodable", "error", err)
			return
		}
		if skipped > 0 {
			c.logger.Warn("skipped invalid special dates", "skipped", skipped)
		}
		dates = decoded
	}
	c.specials.Store(&dates)
	c.pruneInBackground("snapshot")
}

// pruneSpecials drops one-time special dates before today from the
// in-memory list and returns how many went, with the write-back to run.
// The write-back is best-effort: failures are logged, not retried, and not
// reported to callers. Called only from the loop.
func (c *Coordinator) pruneSpecials() (int, persistFunc) {
	today := c.today()
	current := *c.specials.Load()
	kept := make([]model.SpecialDate, 0, len(current))
	for _, s := range current {
		if !s.Expired(today) {
			kept = append(kept, s)
		}
	}
	pruned := len(current) - len(kept)
	if pruned == 0 {
		return 0, nil
	}
	c.specials.Store(&kept)

	write := c.persistSpecials(kept)
	return pruned, func(ctx context.Context) error {
		if err := write(ctx); err != nil {
			c.logger.Warn("special dates prune write-back failed", "error", err)
		}
		return nil
	}
}

// pruneInBackground prunes and starts the write-back without waiting.
func (c *Coordinator) pruneInBackground(reason string) {
	pruned, persist := c.pruneSpecials()
	if pruned == 0 {
		return
	}
	c.logger.Info("pruned expired special dates", "pruned", pruned, "reason", reason)
	c.writes.Add(1)
	go func() {
		defer c.writes.Done()
		_ = persist(c.writeCtx)
	}()
}

func (c *Coordinator) applyLedgerSnapshot(docs []docstore.Document) {
	month := model.MonthKey(c.today())
	l := emptyLedger(month)
	for _, d := range docs {
		if d.Key != month {
			continue
		}
		decoded, skipped, err := model.DecodeLedger(d.Key, d.Data)
		if err != nil {
			c.logger.Warn("month ledger undecodable", "month", d.Key, "error", err)
			return
		}
		if skipped > 0 {
			c.logger.Warn("skipped invalid transactions", "month", d.Key, "skipped", skipped)
		}
		l = decoded
	}
	c.ledger.Store(&l)
}

// reproject recomputes the selected date's agenda. Called only from the loop.
func (c *Coordinator) reproject() {
	a := view.Project(c.index.Load(), c.selected)
	c.agenda.Store(&a)
}

func (c *Coordinator) today() civil.Date {
	return civil.DateOf(c.clock.Now().In(c.loc))
}

func emptyLedger(month string) model.MonthLedger {
	return model.MonthLedger{Month: month, Income: []model.Transaction{}, Expenses: []model.Transaction{}}
}

// Index returns the current canonical index. The value is immutable.
func (c *Coordinator) Index() *index.Index {
	return c.index.Load()
}

// Agenda returns the projection of the selected date.
func (c *Coordinator) Agenda() view.Agenda {
	return *c.agenda.Load()
}

// SpecialDates returns a copy of the special-dates list.
func (c *Coordinator) SpecialDates() []model.SpecialDate {
	cur := *c.specials.Load()
	out := make([]model.SpecialDate, len(cur))
	copy(out, cur)
	return out
}

// Ledger returns a copy of the current month's ledger.
func (c *Coordinator) Ledger() model.MonthLedger {
	return c.ledger.Load().Clone()
}

// Location returns the zone calendar dates are computed in.
func (c *Coordinator) Location() *time.Location {
	return c.loc
}
