// Package rt is the device runtime: a registry of hardware resources
// addressed by locator, an interrupt-fed event queue, and a cooperative
// executor that runs tasks until they suspend on an event.
//
// Lifecycle: Init once, install resources (LoadBoard or Install) and
// associate interrupts, then Spawn tasks and Run. Run seals the registry.
package rt

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"devicert-go/errcode"
	"devicert-go/services/rt/internal/board"
	"devicert-go/services/rt/internal/core"
	"devicert-go/services/rt/internal/evq"
	"devicert-go/services/rt/internal/executor"
	"devicert-go/services/rt/internal/hw"
	"devicert-go/services/rt/internal/irq"
	"devicert-go/services/rt/internal/locator"
	"devicert-go/services/rt/internal/platform"
	"devicert-go/services/rt/internal/registry"
	"devicert-go/services/rt/internal/rterr"
	"devicert-go/services/rt/internal/rtlog"
	"devicert-go/types"
)

type (
	HeapRegion = hw.HeapRegion

	// Capability contract, for resources installed by hand.
	Resource = core.Resource
	Config   = core.Config
	RawPath  = locator.RawPath

	// Tasks.
	Context    = core.Context
	Future     = core.Future
	FutureFunc = core.FutureFunc
	Poll       = core.Poll
	Waker      = core.Waker
	TaskID     = executor.TaskID
	TaskState  = executor.State

	// Boards.
	BoardConfig = board.Config
	Factories   = platform.Factories
)

const (
	Pending = core.Pending
	Ready   = core.Ready

	TaskCreated   = executor.Created
	TaskReady     = executor.Ready
	TaskSuspended = executor.Suspended
	TaskCompleted = executor.Completed
)

// ErrPending is returned by Poll* calls that cannot complete yet; the
// calling task's waker has been registered and it should return Pending.
var ErrPending = core.ErrPending

func IsPending(err error) bool { return core.IsPending(err) }

// Sentinels for errors.Is. Errors returned by the runtime wrap these.
var (
	ErrURIParse         = rterr.ErrURIParse
	ErrNotFound         = rterr.ErrNotFound
	ErrResourceNotFound = rterr.ErrResourceNotFound
	ErrInvalidInput     = rterr.ErrInvalidInput
	ErrUnsupported      = rterr.ErrUnsupported
	ErrIO               = rterr.ErrIO
	ErrMultipleInit     = rterr.ErrMultipleInit
	ErrSealed           = rterr.ErrSealed
	ErrQueueFull        = rterr.ErrQueueFull
)

// SetLogger installs the runtime logger (nil → no-op).
func SetLogger(l *zap.Logger) { rtlog.SetLogger(l) }

// ParseBoard decodes and validates a YAML board description.
func ParseBoard(b []byte) (BoardConfig, error) { return board.Parse(b) }

// DefaultFactories returns the hardware of the current build: the RP2040
// peripherals on the MCU, fakes on the host.
func DefaultFactories() Factories { return platform.Default() }

// ---- init ----

var initialized atomic.Bool

type options struct {
	maxTasks int
}

type Option func(*options)

// WithMaxTasks bounds the task table (default executor.DefaultMaxTasks).
func WithMaxTasks(n int) Option { return func(o *options) { o.maxTasks = n } }

type Runtime struct {
	heap  HeapRegion
	reg   *registry.Registry
	q     *evq.Queue
	exec  *executor.Executor
	sink  irq.Guarded
	board *board.Board
	log   *zap.Logger
}

// Init creates the process's runtime. Each tier of the event queue holds
// maxEventsPerPriority events. A second call fails with
// multiple_initializations.
func Init(heap HeapRegion, maxEventsPerPriority int, opts ...Option) (*Runtime, error) {
	log := rtlog.Named("rt")
	if !initialized.CompareAndSwap(false, true) {
		log.Error("runtime initialised twice")
		return nil, errcode.New(errcode.MultipleInitializations, "rt.init", "")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	q := evq.New(maxEventsPerPriority)
	reg := registry.New()
	r := &Runtime{
		heap: heap,
		reg:  reg,
		q:    q,
		exec: executor.New(reg, q, executor.NewChanIdler(), o.maxTasks),
		sink: irq.Guarded{P: q},
		log:  log,
	}
	log.Info("runtime initialised",
		zap.Uintptr("heap_bottom", heap.Bottom), zap.Uint32("heap_size", heap.Size),
		zap.Int("events_per_priority", q.Capacity()))
	return r, nil
}

// InitBoard is Init followed by LoadBoard, sized from cfg.
func InitBoard(cfg BoardConfig, f Factories) (*Runtime, error) {
	r, err := Init(cfg.Heap.Region(), cfg.Events, WithMaxTasks(cfg.Tasks))
	if err != nil {
		return nil, err
	}
	return r, r.LoadBoard(cfg, f)
}

// ---- setup phase ----

// LoadBoard installs every resource cfg describes and arms their interrupts.
// Entries that fail are reported together; the rest are installed.
func (r *Runtime) LoadBoard(cfg BoardConfig, f Factories) error {
	b, err := board.Build(cfg, r.reg, board.Env{
		Factories: f,
		Sink:      r.sink,
		Heap:      platform.RuntimeHeap{Region: r.heap},
	})
	if b != nil {
		r.board = b
	}
	return err
}

func (r *Runtime) Install(c types.Category, res Resource) (types.IndexedPath, error) {
	return r.reg.Install(c, res)
}

func (r *Runtime) AssociateInterrupt(p types.IndexedPath, src types.Event) error {
	return r.reg.AssociateInterrupt(p, src)
}

// Seal ends the setup phase. Run and RunUntilIdle seal implicitly.
func (r *Runtime) Seal()        { r.reg.Seal() }
func (r *Runtime) Sealed() bool { return r.reg.Sealed() }

// Close disarms the interrupts armed by LoadBoard.
func (r *Runtime) Close() {
	if r.board != nil {
		r.board.Close()
	}
}

// ---- resolution ----

// Open resolves a locator such as "percent://pwm/pa1" to a ResourceID.
func (r *Runtime) Open(loc string) (types.ResourceID, error) { return r.reg.Open(loc) }

// Resources lists installed resources as "<category>/<key>".
func (r *Runtime) Resources() []string { return r.reg.Locators() }

// ---- interrupts ----

// Interrupt queues ev. It is safe from interrupt context; a full tier halts.
func (r *Runtime) Interrupt(ev types.Event) { r.sink.Interrupt(ev) }

// ---- tasks ----

func (r *Runtime) Spawn(f Future) (TaskID, error) { return r.exec.Spawn(f) }
func (r *Runtime) TaskState(id TaskID) TaskState  { return r.exec.State(id) }
func (r *Runtime) Run(ctx context.Context)        { r.exec.Run(ctx) }
func (r *Runtime) RunUntilIdle() int              { return r.exec.RunUntilIdle() }

// ---- I/O, from inside a task's Poll ----

func (r *Runtime) PollRead(cx *Context, id types.ResourceID, buf []byte) (int, error) {
	return r.reg.PollRead(cx, id, buf)
}

func (r *Runtime) PollWrite(cx *Context, id types.ResourceID, buf []byte) (int, error) {
	return r.reg.PollWrite(cx, id, buf)
}

func (r *Runtime) PollFlush(cx *Context, id types.ResourceID) error {
	return r.reg.PollFlush(cx, id)
}

func (r *Runtime) PollClose(cx *Context, id types.ResourceID) error {
	return r.reg.PollClose(cx, id)
}

func (r *Runtime) PollSeek(cx *Context, id types.ResourceID, offset int64, whence int) (int64, error) {
	return r.reg.PollSeek(cx, id, offset, whence)
}

// ---- introspection ----

type Stats struct {
	Executor executor.Stats
	Queue    [types.NumPriorities]evq.TierStats
	Waiting  []types.Event
}

func (r *Runtime) Stats() Stats {
	return Stats{
		Executor: r.exec.Stats(),
		Queue:    r.q.Stats(),
		Waiting:  r.reg.Waiting(),
	}
}
