// Package registry is the process-wide store of capability objects: fixed
// arrays per category, the interrupt-source associations, and the per-event
// wait-list used to wake suspended tasks.
//
// A Registry has one mutator, the executor. During setup resources are
// installed and interrupts associated; Seal freezes the arrays, after which
// they are never resized.
package registry

import (
	"slices"
	"strconv"

	"go.uber.org/zap"

	"devicert-go/errcode"
	"devicert-go/services/rt/internal/core"
	"devicert-go/services/rt/internal/locator"
	"devicert-go/services/rt/internal/rtlog"
	"devicert-go/types"
)

// MaxPerCategory bounds each array so an index fits IndexedPath.
const MaxPerCategory = 256

// Ensure the registry satisfies the contracts at compile time.
var (
	_ locator.Table = (*Registry)(nil)
	_ core.WaitList = (*Registry)(nil)
)

type Registry struct {
	arrays [types.NumCategories][]core.Resource
	sealed bool

	// interrupt source -> resources that care about it
	irqs map[types.Event][]types.IndexedPath
	// event -> wakers to invoke when it is next drained
	waits map[types.Event][]core.Waker

	log *zap.Logger
}

func New() *Registry {
	return &Registry{
		irqs:  make(map[types.Event][]types.IndexedPath),
		waits: make(map[types.Event][]core.Waker),
		log:   rtlog.Named("registry"),
	}
}

// ---- setup phase ----

// Install appends res to the array of category c and returns its address.
func (r *Registry) Install(c types.Category, res core.Resource) (types.IndexedPath, error) {
	const op = "registry.install"
	if r.sealed {
		return types.IndexedPath{}, errcode.New(errcode.Sealed, op, "")
	}
	if !c.Valid() || res == nil {
		return types.IndexedPath{}, errcode.New(errcode.InvalidConfig, op, "category "+c.String())
	}
	if len(r.arrays[c]) >= MaxPerCategory {
		return types.IndexedPath{}, errcode.New(errcode.InvalidConfig, op, c.String()+" array full")
	}
	r.arrays[c] = append(r.arrays[c], res)
	ip := types.IndexedPath{Category: c, Index: uint8(len(r.arrays[c]) - 1)}
	r.log.Debug("installed", zap.Stringer("category", c), zap.Uint8("index", ip.Index),
		zap.Stringer("path", res.Path()))
	return ip, nil
}

// AssociateInterrupt records that interrupts from src feed the resource at p.
// The registry does not enable or disable interrupt lines itself.
func (r *Registry) AssociateInterrupt(p types.IndexedPath, src types.Event) error {
	const op = "registry.associate_interrupt"
	if r.sealed {
		return errcode.New(errcode.Sealed, op, "")
	}
	if !r.exists(p) {
		return errcode.New(errcode.ResourceNotFound, op, p.Category.String()+"["+strconv.Itoa(int(p.Index))+"]")
	}
	if slices.Contains(r.irqs[src], p) {
		return nil
	}
	r.irqs[src] = append(r.irqs[src], p)
	return nil
}

// Seal freezes the resource arrays. It is idempotent.
func (r *Registry) Seal() {
	if r.sealed {
		return
	}
	for c := range r.arrays {
		r.arrays[c] = slices.Clip(r.arrays[c])
	}
	r.sealed = true
	for _, key := range locator.Ambiguous(r) {
		r.log.Warn("pin configured as both input and output; gpio locators resolve to the input",
			zap.String("pin", key))
	}
}

func (r *Registry) Sealed() bool { return r.sealed }

// ---- resolution ----

func (r *Registry) Len(c types.Category) int {
	if !c.Valid() {
		return 0
	}
	return len(r.arrays[c])
}

func (r *Registry) PathAt(c types.Category, i int) locator.RawPath {
	return r.arrays[c][i].Path()
}

// Open parses and resolves a locator into a ResourceID.
func (r *Registry) Open(loc string) (types.ResourceID, error) {
	l, err := locator.Parse(loc)
	if err != nil {
		return types.ResourceID{}, err
	}
	id, err := locator.ResolveLocator(l, r)
	if err != nil {
		return types.ResourceID{}, errcode.Wrap(errcode.ResourceNotFound, "registry.open", err)
	}
	return id, nil
}

// Locators lists every installed resource as "<category>/<key>", in array order.
func (r *Registry) Locators() []string {
	var out []string
	for c := range r.arrays {
		for _, res := range r.arrays[c] {
			out = append(out, res.Path().String())
		}
	}
	return out
}

func (r *Registry) exists(p types.IndexedPath) bool {
	return p.Category.Valid() && int(p.Index) < len(r.arrays[p.Category])
}

// Object returns the capability object behind id in O(1). A ResourceID that
// was not produced by this registry is a programming error and panics.
func (r *Registry) Object(id types.ResourceID) core.Resource {
	if !r.exists(id.Path) {
		r.log.Error("foreign resource id",
			zap.Stringer("category", id.Path.Category), zap.Uint8("index", id.Path.Index))
		panic(errcode.New(errcode.ResourceNotFound, "registry.object", id.Path.Category.String()))
	}
	return r.arrays[id.Path.Category][id.Path.Index]
}

// ---- wait-list ----

// RegisterWaker arranges for w to be invoked when ev is next dispatched.
func (r *Registry) RegisterWaker(ev types.Event, w core.Waker) {
	if w == nil {
		return
	}
	r.waits[ev] = append(r.waits[ev], w)
}

// Dispatch delivers one drained event: the associated resources see it via
// HandleEvent first, then every waker registered for it is invoked and the
// registrations are cleared. It returns the number of wakers invoked.
func (r *Registry) Dispatch(ev types.Event) int {
	for _, p := range r.irqs[ev] {
		r.arrays[p.Category][p.Index].HandleEvent(ev)
	}
	ws := r.waits[ev]
	if len(ws) == 0 {
		return 0
	}
	delete(r.waits, ev)
	for _, w := range ws {
		w.Wake()
	}
	return len(ws)
}

// Waiting lists the events that currently have registered wakers, in event order.
func (r *Registry) Waiting() []types.Event {
	evs := make([]types.Event, 0, len(r.waits))
	for ev := range r.waits {
		evs = append(evs, ev)
	}
	slices.SortFunc(evs, types.Event.Compare)
	return evs
}

// ---- I/O dispatch ----

func (r *Registry) PollRead(cx *core.Context, id types.ResourceID, buf []byte) (int, error) {
	return r.Object(id).PollRead(core.NewConfig(id, cx), buf)
}

func (r *Registry) PollWrite(cx *core.Context, id types.ResourceID, buf []byte) (int, error) {
	return r.Object(id).PollWrite(core.NewConfig(id, cx), buf)
}

func (r *Registry) PollFlush(cx *core.Context, id types.ResourceID) error {
	return r.Object(id).PollFlush(core.NewConfig(id, cx))
}

func (r *Registry) PollClose(cx *core.Context, id types.ResourceID) error {
	return r.Object(id).PollClose(core.NewConfig(id, cx))
}

func (r *Registry) PollSeek(cx *core.Context, id types.ResourceID, offset int64, whence int) (int64, error) {
	return r.Object(id).PollSeek(core.NewConfig(id, cx), offset, whence)
}
