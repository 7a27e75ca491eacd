package listing

import (
	"context"
	"errors"
	"sync"
)

// LoadState tracks the lifecycle of the collection behind a controller.
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateLoaded
	StateLoadFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateLoadFailed:
		return "load_failed"
	default:
		return "idle"
	}
}

// CloseReason records how the overlay was dismissed.
type CloseReason string

const (
	CloseControl CloseReason = "control"
	CloseOutside CloseReason = "outside"
	CloseCancel  CloseReason = "cancel"
)

// ErrItemNotFound is returned when a detail is requested for an unknown item.
var ErrItemNotFound = errors.New("listing: item not found")

// ViewState is the user-controlled presentation state.
type ViewState struct {
	Filter   Predicate
	Mode     ViewMode
	Selected string
}

// Overlay is the shared detail surface. Opener is the id of the control that opened it.
type Overlay struct {
	Open   bool
	Detail Detail
	Opener string
}

// Recorder receives load outcomes, typically backed by Prometheus counters.
type Recorder interface {
	LoadFinished(collection string, outcome string)
	LoadDiscarded(collection string)
}

// Controller owns one collection, its view state and the detail overlay.
//
// Loads are sequenced: when a controller is reloaded while an earlier load is
// still in flight, whichever result arrives for the older load is dropped.
// Request-scoped controllers in the HTTP handlers load exactly once, so for
// them sequencing never triggers; overlapping fetches there are collapsed by
// Store instead.
type Controller struct {
	name     string
	renderer *Renderer
	recorder Recorder

	mu         sync.Mutex
	collection Collection
	state      LoadState
	loadErr    error
	view       ViewState
	overlay    Overlay
	issued     uint64
	applied    uint64
}

// NewController returns an idle controller in grid mode with no filter.
func NewController(name string, r *Renderer, rec Recorder) *Controller {
	return &Controller{
		name:     name,
		renderer: r,
		recorder: rec,
		view:     ViewState{Mode: ModeGrid},
	}
}

// Load fetches src once. When a newer load has already been applied the result is
// discarded and ErrStaleLoad returned.
func (c *Controller) Load(ctx context.Context, src Source, opts DecodeOptions) (Collection, error) {
	token := c.begin()
	col, err := Load(ctx, src, opts)
	return c.apply(token, col, err)
}

// Use installs an already loaded collection, e.g. one served from the Store.
func (c *Controller) Use(col Collection, err error) error {
	_, err = c.apply(c.begin(), col, err)
	return err
}

func (c *Controller) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	c.state = StateLoading
	return c.issued
}

func (c *Controller) apply(token uint64, col Collection, err error) (Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token < c.applied {
		if c.recorder != nil {
			c.recorder.LoadDiscarded(c.name)
		}
		return Collection{}, ErrStaleLoad
	}
	c.applied = token
	if err != nil {
		c.state = StateLoadFailed
		c.loadErr = err
		c.collection = Collection{}
		c.record("error")
		return Collection{}, err
	}
	c.state = StateLoaded
	c.loadErr = nil
	c.collection = col
	c.record("ok")
	return col, nil
}

func (c *Controller) record(outcome string) {
	if c.recorder != nil {
		c.recorder.LoadFinished(c.name, outcome)
	}
}

// State reports the load state and the last load error.
func (c *Controller) State() (LoadState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.loadErr
}

// Collection returns the loaded collection.
func (c *Controller) Collection() Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collection
}

// SetFilter replaces the current predicate. A nil predicate shows everything.
func (c *Controller) SetFilter(p Predicate) {
	c.mu.Lock()
	c.view.Filter = p
	c.mu.Unlock()
}

// SetViewMode switches the layout without reloading.
func (c *Controller) SetViewMode(m ViewMode) {
	c.mu.Lock()
	c.view.Mode = ParseViewMode(string(m))
	c.mu.Unlock()
}

// ViewState returns a copy of the current view state.
func (c *Controller) ViewState() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Visible returns the filtered items in collection order.
func (c *Controller) Visible() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Filter(c.collection.Items, c.view.Filter)
}

// Render produces the full replacement output for the items container.
func (c *Controller) Render() View {
	c.mu.Lock()
	state, mode := c.state, c.view.Mode
	items := Filter(c.collection.Items, c.view.Filter)
	c.mu.Unlock()

	if state == StateLoadFailed {
		return c.renderer.RenderError(mode)
	}
	return c.renderer.Render(items, mode)
}

// OpenDetail fills the overlay with id's detail, replacing previous content.
func (c *Controller) OpenDetail(id, opener string) (Overlay, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.collection.Find(id)
	if !ok {
		return Overlay{}, ErrItemNotFound
	}
	if opener == "" {
		opener = ElementID("open", id)
	}
	c.view.Selected = id
	c.overlay = Overlay{Open: true, Detail: c.renderer.Detail(it), Opener: opener}
	return c.overlay, nil
}

// CloseDetail hides and clears the overlay and returns the control that should regain focus.
func (c *Controller) CloseDetail(_ CloseReason) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	opener := c.overlay.Opener
	c.overlay = Overlay{}
	c.view.Selected = ""
	return opener
}

// Overlay returns the current overlay state.
func (c *Controller) Overlay() Overlay {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overlay
}
