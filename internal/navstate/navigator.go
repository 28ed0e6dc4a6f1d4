package navstate

import (
	"sync"
	"time"

	"github.com/absolutastore/storefront-backend/internal/catalog"
)

// DefaultDebounce coalesces rapid search input before filtering.
const DefaultDebounce = 300 * time.Millisecond

// Catalog is the read side of the catalog store the navigator filters.
type Catalog interface {
	Products() []catalog.Product
	Featured() []catalog.Product
}

// View is what a renderer needs after a navigation command.
type View struct {
	State    FilterState       `json:"state"`
	Fragment string            `json:"fragment"`
	Products []catalog.Product `json:"products"`
	Empty    bool              `json:"empty"`
	// Featured is set when no navigation state was present and the featured
	// products are shown instead of a filtered listing.
	Featured bool `json:"featured"`
}

// Navigator holds the current filter state of one browsing session and turns
// commands into views. Pushing the fragment into history stays with the caller.
type Navigator struct {
	catalog Catalog

	mu    sync.Mutex
	state FilterState
}

func NewNavigator(c Catalog) *Navigator {
	return &Navigator{
		catalog: c,
		state:   FilterState{Category: catalog.CategoryAll},
	}
}

// State returns the current filter state.
func (n *Navigator) State() FilterState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// OnCategorySelect switches category and keeps the current search term.
func (n *Navigator) OnCategorySelect(category string) View {
	n.mu.Lock()
	n.state = FilterState{Category: category, SearchTerm: n.state.SearchTerm}.Normalize()
	state := n.state
	n.mu.Unlock()
	return n.render(state)
}

// OnSearchInput applies a (debounced) search term within the current category.
func (n *Navigator) OnSearchInput(term string) View {
	n.mu.Lock()
	n.state = FilterState{Category: n.state.Category, SearchTerm: term}.Normalize()
	state := n.state
	n.mu.Unlock()
	return n.render(state)
}

// OnNavigate re-derives state from an externally changed fragment, e.g.
// back/forward or a shared link.
func (n *Navigator) OnNavigate(fragment string) View {
	state := DecodeState(fragment)

	n.mu.Lock()
	n.state = state
	n.mu.Unlock()

	if IsEmpty(fragment) && n.catalog != nil {
		featured := n.catalog.Featured()
		return View{
			State:    state,
			Fragment: Encode(state.Category, state.SearchTerm),
			Products: featured,
			Empty:    len(featured) == 0,
			Featured: true,
		}
	}
	return n.render(state)
}

func (n *Navigator) render(state FilterState) View {
	var products []catalog.Product
	if n.catalog != nil {
		products = catalog.Filter(n.catalog.Products(), state.Category, state.SearchTerm)
	} else {
		products = []catalog.Product{}
	}
	return View{
		State:    state,
		Fragment: Encode(state.Category, state.SearchTerm),
		Products: products,
		Empty:    len(products) == 0,
	}
}

// Debouncer runs only the last function triggered within the delay window.
// It is owned by whoever feeds it input; the navigator itself never waits.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, cancelling any pending call.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels a pending call. It reports whether one was pending.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}

// SearchInput feeds raw input through the debouncer into the navigator and
// hands the resulting view to onView.
func SearchInput(d *Debouncer, n *Navigator, term string, onView func(View)) {
	d.Trigger(func() {
		view := n.OnSearchInput(term)
		if onView != nil {
			onView(view)
		}
	})
}
