package engine

// Package engine implements the inventory reconciliation engine: local
// slot mutations apply instantly, and a diff-based sync converges the
// remote store to match. One Engine exists per running session; callers
// hold the value and never reach for ambient globals.

import (
	"log"
	"sync"
	"time"

	"github.com/gravitas-games/farmsync/internal/config"
	"github.com/gravitas-games/farmsync/internal/gateway"
	"github.com/gravitas-games/farmsync/internal/inventory"
	"github.com/gravitas-games/farmsync/internal/items"
)

// SessionProvider supplies the engine's identity preconditions.
// Satisfied by *session.Provider.
type SessionProvider interface {
	IsReady() bool
	CurrentOwnerID() string
}

// Engine owns the local inventories, the identity cache and the
// reconciliation machinery. All state is guarded by mu; remote calls
// are issued with mu released so local mutations stay responsive while
// a sync is in flight.
type Engine struct {
	gw      gateway.Gateway
	session SessionProvider
	catalog *items.Catalog

	mu          sync.Mutex
	inventories map[string]*inventory.Inventory
	sizes       map[string]int
	cache       *identityCache

	// Scheduler state for drag/sync deferral.
	syncing    bool
	dragging   bool
	dragLocked map[SlotKey]bool
	deferred   []func()

	// Debounce and cooldown bookkeeping.
	lastSync        map[string]time.Time
	lastConsume     map[SlotKey]time.Time
	debounce        time.Duration
	consumeCooldown time.Duration

	reloadObservers []func()

	now func() time.Time // injectable for tests
}

// New constructs an engine with one fixed-size inventory per
// configured container. Inventories live for the whole session; they
// are only ever reset, never destroyed.
func New(cfg config.EngineConfig, gw gateway.Gateway, sess SessionProvider, catalog *items.Catalog) *Engine {
	if catalog == nil {
		catalog = items.NewCatalog()
	}
	e := &Engine{
		gw:              gw,
		session:         sess,
		catalog:         catalog,
		inventories:     make(map[string]*inventory.Inventory, len(cfg.Inventories)),
		sizes:           make(map[string]int, len(cfg.Inventories)),
		cache:           newIdentityCache(),
		dragLocked:      make(map[SlotKey]bool),
		lastSync:        make(map[string]time.Time),
		lastConsume:     make(map[SlotKey]time.Time),
		debounce:        time.Duration(cfg.DebounceMs) * time.Millisecond,
		consumeCooldown: time.Duration(cfg.ConsumeCooldownMs) * time.Millisecond,
		now:             time.Now,
	}
	for _, ic := range cfg.Inventories {
		e.inventories[ic.Name] = inventory.New(ic.Name, ic.Slots)
		e.sizes[ic.Name] = ic.Slots
	}
	return e
}

// Inventory returns the named local inventory, or nil if unknown.
// Callers read slots directly after a reload signal.
func (e *Engine) Inventory(name string) *inventory.Inventory {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inventories[name]
}

// Catalog returns the item catalog collaborator.
func (e *Engine) Catalog() *items.Catalog {
	return e.catalog
}

// OnReload subscribes to the "local state reloaded from remote truth"
// signal. Observers are invoked with no payload after any sync that
// performed a full reload; they re-read the inventories directly.
func (e *Engine) OnReload(fn func()) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	e.reloadObservers = append(e.reloadObservers, fn)
	e.mu.Unlock()
}

func (e *Engine) notifyReload() {
	e.mu.Lock()
	observers := make([]func(), len(e.reloadObservers))
	copy(observers, e.reloadObservers)
	e.mu.Unlock()
	for _, fn := range observers {
		fn()
	}
}

// BeginDrag marks a drag gesture on one slot. While a drag is active,
// structural operations are deferred and the dragged slot is exempt
// from reload overwrites.
func (e *Engine) BeginDrag(inventoryName string, slotIdx int) {
	e.mu.Lock()
	e.dragging = true
	e.dragLocked[SlotKey{Inventory: inventoryName, Slot: slotIdx}] = true
	e.mu.Unlock()
}

// EndDrag clears the drag gesture and drains any operations deferred
// while it was active.
func (e *Engine) EndDrag() {
	e.mu.Lock()
	e.dragging = false
	e.dragLocked = make(map[SlotKey]bool)
	e.mu.Unlock()
	e.drainDeferred()
}

// deferOp queues an operation while a drag or sync is active. Caller
// must hold e.mu. Entries replay in FIFO order; a replayed entry that
// finds the flags set again simply re-queues itself, so draining is
// re-entrant rather than a single flush.
func (e *Engine) deferOp(fn func()) {
	e.deferred = append(e.deferred, fn)
}

// busyLocked reports whether structural operations must be deferred.
// Caller must hold e.mu.
func (e *Engine) busyLocked() bool {
	return e.syncing || e.dragging
}

// drainDeferred replays queued operations once both flags are clear.
func (e *Engine) drainDeferred() {
	for {
		e.mu.Lock()
		if e.busyLocked() || len(e.deferred) == 0 {
			e.mu.Unlock()
			return
		}
		fn := e.deferred[0]
		e.deferred = e.deferred[1:]
		e.mu.Unlock()
		fn()
	}
}

// stackCapFor resolves the stack cap for an item via the catalog.
func (e *Engine) stackCapFor(item items.ItemID) int {
	return e.catalog.StackCapFor(item)
}

// logSkip records a swallowed per-call failure. The engine favors
// eventual convergence over hard failure: the slot stays unreconciled
// and the next cycle retries.
func logSkip(op string, key SlotKey, res gateway.Result) {
	if res.Err != nil {
		log.Printf("%s failed for %s: %v", op, key, res.Err)
		return
	}
	log.Printf("%s failed for %s: status %d", op, key, res.StatusCode)
}
