package engine

import (
	"sort"
	"sync"
	"time"

	"spot-trading-engine/pkg/errors"
	"spot-trading-engine/pkg/types"
)

// Book owns the position state of every symbol. All transitions go through
// its methods so the scan loop and the monitor loop never race on a slot.
type Book struct {
	cooldown time.Duration

	mu    sync.Mutex
	slots map[types.Symbol]*slot
	exits uint64
}

type slot struct {
	state     types.PositionState
	position  types.Position
	lastExit  time.Time
	lastPrice float64
}

// SlotView is a copy of one slot.
type SlotView struct {
	Symbol    types.Symbol
	State     types.PositionState
	Position  types.Position
	LastPrice float64
}

func NewBook(symbols []types.Symbol, cooldown time.Duration) *Book {
	slots := make(map[types.Symbol]*slot, len(symbols))
	for _, s := range symbols {
		slots[s] = &slot{}
	}
	return &Book{cooldown: cooldown, slots: slots}
}

// BeginEntry reserves symbol for an entry. gate receives the number of
// symbols already holding or reserving a position and may refuse.
func (b *Book) BeginEntry(symbol types.Symbol, now time.Time, gate func(active int) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.slot(symbol)
	if err != nil {
		return err
	}
	if s.state != types.PositionEmpty {
		return errors.Newf(errors.ErrCodeInvalidTransition, "%s is %s", symbol, s.state)
	}
	if !s.lastExit.IsZero() && now.Sub(s.lastExit) < b.cooldown {
		return errors.Newf(errors.ErrCodeCooldown, "%s in cooldown for %s", symbol, (b.cooldown - now.Sub(s.lastExit)).Round(time.Second))
	}
	if gate != nil {
		if err := gate(b.active()); err != nil {
			return err
		}
	}
	s.state = types.PositionEntering
	return nil
}

// CompleteEntry opens pos on a reserved symbol.
func (b *Book) CompleteEntry(symbol types.Symbol, pos types.Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.expect(symbol, types.PositionEntering)
	if err != nil {
		return err
	}
	pos.Symbol = symbol
	pos.State = types.PositionOpen
	s.position = pos
	s.state = types.PositionOpen
	s.lastPrice = pos.EntryPrice
	return nil
}

// AbortEntry releases a reservation without starting the cooldown.
func (b *Book) AbortEntry(symbol types.Symbol) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.expect(symbol, types.PositionEntering)
	if err != nil {
		return err
	}
	s.state = types.PositionEmpty
	return nil
}

// Inspect runs fn on the open position of symbol under the lock and records
// price as the last seen price. It returns a copy of the position after fn.
func (b *Book) Inspect(symbol types.Symbol, price float64, fn func(pos *types.Position)) (types.Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.slots[symbol]
	if !ok || s.state != types.PositionOpen {
		return types.Position{}, false
	}
	if price > 0 {
		s.lastPrice = price
	}
	if fn != nil {
		fn(&s.position)
	}
	return s.position, true
}

// BeginExit marks an open position as being sold and returns it.
func (b *Book) BeginExit(symbol types.Symbol) (types.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.expect(symbol, types.PositionOpen)
	if err != nil {
		return types.Position{}, err
	}
	s.state = types.PositionExiting
	s.position.State = types.PositionExiting
	b.exits++
	return s.position, nil
}

// CompleteExit clears a sold position and starts the cooldown.
func (b *Book) CompleteExit(symbol types.Symbol, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.expect(symbol, types.PositionExiting)
	if err != nil {
		return err
	}
	s.state = types.PositionEmpty
	s.position = types.Position{}
	s.lastExit = now
	s.lastPrice = 0
	return nil
}

// AbortExit puts the position back to open so the next cycle retries.
func (b *Book) AbortExit(symbol types.Symbol) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.expect(symbol, types.PositionExiting)
	if err != nil {
		return err
	}
	s.state = types.PositionOpen
	s.position.State = types.PositionOpen
	return nil
}

func (b *Book) State(symbol types.Symbol) types.PositionState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.slots[symbol]; ok {
		return s.state
	}
	return types.PositionEmpty
}

// Active counts the symbols that are not empty.
func (b *Book) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active()
}

// Snapshot copies every non empty slot, ordered by symbol.
func (b *Book) Snapshot() []SlotView {
	b.mu.Lock()
	defer b.mu.Unlock()

	views := make([]SlotView, 0, len(b.slots))
	for symbol, s := range b.slots {
		if s.state == types.PositionEmpty {
			continue
		}
		views = append(views, SlotView{Symbol: symbol, State: s.state, Position: s.position, LastPrice: s.lastPrice})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Symbol < views[j].Symbol })
	return views
}

// Cooldown returns how long symbol stays blocked after its last exit.
func (b *Book) Cooldown(symbol types.Symbol, now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.slots[symbol]
	if !ok || s.lastExit.IsZero() {
		return 0
	}
	if left := b.cooldown - now.Sub(s.lastExit); left > 0 {
		return left
	}
	return 0
}

// HeldValue is the quote value of every open position at its last seen
// price. Positions being sold are left out since their proceeds may already
// be in the quote balance.
func (b *Book) HeldValue() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	value := 0.0
	for _, s := range b.slots {
		if s.state == types.PositionOpen {
			value += s.position.Quantity * s.lastPrice
		}
	}
	return value
}

// Settlement returns a counter that moves on every exit and whether no
// position is being sold. Two equal idle readings around a balance fetch mean
// the balance and HeldValue agree.
func (b *Book) Settlement() (seq uint64, idle bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.slots {
		if s.state == types.PositionExiting {
			return b.exits, false
		}
	}
	return b.exits, true
}

func (b *Book) active() int {
	n := 0
	for _, s := range b.slots {
		if s.state != types.PositionEmpty {
			n++
		}
	}
	return n
}

func (b *Book) slot(symbol types.Symbol) (*slot, error) {
	s, ok := b.slots[symbol]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeSymbolNotFound, "%s is not traded", symbol)
	}
	return s, nil
}

func (b *Book) expect(symbol types.Symbol, state types.PositionState) (*slot, error) {
	s, err := b.slot(symbol)
	if err != nil {
		return nil, err
	}
	if s.state != state {
		return nil, errors.Newf(errors.ErrCodeInvalidTransition, "%s is %s, expected %s", symbol, s.state, state)
	}
	return s, nil
}
