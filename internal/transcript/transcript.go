package transcript

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Item is one transcript bubble. While its turn is open the Text is replaced
// with the full accumulated text on every delta.
type Item struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Text string `json:"text"`
	Open bool   `json:"open"`
}

// Aggregator merges incremental transcription deltas into display-ready items.
// Each role has at most one open item at a time; the roles are independent, so
// user speech and model speech may be open simultaneously.
type Aggregator struct {
	mu    sync.Mutex
	items []Item
	acc   map[Role]*strings.Builder
	open  map[Role]int // index into items
	newID func() string
}

func New() *Aggregator {
	return &Aggregator{
		acc:   make(map[Role]*strings.Builder),
		open:  make(map[Role]int),
		newID: uuid.NewString,
	}
}

// AppendDelta adds fragment to the role's accumulator and returns the item that
// now shows it. An empty fragment with no open item for the role is ignored and
// reports ok=false.
func (a *Aggregator) AppendDelta(role Role, fragment string) (Item, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx, isOpen := a.open[role]
	if !isOpen && fragment == "" {
		return Item{}, false
	}

	b := a.acc[role]
	if b == nil {
		b = &strings.Builder{}
		a.acc[role] = b
	}
	b.WriteString(fragment)

	if isOpen {
		a.items[idx].Text = b.String()
		return a.items[idx], true
	}

	a.items = append(a.items, Item{ID: a.newID(), Role: role, Text: b.String(), Open: true})
	idx = len(a.items) - 1
	a.open[role] = idx
	return a.items[idx], true
}

// CompleteTurn finalizes every open item and clears both accumulators. The
// next delta for either role opens a fresh item.
func (a *Aggregator) CompleteTurn() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for role, idx := range a.open {
		a.items[idx].Open = false
		delete(a.open, role)
	}
	for role := range a.acc {
		delete(a.acc, role)
	}
}

// Snapshot returns a copy of the transcript in render order.
func (a *Aggregator) Snapshot() []Item {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Item, len(a.items))
	copy(out, a.items)
	return out
}

func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// PlainText renders items as "You: ..." / "Model: ..." lines.
func PlainText(items []Item) string {
	var b strings.Builder
	for _, it := range items {
		if it.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		if it.Role == RoleUser {
			b.WriteString("You: ")
		} else {
			b.WriteString("Model: ")
		}
		b.WriteString(it.Text)
	}
	return b.String()
}
