// Package spotgrid is the driver-side view of a lot: it lays the occupancy
// snapshot out as rows of spots, tracks the spot the driver picked and runs
// the pay-then-announce checkout.
package spotgrid

import (
	"errors"
	"strconv"
	"sync"

	"github.com/iliyamo/smartpark/internal/realtime"
)

var (
	ErrUnknownSpot  = errors.New("unknown spot")
	ErrSpotOccupied = errors.New("spot is occupied")
	ErrSpotHidden   = errors.New("spot is not selectable")
)

// Layout describes the fixed geometry of a lot. Spots are numbered from 1.
type Layout struct {
	Total  int
	PerRow int
	// Hidden spots keep their place in the grid but can never be selected.
	Hidden []string
	// AislesAfter lists 1-based row numbers followed by a driving aisle.
	AislesAfter []int
}

// DefaultLayout is the 72-spot lot used by every plaza.
func DefaultLayout() Layout {
	return Layout{Total: 72, PerRow: 12, Hidden: []string{"72"}, AislesAfter: []int{2, 4}}
}

// Cell is one spot as rendered in the grid.
type Cell struct {
	ID       string `json:"id"`
	Occupied bool   `json:"occupied"`
	Hidden   bool   `json:"hidden,omitempty"`
	Selected bool   `json:"selected,omitempty"`
}

// Grid is safe for concurrent use: snapshots usually arrive on the websocket
// reader goroutine while selection happens elsewhere.
type Grid struct {
	mu       sync.Mutex
	layout   Layout
	cells    []Cell
	index    map[string]int
	aisles   map[int]bool
	selected string
}

// New builds an all-free grid for layout.
func New(layout Layout) *Grid {
	if layout.Total <= 0 {
		layout = DefaultLayout()
	}
	if layout.PerRow <= 0 {
		layout.PerRow = layout.Total
	}
	hidden := make(map[string]bool, len(layout.Hidden))
	for _, id := range layout.Hidden {
		hidden[id] = true
	}
	g := &Grid{
		layout: layout,
		cells:  make([]Cell, layout.Total),
		index:  make(map[string]int, layout.Total),
		aisles: make(map[int]bool, len(layout.AislesAfter)),
	}
	for i := range g.cells {
		id := strconv.Itoa(i + 1)
		g.cells[i] = Cell{ID: id, Hidden: hidden[id]}
		g.index[id] = i
	}
	for _, r := range layout.AislesAfter {
		g.aisles[r] = true
	}
	return g
}

// Apply merges a snapshot into the grid. Ids outside the layout are ignored
// and spots missing from the snapshot keep their last state. A selection
// whose spot turns occupied is cleared; Apply reports whether that happened.
func (g *Grid) Apply(s realtime.Snapshot) (selectionLost bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, st := range s {
		i, ok := g.index[st.ID]
		if !ok {
			continue
		}
		g.cells[i].Occupied = st.Occupied
	}
	if g.selected != "" && g.cells[g.index[g.selected]].Occupied {
		g.selected = ""
		return true
	}
	return false
}

// Select marks id as the driver's choice. Occupied and hidden spots are
// rejected and leave the current selection untouched.
func (g *Grid) Select(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	i, ok := g.index[id]
	if !ok {
		return ErrUnknownSpot
	}
	switch c := g.cells[i]; {
	case c.Hidden:
		return ErrSpotHidden
	case c.Occupied:
		return ErrSpotOccupied
	}
	g.selected = id
	return nil
}

// Clear drops the current selection.
func (g *Grid) Clear() {
	g.mu.Lock()
	g.selected = ""
	g.mu.Unlock()
}

// Selected returns the selected spot id.
func (g *Grid) Selected() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.selected, g.selected != ""
}

// Free counts selectable spots that are not occupied.
func (g *Grid) Free() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.cells {
		if !c.Hidden && !c.Occupied {
			n++
		}
	}
	return n
}

// Rows returns a copy of the grid split into rows of Layout.PerRow cells.
func (g *Grid) Rows() [][]Cell {
	g.mu.Lock()
	defer g.mu.Unlock()
	per := g.layout.PerRow
	rows := make([][]Cell, 0, (len(g.cells)+per-1)/per)
	for start := 0; start < len(g.cells); start += per {
		end := start + per
		if end > len(g.cells) {
			end = len(g.cells)
		}
		row := make([]Cell, end-start)
		copy(row, g.cells[start:end])
		for j := range row {
			row[j].Selected = row[j].ID == g.selected
		}
		rows = append(rows, row)
	}
	return rows
}

// AisleAfter reports whether the 1-based row is followed by an aisle.
func (g *Grid) AisleAfter(row int) bool {
	return g.aisles[row]
}
