package clinical

import (
	"fmt"
	"sort"
	"time"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	"github.com/vladimiradmaev/glucose-guide/internal/utils"
)

// Window is a named daily slot bounded by minutes since midnight, inclusive on both ends.
type Window struct {
	Slot  domain.WindowSlot
	Start int
	End   int
}

// Contains reports whether minute falls inside the window.
func (w Window) Contains(minute int) bool {
	return minute >= w.Start && minute <= w.End
}

func (w Window) String() string {
	return fmt.Sprintf("%s %s-%s", w.Slot, utils.MinutesToTime(w.Start), utils.MinutesToTime(w.End))
}

// WindowTable is the immutable set of measurement windows in force.
type WindowTable struct {
	windows []Window
}

// DefaultWindows is the clinic's standard five-slot day.
func DefaultWindows() []Window {
	return []Window{
		{Slot: domain.SlotMorning, Start: 7 * 60, End: 8*60 + 59},
		{Slot: domain.SlotNoon, Start: 12 * 60, End: 13*60 + 59},
		{Slot: domain.SlotAfternoon, Start: 15 * 60, End: 16*60 + 59},
		{Slot: domain.SlotEvening, Start: 18 * 60, End: 19*60 + 59},
		{Slot: domain.SlotNight, Start: 22 * 60, End: 23*60 + 59},
	}
}

// DefaultWindowTable returns the table built from DefaultWindows.
func DefaultWindowTable() *WindowTable {
	t, err := NewWindowTable(DefaultWindows())
	if err != nil {
		panic(err)
	}
	return t
}

// NewWindowTable validates windows and returns them ordered by start time.
func NewWindowTable(windows []Window) (*WindowTable, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("window table is empty")
	}

	sorted := make([]Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	seen := make(map[domain.WindowSlot]bool, len(sorted))
	for i, w := range sorted {
		if !w.Slot.Classified() {
			return nil, fmt.Errorf("window %d has no slot name", i)
		}
		if !w.Slot.Known() {
			return nil, fmt.Errorf("window %d has unknown slot %q", i, w.Slot)
		}
		if seen[w.Slot] {
			return nil, fmt.Errorf("slot %q is defined twice", w.Slot)
		}
		seen[w.Slot] = true

		if w.Start < 0 || w.End >= 24*60 {
			return nil, fmt.Errorf("window %s is outside the day", w)
		}
		if w.Start > w.End {
			return nil, fmt.Errorf("window %s starts after it ends", w)
		}
		if i > 0 && w.Start <= sorted[i-1].End {
			return nil, fmt.Errorf("window %s overlaps %s", w, sorted[i-1])
		}
	}

	return &WindowTable{windows: sorted}, nil
}

// Classify returns the slot containing the wall-clock time of t, or SlotNone.
// Seconds are ignored, so 08:59:59 still belongs to a window ending at 08:59.
func (t *WindowTable) Classify(at time.Time) domain.WindowSlot {
	minute := utils.MinuteOfDay(at)
	for _, w := range t.windows {
		if w.Contains(minute) {
			return w.Slot
		}
	}
	return domain.SlotNone
}

// Windows returns a copy of the table in start order.
func (t *WindowTable) Windows() []Window {
	out := make([]Window, len(t.windows))
	copy(out, t.windows)
	return out
}

// Len is the number of slots a complete day fills.
func (t *WindowTable) Len() int {
	return len(t.windows)
}
