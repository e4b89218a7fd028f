package entity

import (
	"fmt"
	"slices"
	"time"

	"github.com/rocketscienceinc/bingo-backend/internal/apperror"
)

const (
	MinSize     = 2
	MaxSize     = 6
	DefaultSize = 4

	EmptyItem = ""
)

// Marks is the set of marked cell indices. Only true entries are kept,
// which gives the {"3": true} wire shape.
type Marks map[int]bool

func (that Marks) Has(index int) bool {
	return that[index]
}

// Toggle flips membership of index and reports whether it is now marked.
func (that Marks) Toggle(index int) bool {
	if that[index] {
		delete(that, index)
		return false
	}

	that[index] = true
	return true
}

// Indices returns the marked indices in increasing order.
func (that Marks) Indices() []int {
	indices := make([]int, 0, len(that))
	for index, marked := range that {
		if marked {
			indices = append(indices, index)
		}
	}

	slices.Sort(indices)

	return indices
}

func (that Marks) Clone() Marks {
	clone := make(Marks, len(that))
	for index, marked := range that {
		if marked {
			clone[index] = true
		}
	}
	return clone
}

type Session struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Size      int      `json:"size"`
	Items     []string `json:"items"`
	Marks     Marks    `json:"marks"`
	UpdatedAt int64    `json:"updatedAt"`
}

// SessionConfig is the user supplied part of a session.
type SessionConfig struct {
	Name  string
	Size  int
	Items []string
}

// SessionUpdate carries the fields of a partial update. Nil fields are left untouched.
type SessionUpdate struct {
	Name  *string
	Size  *int
	Items []string
}

func NewSession(id string, config SessionConfig) (*Session, error) {
	if err := ValidateSize(config.Size); err != nil {
		return nil, err
	}

	session := &Session{
		ID:    id,
		Name:  config.Name,
		Size:  config.Size,
		Items: NormalizeItems(config.Items, config.Size),
		Marks: Marks{},
	}
	session.Touch()

	return session, nil
}

func ValidateSize(size int) error {
	if size < MinSize || size > MaxSize {
		return fmt.Errorf("%w: size %d not in [%d,%d]", apperror.ErrInvalidConfig, size, MinSize, MaxSize)
	}
	return nil
}

// NormalizeItems truncates or right-pads items to exactly size*size entries.
func NormalizeItems(items []string, size int) []string {
	cells := size * size

	normalized := make([]string, cells)
	copied := copy(normalized, items)

	for i := copied; i < cells; i++ {
		normalized[i] = EmptyItem
	}

	return normalized
}

func (that *Session) Cells() int {
	return that.Size * that.Size
}

// Apply merges a partial update. Items are re-normalized to the resulting size
// and marks that no longer fit the grid are dropped.
func (that *Session) Apply(update SessionUpdate) error {
	if update.Size != nil {
		if err := ValidateSize(*update.Size); err != nil {
			return err
		}
		that.Size = *update.Size
	}

	if update.Name != nil {
		that.Name = *update.Name
	}

	items := that.Items
	if update.Items != nil {
		items = update.Items
	}
	that.Items = NormalizeItems(items, that.Size)

	that.pruneMarks()
	that.Touch()

	return nil
}

func (that *Session) ToggleMark(index int) error {
	if index < 0 || index >= that.Cells() {
		return fmt.Errorf("%w: index %d, grid has %d cells", apperror.ErrOutOfRange, index, that.Cells())
	}

	if that.Marks == nil {
		that.Marks = Marks{}
	}

	that.Marks.Toggle(index)
	that.Touch()

	return nil
}

func (that *Session) ResetMarks() {
	that.Marks = Marks{}
	that.Touch()
}

// Reset restores the default configuration while keeping the id.
func (that *Session) Reset() {
	that.Name = ""
	that.Size = DefaultSize
	that.Items = NormalizeItems(nil, DefaultSize)
	that.Marks = Marks{}
	that.Touch()
}

func (that *Session) Touch() {
	that.UpdatedAt = time.Now().UnixMilli()
}

func (that *Session) pruneMarks() {
	for index := range that.Marks {
		if index < 0 || index >= that.Cells() {
			delete(that.Marks, index)
		}
	}
}
