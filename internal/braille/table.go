package braille

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
)

//go:embed tables/*.json
var embeddedTables embed.FS

// CellWidth is the number of dots in one Braille cell pattern.
const CellWidth = 6

// ErrInvalidTable is returned when a class table fails validation.
var ErrInvalidTable = errors.New("invalid braille table")

// Entry is the static meaning of one class id: its dot pattern and display text.
//
// Binary holds one 6-character 0/1 segment per cell (dots 1-6 in order).
// Multi-cell forms join their segments with "-", e.g. "000010-101110".
type Entry struct {
	Binary  string `json:"binary"`
	Meaning string `json:"meaning"`
}

// Unknown is returned for class ids missing from a table.
var Unknown = Entry{Binary: "??????", Meaning: "?"}

// IsUnknown reports whether e is the Unknown sentinel.
func (e Entry) IsUnknown() bool {
	return e == Unknown
}

// Cells splits Binary into its per-cell segments.
func (e Entry) Cells() []string {
	return strings.Split(e.Binary, "-")
}

// Table maps model-local class ids to entries for a single grade.
// A Table is read-only once built.
type Table struct {
	grade   Grade
	entries map[int]Entry
	maxID   int
}

type tableFile struct {
	Grade   int `json:"grade"`
	Entries []struct {
		ID      int    `json:"id"`
		Binary  string `json:"binary"`
		Meaning string `json:"meaning"`
	} `json:"entries"`
}

// LoadTable decodes and validates a JSON class table:
//
//	{"grade": 1, "entries": [{"id": 0, "binary": "100000", "meaning": "a"}, ...]}
func LoadTable(r io.Reader) (*Table, error) {
	var f tableFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}

	g := Grade(f.Grade)
	if !g.Valid() {
		return nil, fmt.Errorf("%w: grade %d", ErrInvalidTable, f.Grade)
	}
	if len(f.Entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrInvalidTable)
	}

	t := &Table{grade: g, entries: make(map[int]Entry, len(f.Entries)), maxID: -1}
	for _, e := range f.Entries {
		if e.ID < 0 {
			return nil, fmt.Errorf("%w: negative id %d", ErrInvalidTable, e.ID)
		}
		if _, dup := t.entries[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %d", ErrInvalidTable, e.ID)
		}
		if err := validatePattern(e.Binary); err != nil {
			return nil, fmt.Errorf("%w: id %d: %v", ErrInvalidTable, e.ID, err)
		}
		if e.Meaning == "" {
			return nil, fmt.Errorf("%w: id %d: empty meaning", ErrInvalidTable, e.ID)
		}
		t.entries[e.ID] = Entry{Binary: e.Binary, Meaning: e.Meaning}
		if e.ID > t.maxID {
			t.maxID = e.ID
		}
	}
	return t, nil
}

// LoadTableFile reads a class table from disk.
func LoadTableFile(filename string) (*Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	t, err := LoadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return t, nil
}

func validatePattern(p string) error {
	if p == "" {
		return errors.New("empty binary pattern")
	}
	for _, seg := range strings.Split(p, "-") {
		if len(seg) != CellWidth {
			return fmt.Errorf("pattern %q: segment %q is not %d dots", p, seg, CellWidth)
		}
		for _, c := range seg {
			if c != '0' && c != '1' {
				return fmt.Errorf("pattern %q: unexpected %q", p, c)
			}
		}
	}
	return nil
}

// Grade returns the grade the table was declared for.
func (t *Table) Grade() Grade { return t.grade }

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// MaxID returns the largest class id in the table.
func (t *Table) MaxID() int { return t.maxID }

// Lookup returns the entry for a local class id.
func (t *Table) Lookup(id int) (Entry, bool) {
	if t == nil {
		return Unknown, false
	}
	e, ok := t.entries[id]
	if !ok {
		return Unknown, false
	}
	return e, true
}

// Find returns the first id (lowest) whose meaning matches exactly.
func (t *Table) Find(meaning string) (int, Entry, bool) {
	best := -1
	for id, e := range t.entries {
		if e.Meaning == meaning && (best < 0 || id < best) {
			best = id
		}
	}
	if best < 0 {
		return -1, Unknown, false
	}
	return best, t.entries[best], true
}

var (
	defaultOnce   sync.Once
	defaultTables map[Grade]*Table
	defaultErr    error
)

// DefaultTable returns the embedded table for g. The tables are parsed once
// and shared by every caller.
func DefaultTable(g Grade) (*Table, error) {
	defaultOnce.Do(func() {
		defaultTables = make(map[Grade]*Table, 2)
		for _, grade := range []Grade{Grade1, Grade2} {
			name := path.Join("tables", fmt.Sprintf("grade%d.json", int(grade)))
			f, err := embeddedTables.Open(name)
			if err != nil {
				defaultErr = err
				return
			}
			t, err := LoadTable(f)
			f.Close()
			if err != nil {
				defaultErr = fmt.Errorf("%s: %w", name, err)
				return
			}
			defaultTables[grade] = t
		}
	})
	if defaultErr != nil {
		return nil, defaultErr
	}
	t, ok := defaultTables[g]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownGrade, g)
	}
	return t, nil
}
