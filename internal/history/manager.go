// Package history keeps the undo/redo stack of segmentation documents.
//
// Each committed entry is an independent deep copy. Between commits the
// editor mutates a separate working copy through CommitWithoutHistory, so a
// continuous gesture produces at most one entry when it ends.
package history

import (
	"encoding/binary"
	"math"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/spheroseg/segeditor/internal/document"
)

const DefaultMaxEntries = 100

// Entry is one committed snapshot.
type Entry struct {
	Action string
	Doc    *document.Document
	Hash   [blake2b.Size256]byte
}

type Manager struct {
	mu         sync.Mutex
	entries    []Entry
	cursor     int
	working    *document.Document
	revision   uint64
	maxEntries int
}

// New returns an empty manager that keeps at most maxEntries snapshots.
// maxEntries <= 0 selects DefaultMaxEntries.
func New(maxEntries int) *Manager {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Manager{maxEntries: maxEntries, cursor: -1}
}

// Init discards all history and makes doc entry 0.
func (m *Manager) Init(doc *document.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := doc.Clone()
	m.entries = []Entry{{Action: "load", Doc: snap, Hash: Hash(snap)}}
	m.cursor = 0
	m.working = snap.Clone()
	m.revision++
}

// Commit records doc as a new entry after the cursor, dropping any redo
// entries. It reports false when doc is structurally identical to the
// current entry, in which case only the working copy is updated.
func (m *Manager) Commit(action string, doc *document.Document) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := doc.Clone()
	h := Hash(snap)
	m.working = snap.Clone()
	m.revision++

	if m.cursor < 0 {
		m.entries = []Entry{{Action: action, Doc: snap, Hash: h}}
		m.cursor = 0
		return true
	}
	if m.entries[m.cursor].Hash == h {
		return false
	}

	m.entries = append(m.entries[:m.cursor+1], Entry{Action: action, Doc: snap, Hash: h})
	m.cursor++
	if over := len(m.entries) - m.maxEntries; over > 0 {
		m.entries = append([]Entry(nil), m.entries[over:]...)
		m.cursor -= over
	}
	return true
}

// CommitWithoutHistory replaces the working copy only.
func (m *Manager) CommitWithoutHistory(doc *document.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.working = doc.Clone()
	m.revision++
}

// Undo moves the cursor back one entry and returns a fresh copy of it as
// the new working document. It is a no-op at entry 0.
func (m *Manager) Undo() (*document.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor <= 0 {
		return nil, false
	}
	m.cursor--
	return m.restore(), true
}

// Redo moves the cursor forward one entry. It is a no-op at the newest entry.
func (m *Manager) Redo() (*document.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor < 0 || m.cursor >= len(m.entries)-1 {
		return nil, false
	}
	m.cursor++
	return m.restore(), true
}

func (m *Manager) restore() *document.Document {
	m.working = m.entries[m.cursor].Doc.Clone()
	m.revision++
	return m.working.Clone()
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor >= 0 && m.cursor < len(m.entries)-1
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Cursor is the index of the current entry, or -1 before Init.
func (m *Manager) Cursor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// UndoAction names the entry Undo would revert.
func (m *Manager) UndoAction() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor <= 0 {
		return ""
	}
	return m.entries[m.cursor].Action
}

// Working returns a copy of the working document, or nil before Init.
func (m *Manager) Working() *document.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.working == nil {
		return nil
	}
	return m.working.Clone()
}

// Revision increases on every change to the working document.
func (m *Manager) Revision() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision
}

func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.cursor = -1
	m.working = nil
	m.revision++
}

// Hash digests the editable content of a document: polygon ids, kinds,
// labels and every coordinate, in order. Timestamps and status are ignored.
func Hash(doc *document.Document) [blake2b.Size256]byte {
	h, _ := blake2b.New256(nil)
	if doc == nil {
		var out [blake2b.Size256]byte
		copy(out[:], h.Sum(nil))
		return out
	}
	var buf [8]byte
	putFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	putString := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}
	for _, p := range doc.Polygons {
		putString(p.ID)
		putString(string(p.Kind))
		putString(p.Class)
		putString(p.Color)
		binary.LittleEndian.PutUint64(buf[:], uint64(len(p.Points)))
		h.Write(buf[:])
		for _, pt := range p.Points {
			putFloat(pt.X)
			putFloat(pt.Y)
		}
	}
	var out [blake2b.Size256]byte
	copy(out[:], h.Sum(nil))
	return out
}
