package planner

import (
	"fmt"
	"sync"

	"github.com/voltroute/voltroute/internal/models"
)

// sampleCustomers are the fixed rows the upload stub injects. The stub
// deliberately ignores file contents; real parsing is unspecified.
var sampleCustomers = []models.CustomerEntry{
	{Name: "Customer 1", Address: "Address 1"},
	{Name: "Customer 2", Address: "Address 2"},
	{Name: "Customer 3", Address: "Address 3"},
}

// CustomerList is the ordered, mutable list of delivery stops a client is
// editing. Order is significant: it is the pre-optimization visit order.
type CustomerList struct {
	mu   sync.Mutex
	rows []models.CustomerEntry
}

// AddRow appends an empty, immediately editable row and returns its index.
func (l *CustomerList) AddRow() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rows = append(l.rows, models.CustomerEntry{})
	return len(l.rows) - 1
}

// UpdateRow replaces the row at index.
func (l *CustomerList) UpdateRow(index int, entry models.CustomerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.rows) {
		return fmt.Errorf("no customer row at index %d", index)
	}
	l.rows[index] = entry
	return nil
}

// RemoveRow deletes the row at index, preserving the relative order of the
// remainder.
func (l *CustomerList) RemoveRow(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.rows) {
		return fmt.Errorf("no customer row at index %d", index)
	}
	l.rows = append(l.rows[:index], l.rows[index+1:]...)
	return nil
}

// ImportRows replaces the entire list.
func (l *CustomerList) ImportRows(rows []models.CustomerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rows = append([]models.CustomerEntry(nil), rows...)
}

// ImportSample replaces the list with the fixed placeholder rows.
func (l *CustomerList) ImportSample() {
	l.ImportRows(sampleCustomers)
}

// Rows returns a copy of every row, including incomplete ones. The copy is
// never nil so the list endpoint serializes an empty array, not null.
func (l *CustomerList) Rows() []models.CustomerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append(make([]models.CustomerEntry, 0, len(l.rows)), l.rows...)
}

// Entries returns the rows that qualify for submission, in order,
// filtering out any row with an empty name or address.
func (l *CustomerList) Entries() []models.CustomerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []models.CustomerEntry
	for _, row := range l.rows {
		if row.Complete() {
			entries = append(entries, row)
		}
	}
	return entries
}

// Editors hands out the per-client customer list. Lists live in process
// memory only; like the page state they mirror, they are rebuilt from
// scratch when the process restarts.
type Editors struct {
	mu    sync.Mutex
	lists map[string]*CustomerList
}

// NewEditors creates an empty registry.
func NewEditors() *Editors {
	return &Editors{lists: make(map[string]*CustomerList)}
}

// For returns the client's list, creating it on first use.
func (e *Editors) For(clientID string) *CustomerList {
	e.mu.Lock()
	defer e.mu.Unlock()

	list, ok := e.lists[clientID]
	if !ok {
		list = &CustomerList{}
		e.lists[clientID] = list
	}
	return list
}

// Drop discards a client's list.
func (e *Editors) Drop(clientID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.lists, clientID)
}
