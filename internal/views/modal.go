package views

import "sync"

// Modal is the delete confirmation dialog. It moves idle -> pending on Open
// and back to idle on Take or Cancel. T identifies the element to update
// once the deletion is confirmed.
type Modal[T any] struct {
	mu        sync.Mutex
	pendingID string
	pending   T
	text      string
}

// Open records what is about to be deleted and the prompt to show.
func (m *Modal[T]) Open(id string, element T, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingID = id
	m.pending = element
	m.text = text
}

// Take returns the pending item and closes the dialog in one step. ok is
// false when nothing was pending.
func (m *Modal[T]) Take() (id string, element T, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, element = m.pendingID, m.pending
	ok = id != ""
	m.reset()
	return id, element, ok
}

// Cancel closes the dialog without acting.
func (m *Modal[T]) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

func (m *Modal[T]) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingID != ""
}

func (m *Modal[T]) PendingID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingID
}

func (m *Modal[T]) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

func (m *Modal[T]) reset() {
	var zero T
	m.pendingID = ""
	m.pending = zero
	m.text = ""
}
