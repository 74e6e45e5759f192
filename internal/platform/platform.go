// Package platform abstracts the ambient effects a view controller needs:
// durable key/value storage, page navigation and HTTP round trips.
package platform

import (
	"net/http"
	"net/url"
	"sync"
)

// Storage is durable client-side key/value storage.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// Navigator performs a full navigation to another page.
type Navigator interface {
	Navigate(loc Location)
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Page names one of the console's pages.
type Page string

const (
	PageLogin     Page = "/"
	PageDashboard Page = "/dashboard"
	PageHistory   Page = "/history"
	PageResults   Page = "/results"
)

// Location is a page plus its query parameters.
type Location struct {
	Page  Page
	Query url.Values
}

// To builds a location from alternating query key/value pairs.
func To(page Page, kv ...string) Location {
	loc := Location{Page: page}
	if len(kv) > 1 {
		loc.Query = url.Values{}
		for i := 0; i+1 < len(kv); i += 2 {
			loc.Query.Set(kv[i], kv[i+1])
		}
	}
	return loc
}

func (l Location) String() string {
	if len(l.Query) == 0 {
		return string(l.Page)
	}
	return string(l.Page) + "?" + l.Query.Encode()
}

// MemoryStorage is an in-process Storage.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Recorder is a Navigator that remembers every navigation. The web console
// turns the last one into a redirect; tests count them.
type Recorder struct {
	mu   sync.Mutex
	hops []Location
}

func (r *Recorder) Navigate(loc Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hops = append(r.hops, loc)
}

// Last returns the most recent navigation, if any.
func (r *Recorder) Last() (Location, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.hops) == 0 {
		return Location{}, false
	}
	return r.hops[len(r.hops)-1], true
}

// Count returns how many navigations happened.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hops)
}
