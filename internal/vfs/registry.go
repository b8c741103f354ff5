package vfs

import "sync"

// mainFileNode is one link in the main-file registry: a mutex-guarded
// singly linked list of open MAIN_DB handles, keyed by resolved path.
type mainFileNode struct {
	path string
	main *File
	next *mainFileNode
}

// Registry tracks every open MAIN_DB file so that journal, subjournal, and
// WAL handles can resolve their owning codec from a database= URI parameter
// at open time. A journal/WAL node never outlives its main-DB node in
// practice (the engine closes journals before the main database), but a
// node that does outlive its registration is tolerated: Lookup simply
// returns nil and callers treat a nil codec as pass-through.
type Registry struct {
	mu   sync.Mutex
	head *mainFileNode
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a MAIN_DB handle under path.
func (r *Registry) Register(path string, main *File) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = &mainFileNode{path: path, main: main, next: r.head}
}

// Lookup resolves path to its registered MAIN_DB handle, or nil if none is
// registered (a stale or unresolved back-reference).
func (r *Registry) Lookup(path string) *File {
	r.mu.Lock()
	defer r.mu.Unlock()
	for n := r.head; n != nil; n = n.next {
		if n.path == path {
			return n.main
		}
	}
	return nil
}

// Unregister removes path's node, called when a MAIN_DB handle closes.
func (r *Registry) Unregister(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var prev *mainFileNode
	for n := r.head; n != nil; n = n.next {
		if n.path == path {
			if prev == nil {
				r.head = n.next
			} else {
				prev.next = n.next
			}
			return
		}
		prev = n
	}
}
