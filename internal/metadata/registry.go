// Package metadata implements a bounded LRU registry of
// sourceimage.Descriptor values keyed by source path. Every Open
// re-opens the source and stores the descriptor it reports; mtimes are
// not compared, and repeated requests do not skip the re-open.
package metadata

import (
	"container/list"
	"context"
	"sync"

	"giipview/internal/apperror"
	"giipview/internal/sourceimage"
)

type entry struct {
	path       string
	descriptor sourceimage.Descriptor
}

// Registry caches Descriptors by path with LRU eviction; each Open
// replaces the cached entry with the descriptor just read.
type Registry struct {
	mu       sync.Mutex
	maxItems int
	ll       *list.List
	index    map[string]*list.Element
	openers  []sourceimage.Opener
}

// New creates a Registry with the given entry-count capacity and the
// set of openers tried in order to decode an unseen path.
func New(maxItems int, openers ...sourceimage.Opener) *Registry {
	return &Registry{
		maxItems: maxItems,
		ll:       list.New(),
		index:    make(map[string]*list.Element),
		openers:  openers,
	}
}

// Open returns an Image handle for path from the first opener that
// accepts it, and replaces the cached descriptor with the one it reports.
// The returned Image must be closed by the caller; the registry itself
// only ever caches the Descriptor, not an open handle.
func (r *Registry) Open(ctx context.Context, path string) (sourceimage.Image, error) {
	for _, o := range r.openers {
		if !o.CanOpen(path) {
			continue
		}
		img, err := o.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		r.touch(path, img.Descriptor())
		return img, nil
	}
	return nil, apperror.Wrap(apperror.SourceUnsupported, "metadata.Open", "no opener recognizes "+path)
}

// Descriptor returns the cached descriptor for path if present and
// still fresh (no file stat is performed here; freshness is judged by
// whatever Open most recently observed).
func (r *Registry) Descriptor(path string) (sourceimage.Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.index[path]
	if !ok {
		return sourceimage.Descriptor{}, false
	}
	r.ll.MoveToFront(el)
	return el.Value.(*entry).descriptor, true
}

func (r *Registry) touch(path string, desc sourceimage.Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.index[path]; ok {
		e := el.Value.(*entry)
		e.descriptor = desc
		r.ll.MoveToFront(el)
		return
	}

	e := &entry{path: path, descriptor: desc}
	el := r.ll.PushFront(e)
	r.index[path] = el

	for r.maxItems > 0 && r.ll.Len() > r.maxItems {
		back := r.ll.Back()
		if back == nil {
			break
		}
		be := back.Value.(*entry)
		r.ll.Remove(back)
		delete(r.index, be.path)
	}
}

// Len returns the number of cached descriptors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ll.Len()
}
