package tail

import (
	"bytes"
	"io"
	"os"

	"clawlog/internal/store"
)

// Source is one followed session file with its read cursor.
type Source struct {
	Path      string
	Agent     string
	SessionID string

	file   *os.File
	offset int64
}

// readNew returns the fully terminated lines appended since the last read.
// Bytes past the final newline stay unconsumed until a terminator arrives.
func (s *Source) readNew() ([][]byte, error) {
	info, err := s.file.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size < s.offset {
		// Truncated: restart from the top.
		s.offset = 0
	}
	if size == s.offset {
		return nil, nil
	}

	buf := make([]byte, size-s.offset)
	n, err := s.file.ReadAt(buf, s.offset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	buf = buf[:n]

	cut := bytes.LastIndexByte(buf, '\n')
	if cut < 0 {
		return nil, nil
	}
	s.offset += int64(cut + 1)
	return bytes.Split(buf[:cut], []byte{'\n'}), nil
}

// Registry tracks followed sources keyed by path. It is owned by a single
// engine loop and is not safe for concurrent use.
type Registry struct {
	sources map[string]*Source
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]*Source)}
}

// Add opens path and registers it with the cursor at end-of-file. A path
// already registered is left untouched and reports false.
func (r *Registry) Add(path, agent string) (bool, error) {
	if _, ok := r.sources[path]; ok {
		return false, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		_ = file.Close()
		return false, err
	}

	r.sources[path] = &Source{
		Path:      path,
		Agent:     agent,
		SessionID: store.SessionID(path),
		file:      file,
		offset:    offset,
	}
	r.order = append(r.order, path)
	return true, nil
}

// Discover registers every candidate not yet known and returns how many
// were added. A candidate that fails to open is skipped until the next
// pass.
func (r *Registry) Discover(agent string, candidates []string) int {
	added := 0
	for _, path := range candidates {
		ok, err := r.Add(path, agent)
		if err != nil {
			continue
		}
		if ok {
			added++
		}
	}
	return added
}

// Sources returns the registered sources in registration order.
func (r *Registry) Sources() []*Source {
	out := make([]*Source, 0, len(r.order))
	for _, path := range r.order {
		out = append(out, r.sources[path])
	}
	return out
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	return len(r.sources)
}

// OpenHandles returns the number of sources currently holding a file
// handle.
func (r *Registry) OpenHandles() int {
	n := 0
	for _, src := range r.sources {
		if src.file != nil {
			n++
		}
	}
	return n
}

// Remove closes and drops one source so a later discovery pass can
// register it fresh.
func (r *Registry) Remove(path string) {
	src, ok := r.sources[path]
	if !ok {
		return
	}
	if src.file != nil {
		_ = src.file.Close()
		src.file = nil
	}
	delete(r.sources, path)
	for i, p := range r.order {
		if p == path {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Close releases every open handle. Every close is attempted even when an
// earlier one fails; the first error is returned.
func (r *Registry) Close() error {
	var first error
	for _, path := range r.order {
		src := r.sources[path]
		if src.file == nil {
			continue
		}
		if err := src.file.Close(); err != nil && first == nil {
			first = err
		}
		src.file = nil
	}
	return first
}
