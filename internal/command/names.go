package command

import (
	"strings"
	"sync"
)

// Reserver remembers every output path handed out during one run, so two
// nodes writing into the same directory never receive the same name even
// before either tool has created its file.
type Reserver struct {
	mu    sync.Mutex
	taken map[string]struct{}
}

// NewReserver creates an empty, run-scoped reservation set.
func NewReserver() *Reserver {
	return &Reserver{taken: make(map[string]struct{})}
}

// Reserve claims path. It returns false if path was already claimed.
func (r *Reserver) Reserve(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.taken[path]; ok {
		return false
	}
	r.taken[path] = struct{}{}
	return true
}

// hasExtension reports whether name looks like a file: it has a dot and the
// part after the last dot is longer than one character.
func hasExtension(name string) bool {
	i := strings.LastIndexByte(name, '.')
	return i >= 0 && len(name)-i-1 > 1
}

// splitExt splits name into base and extension. Leading dots belong to the
// base, so ".bashrc" has no extension.
func splitExt(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || strings.Trim(name[:i], ".") == "" {
		return name, ""
	}
	return name[:i], name[i:]
}

func sanitizeFile(name string) string {
	return keep(name, func(r rune) bool { return isWordRune(r) || r == '.' })
}

func sanitizeDir(name string) string {
	return keep(name, isWordRune)
}

func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-'
}

func keep(s string, ok func(rune) bool) string {
	var b strings.Builder
	for _, r := range s {
		if ok(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
