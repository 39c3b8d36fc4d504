package httpinstr

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ansel1/merry"

	"github.jpl.nasa.gov/bdube/gobench/instr"
)

// merryIsClientFault classifies facade errors that are the caller's fault,
// so the HTTP layer can answer 400 instead of 500
func merryIsClientFault(err error) bool {
	return merry.Is(err, instr.ErrInvalidValue) ||
		merry.Is(err, instr.ErrReadOnly) ||
		merry.Is(err, instr.ErrWriteOnly) ||
		merry.Is(err, instr.ErrUnknownProperty)
}

// BoolT is a struct with a single Bool field for json de/encoding
type BoolT struct {
	Bool bool `json:"bool"`
}

// Locker is a type which behaves like a sync.Mutex without the blocking,
// and holds a list of path substrings to not protect.  It is used to
// reserve an instrument for one user; requests to locked instruments are
// answered 423 (Locked).
type Locker struct {
	isLocked bool

	// DoNotProtect is a list of paths not to apply the lock to
	DoNotProtect []string
}

// NewLocker returns a new Locker with DoNotProtect prepopulated with "lock"
func NewLocker() *Locker {
	return &Locker{DoNotProtect: []string{"lock"}}
}

// Lock the locker
func (l *Locker) Lock() {
	l.isLocked = true
}

// Unlock the locker
func (l *Locker) Unlock() {
	l.isLocked = false
}

// Locked returns true if the locker is locked
func (l *Locker) Locked() bool {
	return l.isLocked
}

// Check is an HTTP middleware that returns http.StatusLocked if Locked()
// is true, otherwise passes down the line
func (l *Locker) Check(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.Locked() {
			protected := true
			url := r.URL.Path
			for _, str := range l.DoNotProtect {
				if strings.Contains(url, str) {
					protected = false
				}
			}
			if protected {
				w.WriteHeader(http.StatusLocked)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// HTTPGet returns the lock state as json:bool
func (l *Locker) HTTPGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(BoolT{Bool: l.Locked()})
}

// HTTPSet calls Lock or Unlock based on json:bool on the request body
func (l *Locker) HTTPSet(w http.ResponseWriter, r *http.Request) {
	b := BoolT{}
	err := json.NewDecoder(r.Body).Decode(&b)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if b.Bool {
		l.Lock()
	} else {
		l.Unlock()
	}
	w.WriteHeader(http.StatusOK)
}

// InjectLocker adds lock manipulation routes to an HTTPer's route table
func InjectLocker(other HTTPer, l *Locker) {
	rt := other.RT()
	rt[MethodPath{Method: http.MethodGet, Path: "/lock"}] = l.HTTPGet
	rt[MethodPath{Method: http.MethodPost, Path: "/lock"}] = l.HTTPSet
}
