package session

import (
	"sync"

	"github.com/kalambet/lifexp/internal/quest"
)

// Op names a dispatchable operation for the in-flight guard.
type Op string

const (
	OpAccept   Op = "accept"
	OpGiveUp   Op = "giveup"
	OpComplete Op = "complete"
	OpCreate   Op = "create"
	OpGenerate Op = "generate"
)

type flightKey struct {
	op Op
	id quest.ID
}

// inflight tracks outstanding requests so a control stays disabled until its
// response arrives.
type inflight struct {
	mu   sync.Mutex
	busy map[flightKey]struct{}
}

func (f *inflight) begin(op Op, id quest.ID) (done func(), err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := flightKey{op, id}
	if _, ok := f.busy[k]; ok {
		return nil, ErrInFlight
	}
	if f.busy == nil {
		f.busy = make(map[flightKey]struct{})
	}
	f.busy[k] = struct{}{}
	return func() {
		f.mu.Lock()
		delete(f.busy, k)
		f.mu.Unlock()
	}, nil
}

func (f *inflight) has(op Op, id quest.ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.busy[flightKey{op, id}]
	return ok
}
