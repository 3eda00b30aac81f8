// internal/storage/memory/memory.go

// Package memory backs the store contracts with maps for tests. A single
// mutex plays the role of the database's row locks, and an outermost
// transaction snapshots state so a failed workflow rolls back the same way
// it would against Postgres.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/donation"
	"github.com/RichKitibwa/BloodLink/internal/emergency"
	"github.com/RichKitibwa/BloodLink/internal/eventlog"
	"github.com/RichKitibwa/BloodLink/internal/exchange"
	"github.com/RichKitibwa/BloodLink/internal/hospital"
	"github.com/RichKitibwa/BloodLink/internal/inventory"
)

type txKey struct{}

// DB holds all tables behind one lock.
type DB struct {
	mu    sync.Mutex
	state state
}

type state struct {
	units              map[uuid.UUID]inventory.BloodUnit
	offers             map[uuid.UUID]donation.Offer
	requests           map[uuid.UUID]exchange.Request
	responses          map[uuid.UUID]exchange.Response
	emergencies        map[uuid.UUID]emergency.Request
	emergencyResponses map[uuid.UUID]emergency.Response
	hospitals          map[uuid.UUID]hospital.Hospital
	events             []eventlog.Entry
}

func NewDB() *DB {
	return &DB{state: state{
		units:              map[uuid.UUID]inventory.BloodUnit{},
		offers:             map[uuid.UUID]donation.Offer{},
		requests:           map[uuid.UUID]exchange.Request{},
		responses:          map[uuid.UUID]exchange.Response{},
		emergencies:        map[uuid.UUID]emergency.Request{},
		emergencyResponses: map[uuid.UUID]emergency.Response{},
		hospitals:          map[uuid.UUID]hospital.Hospital{},
	}}
}

// withTx runs fn holding the lock. A nested call joins the outer
// transaction instead of deadlocking, matching the tx-in-context behavior
// of the Postgres stores.
func (db *DB) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	snapshot := db.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		db.state = snapshot
		return err
	}
	return nil
}

// enter takes the lock for a standalone read or write and returns its
// release. Inside a transaction the lock is already held.
func (db *DB) enter(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func (s state) clone() state {
	out := state{
		units:              make(map[uuid.UUID]inventory.BloodUnit, len(s.units)),
		offers:             make(map[uuid.UUID]donation.Offer, len(s.offers)),
		requests:           make(map[uuid.UUID]exchange.Request, len(s.requests)),
		responses:          make(map[uuid.UUID]exchange.Response, len(s.responses)),
		emergencies:        make(map[uuid.UUID]emergency.Request, len(s.emergencies)),
		emergencyResponses: make(map[uuid.UUID]emergency.Response, len(s.emergencyResponses)),
		hospitals:          make(map[uuid.UUID]hospital.Hospital, len(s.hospitals)),
		events:             make([]eventlog.Entry, len(s.events)),
	}
	for k, v := range s.units {
		out.units[k] = v
	}
	for k, v := range s.offers {
		out.offers[k] = v
	}
	for k, v := range s.requests {
		out.requests[k] = v
	}
	for k, v := range s.responses {
		out.responses[k] = v
	}
	for k, v := range s.emergencies {
		out.emergencies[k] = v
	}
	for k, v := range s.emergencyResponses {
		out.emergencyResponses[k] = v
	}
	for k, v := range s.hospitals {
		out.hospitals[k] = v
	}
	copy(out.events, s.events)
	return out
}
