// internal/storage/memory/emergency.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/emergency"
)

// EmergencyStore is the in-memory emergency store.
type EmergencyStore struct {
	db *DB
}

func NewEmergencyStore(db *DB) *EmergencyStore {
	return &EmergencyStore{db: db}
}

func (s *EmergencyStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.withTx(ctx, fn)
}

func (s *EmergencyStore) GetRequest(ctx context.Context, id uuid.UUID) (emergency.Request, error) {
	defer s.db.enter(ctx)()
	r, ok := s.db.state.emergencies[id]
	if !ok {
		return emergency.Request{}, fmt.Errorf("emergency request %s: %w", id, blood.ErrNotFound)
	}
	return r, nil
}

func (s *EmergencyStore) InsertRequest(ctx context.Context, r emergency.Request) error {
	defer s.db.enter(ctx)()
	s.db.state.emergencies[r.ID] = r
	return nil
}

func (s *EmergencyStore) ListActive(ctx context.Context, now time.Time) ([]emergency.Request, error) {
	defer s.db.enter(ctx)()
	var requests []emergency.Request
	for _, r := range s.db.state.emergencies {
		if r.ActiveAt(now) {
			requests = append(requests, r)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].ResponseDeadline.Before(requests[j].ResponseDeadline)
	})
	return requests, nil
}

func (s *EmergencyStore) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	defer s.db.enter(ctx)()
	var n int
	for id, r := range s.db.state.emergencies {
		if r.IsActive && !r.ResponseDeadline.After(now) {
			r.IsActive = false
			resolved := now
			r.ResolvedAt = &resolved
			r.Version++
			s.db.state.emergencies[id] = r
			n++
		}
	}
	return n, nil
}

func (s *EmergencyStore) InsertResponse(ctx context.Context, r emergency.Response) error {
	defer s.db.enter(ctx)()
	s.db.state.emergencyResponses[r.ID] = r
	return nil
}

func (s *EmergencyStore) ListResponses(ctx context.Context, requestID uuid.UUID) ([]emergency.Response, error) {
	defer s.db.enter(ctx)()
	var responses []emergency.Response
	for _, r := range s.db.state.emergencyResponses {
		if r.RequestID == requestID {
			responses = append(responses, r)
		}
	}
	sort.Slice(responses, func(i, j int) bool {
		return responses[i].CreatedAt.Before(responses[j].CreatedAt)
	})
	return responses, nil
}
