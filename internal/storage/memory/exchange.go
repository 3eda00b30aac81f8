// internal/storage/memory/exchange.go
package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/exchange"
)

// ExchangeStore is the in-memory exchange store.
type ExchangeStore struct {
	db *DB
}

func NewExchangeStore(db *DB) *ExchangeStore {
	return &ExchangeStore{db: db}
}

func (s *ExchangeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.withTx(ctx, fn)
}

func (s *ExchangeStore) GetRequest(ctx context.Context, id uuid.UUID) (exchange.Request, error) {
	defer s.db.enter(ctx)()
	r, ok := s.db.state.requests[id]
	if !ok {
		return exchange.Request{}, fmt.Errorf("exchange request %s: %w", id, blood.ErrNotFound)
	}
	return r, nil
}

func (s *ExchangeStore) GetRequestForUpdate(ctx context.Context, id uuid.UUID) (exchange.Request, error) {
	return s.GetRequest(ctx, id)
}

func (s *ExchangeStore) InsertRequest(ctx context.Context, r exchange.Request) error {
	defer s.db.enter(ctx)()
	s.db.state.requests[r.ID] = r
	return nil
}

func (s *ExchangeStore) UpdateRequest(ctx context.Context, r exchange.Request) error {
	defer s.db.enter(ctx)()
	existing, ok := s.db.state.requests[r.ID]
	if !ok || existing.Version != r.Version-1 {
		return fmt.Errorf("exchange request %s version mismatch: %w", r.ID, blood.ErrConflict)
	}
	s.db.state.requests[r.ID] = r
	return nil
}

func (s *ExchangeStore) ListRequests(ctx context.Context, f exchange.ListFilter) ([]exchange.Request, error) {
	defer s.db.enter(ctx)()
	var requests []exchange.Request
	for _, r := range s.db.state.requests {
		incoming := r.RequestingHospitalID != f.HospitalID &&
			(r.Broadcast() || *r.TargetHospitalID == f.HospitalID)
		outgoing := r.RequestingHospitalID == f.HospitalID
		switch {
		case f.ShowIncoming && !f.ShowOutgoing:
			if !incoming {
				continue
			}
		case f.ShowOutgoing && !f.ShowIncoming:
			if !outgoing {
				continue
			}
		default:
			if !incoming && !outgoing {
				continue
			}
		}
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		if f.Priority != nil && r.Priority != *f.Priority {
			continue
		}
		if f.BloodType != nil && r.BloodType != *f.BloodType {
			continue
		}
		requests = append(requests, r)
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

func (s *ExchangeStore) FindResponseByHospital(ctx context.Context, requestID, hospitalID uuid.UUID) (*exchange.Response, error) {
	defer s.db.enter(ctx)()
	for _, r := range s.db.state.responses {
		if r.RequestID == requestID && r.RespondingHospitalID == hospitalID {
			resp := r
			return &resp, nil
		}
	}
	return nil, nil
}

func (s *ExchangeStore) GetResponse(ctx context.Context, requestID, responseID uuid.UUID) (exchange.Response, error) {
	defer s.db.enter(ctx)()
	r, ok := s.db.state.responses[responseID]
	if !ok || r.RequestID != requestID {
		return exchange.Response{}, fmt.Errorf("exchange response %s: %w", responseID, blood.ErrNotFound)
	}
	return r, nil
}

func (s *ExchangeStore) InsertResponse(ctx context.Context, r exchange.Response) error {
	defer s.db.enter(ctx)()
	for _, existing := range s.db.state.responses {
		if existing.RequestID == r.RequestID && existing.RespondingHospitalID == r.RespondingHospitalID {
			return fmt.Errorf("hospital already responded to request %s: %w", r.RequestID, blood.ErrConflict)
		}
	}
	s.db.state.responses[r.ID] = r
	return nil
}

func (s *ExchangeStore) UpdateResponse(ctx context.Context, r exchange.Response) error {
	defer s.db.enter(ctx)()
	if _, ok := s.db.state.responses[r.ID]; !ok {
		return fmt.Errorf("exchange response %s: %w", r.ID, blood.ErrNotFound)
	}
	s.db.state.responses[r.ID] = r
	return nil
}

func (s *ExchangeStore) ListResponses(ctx context.Context, requestID uuid.UUID) ([]exchange.Response, error) {
	defer s.db.enter(ctx)()
	var responses []exchange.Response
	for _, r := range s.db.state.responses {
		if r.RequestID == requestID {
			responses = append(responses, r)
		}
	}
	sort.Slice(responses, func(i, j int) bool {
		return responses[i].CreatedAt.Before(responses[j].CreatedAt)
	})
	return responses, nil
}
