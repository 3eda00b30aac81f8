package exchange_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/authz"
	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/clock"
	"github.com/RichKitibwa/BloodLink/internal/exchange"
	"github.com/RichKitibwa/BloodLink/internal/hospital"
	"github.com/RichKitibwa/BloodLink/internal/notify"
	"github.com/RichKitibwa/BloodLink/internal/storage/memory"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	exchanges exchange.Service
	recorder  *notify.Recorder
	directory *memory.HospitalDirectory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.NewDB()
	clk := clock.NewFixed(testNow)
	recorder := notify.NewRecorder()
	directory := memory.NewHospitalDirectory(db)
	svc := exchange.NewService(memory.NewExchangeStore(db), directory, memory.NewEventLog(db, clk), recorder, clk)
	return &fixture{exchanges: svc, recorder: recorder, directory: directory}
}

func (f *fixture) addHospital(t *testing.T, name string) authz.Caller {
	t.Helper()
	h := hospital.Hospital{ID: uuid.New(), Name: name, Code: name, IsActive: true, CreatedAt: testNow}
	f.directory.Put(context.Background(), h)
	return authz.Caller{UserID: uuid.New(), HospitalID: h.ID, Role: authz.RoleHospitalStaff}
}

func (f *fixture) create(t *testing.T, caller authz.Caller, target *uuid.UUID, priority blood.Priority) *exchange.Request {
	t.Helper()
	req, err := f.exchanges.Create(context.Background(), caller, exchange.CreateInput{
		TargetHospitalID: target,
		BloodType:        blood.ONegative,
		Component:        blood.PackedCells,
		UnitsRequested:   4,
		Priority:         priority,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return req
}

func TestExchange_Create(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("broadcast request notifies everyone", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")

		req := f.create(t, requester, nil, blood.PriorityNormal)
		if req.Status != blood.StatusPending {
			t.Fatalf("expected pending, got %s", req.Status)
		}
		if !req.Broadcast() {
			t.Fatalf("expected broadcast request")
		}

		events := f.recorder.Events()
		if len(events) != 1 || events[0].RecipientHospitalID != nil {
			t.Fatalf("expected one broadcast notification, got %+v", events)
		}
		if events[0].Severity != notify.SeverityInfo {
			t.Fatalf("expected info severity for normal priority, got %s", events[0].Severity)
		}
	})

	t.Run("urgent priority escalates severity", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")

		f.create(t, requester, nil, blood.PriorityVeryCritical)
		events := f.recorder.Events()
		if len(events) != 1 || events[0].Severity != notify.SeverityCritical {
			t.Fatalf("expected critical severity, got %+v", events)
		}
	})

	t.Run("rejects targeting your own hospital", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")

		_, err := f.exchanges.Create(ctx, requester, exchange.CreateInput{
			TargetHospitalID: &requester.HospitalID,
			BloodType:        blood.ONegative,
			Component:        blood.PackedCells,
			UnitsRequested:   1,
		})
		if !errors.Is(err, blood.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects inactive target", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")
		inactive := hospital.Hospital{ID: uuid.New(), Name: "Closed", Code: "Closed", IsActive: false, CreatedAt: testNow}
		f.directory.Put(ctx, inactive)

		_, err := f.exchanges.Create(ctx, requester, exchange.CreateInput{
			TargetHospitalID: &inactive.ID,
			BloodType:        blood.ONegative,
			Component:        blood.PackedCells,
			UnitsRequested:   1,
		})
		if !errors.Is(err, blood.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestExchange_Respond(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("records the offer and notifies the requester", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")
		responder := f.addHospital(t, "Mbarara")
		req := f.create(t, requester, nil, blood.PriorityNormal)

		resp, err := f.exchanges.Respond(ctx, responder, req.ID, exchange.RespondInput{UnitsOffered: 3})
		if err != nil {
			t.Fatalf("Respond: %v", err)
		}
		if resp.Status != exchange.ResponseOffered {
			t.Fatalf("expected OFFERED, got %s", resp.Status)
		}

		events := f.recorder.Events()
		last := events[len(events)-1]
		if last.RecipientHospitalID == nil || *last.RecipientHospitalID != requester.HospitalID {
			t.Fatalf("expected notification to requester")
		}
	})

	t.Run("rejects responding to your own request", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")
		req := f.create(t, requester, nil, blood.PriorityNormal)

		_, err := f.exchanges.Respond(ctx, requester, req.ID, exchange.RespondInput{UnitsOffered: 1})
		if !errors.Is(err, blood.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("one response per hospital", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")
		responder := f.addHospital(t, "Mbarara")
		req := f.create(t, requester, nil, blood.PriorityNormal)

		if _, err := f.exchanges.Respond(ctx, responder, req.ID, exchange.RespondInput{UnitsOffered: 1}); err != nil {
			t.Fatalf("first Respond: %v", err)
		}
		_, err := f.exchanges.Respond(ctx, responder, req.ID, exchange.RespondInput{UnitsOffered: 2})
		if !errors.Is(err, blood.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("rejects non-pending requests", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")
		responder := f.addHospital(t, "Mbarara")
		req := f.create(t, requester, nil, blood.PriorityNormal)

		if err := f.exchanges.Cancel(ctx, requester, req.ID); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		_, err := f.exchanges.Respond(ctx, responder, req.ID, exchange.RespondInput{UnitsOffered: 1})
		if !errors.Is(err, blood.ErrInvalidState) {
			t.Fatalf("expected invalid state, got %v", err)
		}
	})
}

func TestExchange_AcceptResponse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("approves the request and accepts the response", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")
		responder := f.addHospital(t, "Mbarara")
		req := f.create(t, requester, nil, blood.PriorityNormal)
		resp, _ := f.exchanges.Respond(ctx, responder, req.ID, exchange.RespondInput{UnitsOffered: 4})

		if err := f.exchanges.AcceptResponse(ctx, requester, req.ID, resp.ID); err != nil {
			t.Fatalf("AcceptResponse: %v", err)
		}

		got, err := f.exchanges.Get(ctx, requester, req.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Status != blood.StatusApproved {
			t.Fatalf("expected approved, got %s", got.Status)
		}
		if got.ApprovedAt == nil || got.ApprovedByUserID == nil {
			t.Fatalf("expected approval stamps")
		}

		responses, _ := f.exchanges.Responses(ctx, requester, req.ID)
		if len(responses) != 1 || responses[0].Status != exchange.ResponseAccepted {
			t.Fatalf("expected accepted response, got %+v", responses)
		}
	})

	t.Run("only the requester may accept", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")
		responder := f.addHospital(t, "Mbarara")
		req := f.create(t, requester, nil, blood.PriorityNormal)
		resp, _ := f.exchanges.Respond(ctx, responder, req.ID, exchange.RespondInput{UnitsOffered: 4})

		if err := f.exchanges.AcceptResponse(ctx, responder, req.ID, resp.ID); !errors.Is(err, blood.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("second accept fails", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")
		first := f.addHospital(t, "Mbarara")
		second := f.addHospital(t, "Gulu")
		req := f.create(t, requester, nil, blood.PriorityNormal)
		r1, _ := f.exchanges.Respond(ctx, first, req.ID, exchange.RespondInput{UnitsOffered: 4})
		r2, _ := f.exchanges.Respond(ctx, second, req.ID, exchange.RespondInput{UnitsOffered: 4})

		if err := f.exchanges.AcceptResponse(ctx, requester, req.ID, r1.ID); err != nil {
			t.Fatalf("first AcceptResponse: %v", err)
		}
		if err := f.exchanges.AcceptResponse(ctx, requester, req.ID, r2.ID); !errors.Is(err, blood.ErrInvalidState) {
			t.Fatalf("expected invalid state, got %v", err)
		}
	})
}

func TestExchange_UpdateStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("approved moves to fulfilled with timestamp", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")
		target := f.addHospital(t, "Mbarara")
		req := f.create(t, requester, &target.HospitalID, blood.PriorityNormal)

		if _, err := f.exchanges.UpdateStatus(ctx, target, req.ID, blood.StatusApproved, ""); err != nil {
			t.Fatalf("approve: %v", err)
		}
		got, err := f.exchanges.UpdateStatus(ctx, target, req.ID, blood.StatusFulfilled, "")
		if err != nil {
			t.Fatalf("fulfill: %v", err)
		}
		if got.FulfilledAt == nil {
			t.Fatalf("expected fulfilled timestamp")
		}
	})

	t.Run("rejection requires a reason", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")
		target := f.addHospital(t, "Mbarara")
		req := f.create(t, requester, &target.HospitalID, blood.PriorityNormal)

		if _, err := f.exchanges.UpdateStatus(ctx, target, req.ID, blood.StatusRejected, ""); !errors.Is(err, blood.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
		got, err := f.exchanges.UpdateStatus(ctx, target, req.ID, blood.StatusRejected, "no stock")
		if err != nil {
			t.Fatalf("reject: %v", err)
		}
		if got.RejectionReason != "no stock" {
			t.Fatalf("expected reason recorded, got %q", got.RejectionReason)
		}
	})

	t.Run("terminal states are immutable", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")
		target := f.addHospital(t, "Mbarara")
		req := f.create(t, requester, &target.HospitalID, blood.PriorityNormal)

		if _, err := f.exchanges.UpdateStatus(ctx, target, req.ID, blood.StatusRejected, "no stock"); err != nil {
			t.Fatalf("reject: %v", err)
		}
		if _, err := f.exchanges.UpdateStatus(ctx, target, req.ID, blood.StatusApproved, ""); !errors.Is(err, blood.ErrInvalidState) {
			t.Fatalf("expected invalid state, got %v", err)
		}
	})

	t.Run("only the requester may cancel", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")
		target := f.addHospital(t, "Mbarara")
		req := f.create(t, requester, &target.HospitalID, blood.PriorityNormal)

		if _, err := f.exchanges.UpdateStatus(ctx, target, req.ID, blood.StatusCancelled, ""); !errors.Is(err, blood.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
		if _, err := f.exchanges.UpdateStatus(ctx, requester, req.ID, blood.StatusCancelled, ""); err != nil {
			t.Fatalf("requester cancel: %v", err)
		}
	})

	t.Run("uninvolved hospitals may not update", func(t *testing.T) {
		f := newFixture(t)
		requester := f.addHospital(t, "Mulago")
		target := f.addHospital(t, "Mbarara")
		outsider := f.addHospital(t, "Gulu")
		req := f.create(t, requester, &target.HospitalID, blood.PriorityNormal)

		if _, err := f.exchanges.UpdateStatus(ctx, outsider, req.ID, blood.StatusApproved, ""); !errors.Is(err, blood.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
}

func TestExchange_Visibility(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	requester := f.addHospital(t, "Mulago")
	target := f.addHospital(t, "Mbarara")
	outsider := f.addHospital(t, "Gulu")

	targeted := f.create(t, requester, &target.HospitalID, blood.PriorityNormal)

	t.Run("targeted request hidden from outsiders", func(t *testing.T) {
		if _, err := f.exchanges.Get(ctx, outsider, targeted.ID); !errors.Is(err, blood.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("target sees it as incoming", func(t *testing.T) {
		incoming, err := f.exchanges.List(ctx, target, exchange.ListFilter{ShowIncoming: true})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(incoming) != 1 || incoming[0].ID != targeted.ID {
			t.Fatalf("expected the targeted request, got %+v", incoming)
		}
	})

	t.Run("only responses of your own request are visible", func(t *testing.T) {
		if _, err := f.exchanges.Responses(ctx, target, targeted.ID); !errors.Is(err, blood.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
}
