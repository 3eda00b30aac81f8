package emergency_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/authz"
	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/clock"
	"github.com/RichKitibwa/BloodLink/internal/emergency"
	"github.com/RichKitibwa/BloodLink/internal/hospital"
	"github.com/RichKitibwa/BloodLink/internal/notify"
	"github.com/RichKitibwa/BloodLink/internal/storage/memory"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db          *memory.DB
	emergencies emergency.Service
	recorder    *notify.Recorder
	directory   *memory.HospitalDirectory
}

func newFixture(t *testing.T, ratePerMinute int) *fixture {
	t.Helper()
	db := memory.NewDB()
	clk := clock.NewFixed(testNow)
	recorder := notify.NewRecorder()
	directory := memory.NewHospitalDirectory(db)
	svc := emergency.NewService(memory.NewEmergencyStore(db), directory, memory.NewEventLog(db, clk), recorder, clk, ratePerMinute)
	return &fixture{db: db, emergencies: svc, recorder: recorder, directory: directory}
}

func (f *fixture) addHospital(t *testing.T, name string) authz.Caller {
	t.Helper()
	h := hospital.Hospital{ID: uuid.New(), Name: name, Code: name, IsActive: true, CreatedAt: testNow}
	f.directory.Put(context.Background(), h)
	return authz.Caller{UserID: uuid.New(), HospitalID: h.ID, Role: authz.RoleHospitalStaff}
}

func validInput(deadline time.Time) emergency.CreateInput {
	return emergency.CreateInput{
		BloodType:        blood.ONegative,
		Component:        blood.WholeBlood,
		UnitsNeeded:      6,
		PatientCondition: "post-partum haemorrhage",
		ContactPerson:    "Dr. Okello",
		ContactPhone:     "+256700000000",
		ResponseDeadline: deadline,
	}
}

func TestEmergency_Create(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("broadcasts with critical severity", func(t *testing.T) {
		f := newFixture(t, 10)
		caller := f.addHospital(t, "Mulago")

		req, err := f.emergencies.Create(ctx, caller, validInput(testNow.Add(4*time.Hour)))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if !req.IsActive {
			t.Fatalf("expected active request")
		}

		events := f.recorder.Events()
		if len(events) != 1 {
			t.Fatalf("expected one notification, got %d", len(events))
		}
		if events[0].RecipientHospitalID != nil {
			t.Fatalf("expected broadcast notification")
		}
		if events[0].Severity != notify.SeverityCritical {
			t.Fatalf("expected critical severity, got %s", events[0].Severity)
		}
	})

	t.Run("rejects a deadline in the past", func(t *testing.T) {
		f := newFixture(t, 10)
		caller := f.addHospital(t, "Mulago")

		_, err := f.emergencies.Create(ctx, caller, validInput(testNow.Add(-time.Minute)))
		if !errors.Is(err, blood.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("requires contact details", func(t *testing.T) {
		f := newFixture(t, 10)
		caller := f.addHospital(t, "Mulago")

		in := validInput(testNow.Add(time.Hour))
		in.ContactPhone = ""
		_, err := f.emergencies.Create(ctx, caller, in)
		if !errors.Is(err, blood.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("rate limits broadcast creation", func(t *testing.T) {
		f := newFixture(t, 2)
		caller := f.addHospital(t, "Mulago")

		for i := 0; i < 2; i++ {
			if _, err := f.emergencies.Create(ctx, caller, validInput(testNow.Add(time.Hour))); err != nil {
				t.Fatalf("Create %d: %v", i, err)
			}
		}
		_, err := f.emergencies.Create(ctx, caller, validInput(testNow.Add(time.Hour)))
		if !errors.Is(err, blood.ErrRateLimited) {
			t.Fatalf("expected rate limit error, got %v", err)
		}
	})
}

func TestEmergency_Respond(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("records the response and notifies the requester", func(t *testing.T) {
		f := newFixture(t, 10)
		requester := f.addHospital(t, "Mulago")
		responder := f.addHospital(t, "Mbarara")
		req, _ := f.emergencies.Create(ctx, requester, validInput(testNow.Add(time.Hour)))

		resp, err := f.emergencies.Respond(ctx, responder, req.ID, emergency.RespondInput{
			UnitsOffered:  3,
			ContactPerson: "Dr. Atim",
			ContactPhone:  "+256711111111",
		})
		if err != nil {
			t.Fatalf("Respond: %v", err)
		}
		if resp.RespondingHospitalID != responder.HospitalID {
			t.Fatalf("expected responder hospital on response")
		}

		events := f.recorder.Events()
		last := events[len(events)-1]
		if last.RecipientHospitalID == nil || *last.RecipientHospitalID != requester.HospitalID {
			t.Fatalf("expected notification to requester")
		}
	})

	t.Run("rejects responses after the deadline even before the sweep", func(t *testing.T) {
		f := newFixture(t, 10)
		requester := f.addHospital(t, "Mulago")
		responder := f.addHospital(t, "Mbarara")
		req, _ := f.emergencies.Create(ctx, requester, validInput(testNow.Add(time.Hour)))

		late := emergency.NewService(memory.NewEmergencyStore(f.db), f.directory, memory.NewEventLog(f.db, clock.NewFixed(testNow.Add(2*time.Hour))), f.recorder, clock.NewFixed(testNow.Add(2*time.Hour)), 10)
		_, err := late.Respond(ctx, responder, req.ID, emergency.RespondInput{
			UnitsOffered:  3,
			ContactPerson: "Dr. Atim",
			ContactPhone:  "+256711111111",
		})
		if !errors.Is(err, blood.ErrInvalidState) {
			t.Fatalf("expected invalid state, got %v", err)
		}
	})

	t.Run("requires contact details", func(t *testing.T) {
		f := newFixture(t, 10)
		requester := f.addHospital(t, "Mulago")
		responder := f.addHospital(t, "Mbarara")
		req, _ := f.emergencies.Create(ctx, requester, validInput(testNow.Add(time.Hour)))

		_, err := f.emergencies.Respond(ctx, responder, req.ID, emergency.RespondInput{UnitsOffered: 3})
		if !errors.Is(err, blood.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestEmergency_ListActive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, 10)
	requester := f.addHospital(t, "Mulago")

	soon, err := f.emergencies.Create(ctx, requester, validInput(testNow.Add(30*time.Minute)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	later, err := f.emergencies.Create(ctx, requester, validInput(testNow.Add(3*time.Hour)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("orders by deadline", func(t *testing.T) {
		active, err := f.emergencies.ListActive(ctx)
		if err != nil {
			t.Fatalf("ListActive: %v", err)
		}
		if len(active) != 2 || active[0].ID != soon.ID || active[1].ID != later.ID {
			t.Fatalf("expected [soon, later], got %+v", active)
		}
	})

	t.Run("excludes passed deadlines at read time", func(t *testing.T) {
		late := emergency.NewService(memory.NewEmergencyStore(f.db), f.directory, memory.NewEventLog(f.db, clock.NewFixed(testNow.Add(time.Hour))), f.recorder, clock.NewFixed(testNow.Add(time.Hour)), 10)
		active, err := late.ListActive(ctx)
		if err != nil {
			t.Fatalf("ListActive: %v", err)
		}
		if len(active) != 1 || active[0].ID != later.ID {
			t.Fatalf("expected only the later request, got %+v", active)
		}
	})

	t.Run("sweep deactivates passed requests", func(t *testing.T) {
		n, err := f.emergencies.Deactivate(ctx, testNow.Add(time.Hour))
		if err != nil {
			t.Fatalf("Deactivate: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected one request deactivated, got %d", n)
		}
	})
}

func TestEmergency_Responses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, 10)
	requester := f.addHospital(t, "Mulago")
	responder := f.addHospital(t, "Mbarara")
	req, err := f.emergencies.Create(ctx, requester, validInput(testNow.Add(time.Hour)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.emergencies.Respond(ctx, responder, req.ID, emergency.RespondInput{
		UnitsOffered:  2,
		ContactPerson: "Dr. Atim",
		ContactPhone:  "+256711111111",
	}); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	t.Run("visible to the requester", func(t *testing.T) {
		responses, err := f.emergencies.Responses(ctx, requester, req.ID)
		if err != nil {
			t.Fatalf("Responses: %v", err)
		}
		if len(responses) != 1 || responses[0].UnitsOffered != 2 {
			t.Fatalf("expected the recorded response, got %+v", responses)
		}
	})

	t.Run("hidden from other hospitals", func(t *testing.T) {
		if _, err := f.emergencies.Responses(ctx, responder, req.ID); !errors.Is(err, blood.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("visible to admins", func(t *testing.T) {
		admin := authz.Caller{UserID: uuid.New(), HospitalID: uuid.New(), Role: authz.RoleAdmin}
		if _, err := f.emergencies.Responses(ctx, admin, req.ID); err != nil {
			t.Fatalf("Responses as admin: %v", err)
		}
	})
}
