package application

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/example/console-booking/internal/scheduler"
)

func newResourceServiceForTest(h *bookingHarness) *ResourceService {
	return NewResourceService(h.resources, h.reservations, h.locks, h.service.config.Policy, (&sequence{prefix: "console"}).ID, h.clock.Now)
}

func TestResourceService_CreateResource(t *testing.T) {
	ctx := context.Background()
	admin := Principal{Admin: true}

	t.Run("requires administrator privileges", func(t *testing.T) {
		svc := NewResourceService(nil, nil, nil, scheduler.DefaultPolicy(), nil, nil)
		_, err := svc.CreateResource(ctx, CreateResourceParams{
			Input: ResourceInput{Name: "PS5-2", Type: "PS5", AllowedDurations: []time.Duration{time.Hour}},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("validates required attributes", func(t *testing.T) {
		svc := NewResourceService(nil, nil, nil, scheduler.DefaultPolicy(), nil, nil)
		_, err := svc.CreateResource(ctx, CreateResourceParams{
			Principal: admin,
			Input:     ResourceInput{Name: " ", AllowedDurations: []time.Duration{-time.Minute}},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"name", "type", "allowed_durations"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("rejects fractional minutes", func(t *testing.T) {
		svc := NewResourceService(nil, nil, nil, scheduler.DefaultPolicy(), nil, nil)
		_, err := svc.CreateResource(ctx, CreateResourceParams{
			Principal: admin,
			Input:     ResourceInput{Name: "PS5-2", Type: "PS5", AllowedDurations: []time.Duration{90 * time.Second}},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("normalizes input and persists", func(t *testing.T) {
		h := newBookingHarness(t)
		svc := newResourceServiceForTest(h)
		resource, err := svc.CreateResource(ctx, CreateResourceParams{
			Principal: admin,
			Input: ResourceInput{
				Name:             "  Switch-1 ",
				Type:             "Switch",
				AllowedDurations: []time.Duration{time.Hour, 10 * time.Minute, time.Hour},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resource.ID != "console-1" || resource.Name != "Switch-1" || !resource.Enabled {
			t.Fatalf("unexpected resource %+v", resource)
		}
		want := []time.Duration{10 * time.Minute, time.Hour}
		if !slices.Equal(resource.AllowedDurations, want) {
			t.Fatalf("expected durations %v, got %v", want, resource.AllowedDurations)
		}
		if !resource.CreatedAt.Equal(at(9, 0)) || !resource.UpdatedAt.Equal(at(9, 0)) {
			t.Fatalf("expected timestamps from the clock, got %+v", resource)
		}
	})

	t.Run("maps duplicate names", func(t *testing.T) {
		h := newBookingHarness(t)
		svc := newResourceServiceForTest(h)
		_, err := svc.CreateResource(ctx, CreateResourceParams{
			Principal: admin,
			Input:     ResourceInput{Name: "PS5-1", Type: "PS5", AllowedDurations: []time.Duration{time.Hour}},
		})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestResourceService_SetResourceEnabled(t *testing.T) {
	ctx := context.Background()
	admin := Principal{Admin: true}

	t.Run("refuses to disable while a reservation is in progress", func(t *testing.T) {
		h := newBookingHarness(t)
		svc := newResourceServiceForTest(h)
		h.create(t, "1234", at(9, 0), 30)

		_, err := svc.SetResourceEnabled(ctx, SetResourceEnabledParams{Principal: admin, ResourceID: "ps5-1", Enabled: false})
		if !errors.Is(err, ErrResourceInUse) {
			t.Fatalf("expected ErrResourceInUse, got %v", err)
		}
	})

	t.Run("disables an idle resource and re-enables it", func(t *testing.T) {
		h := newBookingHarness(t)
		svc := newResourceServiceForTest(h)
		h.create(t, "1234", at(11, 0), 30)

		resource, err := svc.SetResourceEnabled(ctx, SetResourceEnabledParams{Principal: admin, ResourceID: "ps5-1", Enabled: false})
		if err != nil {
			t.Fatalf("disable: %v", err)
		}
		if resource.Enabled {
			t.Fatalf("expected disabled resource")
		}

		_, err = h.service.Create(ctx, CreateReservationParams{
			AuthorizationToken: testToken,
			PIN:                "1234",
			Input:              ReservationInput{ResourceID: "ps5-1", OwnerName: "Ren", Start: at(9, 0), End: at(9, 10)},
		})
		if !errors.Is(err, ErrResourceDisabled) {
			t.Fatalf("expected ErrResourceDisabled, got %v", err)
		}

		resource, err = svc.SetResourceEnabled(ctx, SetResourceEnabledParams{Principal: admin, ResourceID: "ps5-1", Enabled: true})
		if err != nil || !resource.Enabled {
			t.Fatalf("enable: %+v, %v", resource, err)
		}
	})

	t.Run("requires administrator privileges", func(t *testing.T) {
		h := newBookingHarness(t)
		svc := newResourceServiceForTest(h)
		_, err := svc.SetResourceEnabled(ctx, SetResourceEnabledParams{ResourceID: "ps5-1"})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestResourceService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	admin := Principal{Admin: true}

	t.Run("updates attributes but keeps the enabled flag", func(t *testing.T) {
		h := newBookingHarness(t)
		svc := newResourceServiceForTest(h)
		h.clock.Set(at(9, 45))
		resource, err := svc.UpdateResource(ctx, UpdateResourceParams{
			Principal:  admin,
			ResourceID: "ps5-1",
			Input:      ResourceInput{Name: "PS5 Pro", Type: "PS5", AllowedDurations: []time.Duration{30 * time.Minute}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resource.Name != "PS5 Pro" || !resource.Enabled || !resource.UpdatedAt.Equal(at(9, 45)) {
			t.Fatalf("unexpected resource %+v", resource)
		}
	})

	t.Run("update of an unknown resource", func(t *testing.T) {
		h := newBookingHarness(t)
		svc := newResourceServiceForTest(h)
		_, err := svc.UpdateResource(ctx, UpdateResourceParams{
			Principal:  admin,
			ResourceID: "missing",
			Input:      ResourceInput{Name: "X", Type: "X", AllowedDurations: []time.Duration{time.Hour}},
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete is refused while in progress", func(t *testing.T) {
		h := newBookingHarness(t)
		svc := newResourceServiceForTest(h)
		h.create(t, "1234", at(9, 0), 30)
		if err := svc.DeleteResource(ctx, admin, "ps5-1"); !errors.Is(err, ErrResourceInUse) {
			t.Fatalf("expected ErrResourceInUse, got %v", err)
		}
	})

	t.Run("delete of an idle resource", func(t *testing.T) {
		h := newBookingHarness(t)
		svc := newResourceServiceForTest(h)
		if err := svc.DeleteResource(ctx, admin, "ps5-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := svc.GetResource(ctx, "ps5-1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})
}

func TestResourceService_ListResources(t *testing.T) {
	b := ps5()
	b.ID, b.Name = "b", "beta"
	a := ps5()
	a.ID, a.Name = "a", "Alpha"
	c := ps5()
	c.ID, c.Name = "c", "alpha"
	h := newBookingHarness(t, b, c, a)
	svc := newResourceServiceForTest(h)

	resources, err := svc.ListResources(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for _, r := range resources {
		ids = append(ids, r.ID)
	}
	if want := []string{"a", "c", "b"}; !slices.Equal(ids, want) {
		t.Fatalf("expected order %v, got %v", want, ids)
	}
}
