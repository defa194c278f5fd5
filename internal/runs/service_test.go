package runs

import (
	"context"
	"errors"
	"testing"
)

func TestRunTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusQueued, false},
		{StatusRunning, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}
	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			r := Run{Status: tc.status}
			if got := r.Terminal(); got != tc.want {
				t.Errorf("Terminal() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAllowedFrom(t *testing.T) {
	tests := []struct {
		to   string
		from []string
	}{
		{StatusRunning, []string{StatusQueued}},
		{StatusCompleted, []string{StatusQueued, StatusRunning}},
		{StatusFailed, []string{StatusQueued, StatusRunning}},
		{StatusQueued, nil},
	}
	for _, tc := range tests {
		t.Run(tc.to, func(t *testing.T) {
			got := allowedFrom(tc.to)
			if len(got) != len(tc.from) {
				t.Fatalf("allowedFrom(%s) = %v, want %v", tc.to, got, tc.from)
			}
			for i := range got {
				if got[i] != tc.from[i] {
					t.Errorf("allowedFrom(%s)[%d] = %s, want %s", tc.to, i, got[i], tc.from[i])
				}
			}
		})
	}
}

func TestRunOptionalFields(t *testing.T) {
	ref := "runs/r-1/result.json"
	r := Run{ID: "r-1", Source: "api", Status: StatusCompleted, ResultRef: &ref}

	if r.InputRef != nil {
		t.Errorf("InputRef = %v, want nil", r.InputRef)
	}
	if *r.ResultRef != ref {
		t.Errorf("ResultRef = %q, want %q", *r.ResultRef, ref)
	}
}

func TestNewService(t *testing.T) {
	// NewService only stores the handle.
	svc := NewService(nil)
	if svc == nil {
		t.Fatal("NewService returned nil")
	}
}

func TestGetRun_MalformedID(t *testing.T) {
	// A malformed ID never reaches the database, so a nil handle is safe.
	svc := NewService(nil)
	_, err := svc.GetRun(context.Background(), "not-a-uuid")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun() error = %v, want ErrNotFound", err)
	}
}
