package domain

import (
	"errors"
	"testing"
	"time"
)

func TestToAbsoluteInstant(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		date string
		time string
		want string
	}{
		{name: "morning", date: "2025-01-15", time: "09:00", want: "2025-01-15T03:30:00Z"},
		{name: "crosses day backwards", date: "2025-03-01", time: "02:15", want: "2025-02-28T20:45:00Z"},
		{name: "leap day", date: "2024-02-29", time: "23:59", want: "2024-02-29T18:29:00Z"},
		{name: "padded input", date: " 2025-06-01 ", time: " 05:30 ", want: "2025-06-01T00:00:00Z"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ToAbsoluteInstant(tt.date, tt.time)
			if err != nil {
				t.Fatalf("ToAbsoluteInstant(%q, %q) error: %v", tt.date, tt.time, err)
			}
			if got.Format(time.RFC3339) != tt.want {
				t.Fatalf("ToAbsoluteInstant(%q, %q) = %s, want %s", tt.date, tt.time, got.Format(time.RFC3339), tt.want)
			}
			if got.Location() != time.UTC {
				t.Fatalf("location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestToAbsoluteInstantIsDeterministic(t *testing.T) {
	t.Parallel()
	first, err := ToAbsoluteInstant("2025-01-15", "09:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := ToAbsoluteInstant("2025-01-15", "09:00")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !again.Equal(first) {
			t.Fatalf("call %d returned %s, want %s", i, again, first)
		}
	}
}

func TestToAbsoluteInstantInvalid(t *testing.T) {
	t.Parallel()
	cases := [][2]string{
		{"2025-13-01", "09:00"},
		{"2025-02-30", "09:00"},
		{"15/01/2025", "09:00"},
		{"2025-01-15", "24:00"},
		{"2025-01-15", "9am"},
		{"", "09:00"},
		{"2025-01-15", ""},
	}
	for _, c := range cases {
		if _, err := ToAbsoluteInstant(c[0], c[1]); !errors.Is(err, ErrInvalidTimeFormat) {
			t.Fatalf("ToAbsoluteInstant(%q, %q) error = %v, want ErrInvalidTimeFormat", c[0], c[1], err)
		}
	}
}

func TestEligible(t *testing.T) {
	t.Parallel()
	r := &Reminder{Status: StatusActive}
	if !r.Eligible(5) {
		t.Fatal("fresh active reminder should be eligible")
	}
	r.Attempts = 5
	if r.Eligible(5) {
		t.Fatal("reminder at max attempts should not be eligible")
	}
	r.Attempts = 0
	r.Sent = true
	if r.Eligible(5) {
		t.Fatal("sent reminder should not be eligible")
	}
	r.Sent = false
	r.Status = StatusCancelled
	if r.Eligible(5) {
		t.Fatal("cancelled reminder should not be eligible")
	}
}
