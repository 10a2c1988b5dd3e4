package core

import (
	"errors"
	"testing"
)

func TestSplitAmountsEven(t *testing.T) {
	// 64.00 across 4 roommates -> 16.00 each
	shares, err := SplitAmounts(Money{Cents: 6400}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shares) != 4 {
		t.Fatalf("expected 4 shares, got %d", len(shares))
	}
	for i, s := range shares {
		if s.Cents != 1600 {
			t.Fatalf("share %d = %d cents, want 1600", i, s.Cents)
		}
	}
}

func TestSplitAmountsRemainder(t *testing.T) {
	// 64.00 across 3 roommates: 21.34 + 21.33 + 21.33
	shares, err := SplitAmounts(Money{Cents: 6400}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int64{2134, 2133, 2133}
	var sum int64
	for i, s := range shares {
		if s.Cents != want[i] {
			t.Fatalf("share %d = %d cents, want %d", i, s.Cents, want[i])
		}
		sum += s.Cents
	}
	if sum != 6400 {
		t.Fatalf("shares sum to %d, want 6400", sum)
	}
}

func TestSplitAmountsConservation(t *testing.T) {
	cases := []struct {
		cents int64
		n     int
	}{
		{1, 1},
		{100, 3},
		{9999, 7},
		{12345, 4},
		{200, 200},
		{199, 200},
	}
	for _, tc := range cases {
		shares, err := SplitAmounts(Money{Cents: tc.cents}, tc.n)
		if err != nil {
			t.Fatalf("SplitAmounts(%d, %d) unexpected error: %v", tc.cents, tc.n, err)
		}
		var sum int64
		for _, s := range shares {
			if s.Cents < 0 {
				t.Fatalf("SplitAmounts(%d, %d) produced negative share", tc.cents, tc.n)
			}
			sum += s.Cents
		}
		if sum != tc.cents {
			t.Fatalf("SplitAmounts(%d, %d) shares sum to %d", tc.cents, tc.n, sum)
		}
	}
}

func TestSplitAmountsNoRoommates(t *testing.T) {
	if _, err := SplitAmounts(Money{Cents: 6400}, 0); !errors.Is(err, ErrNoRoommates) {
		t.Fatalf("expected ErrNoRoommates, got %v", err)
	}
	if _, err := SplitAmounts(Money{Cents: 6400}, -1); !errors.Is(err, ErrNoRoommates) {
		t.Fatalf("expected ErrNoRoommates, got %v", err)
	}
}

func TestSplitAmountsInvalidTotal(t *testing.T) {
	if _, err := SplitAmounts(Money{Cents: 0}, 2); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
