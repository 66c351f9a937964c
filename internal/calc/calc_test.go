// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package calc

import (
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// EVALUATION TESTS
// =============================================================================

func TestCalculateBasics(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"5+3", 8},
		{"10*5+2", 52},
		{"100/4", 25},
		{"(5+3)*2", 16},
		{"2**10", 1024},
		{"2**3**2", 512}, // right-associative
		{"-5+3", -2},
		{"--4", 4},
		{"3.5*2", 7},
		{"10 - 2 * 3", 4},
		{"(1+2)*(3+4)", 21},
		{"7/2", 3.5},
		{"2**-1", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			result, err := Calculate(tt.expr)
			if err != nil {
				t.Fatalf("Calculate(%q) failed: %v", tt.expr, err)
			}
			if result.Value != tt.want {
				t.Errorf("Calculate(%q) = %v, want %v", tt.expr, result.Value, tt.want)
			}
		})
	}
}

func TestCalculateDivisionByZero(t *testing.T) {
	_, err := Calculate("5/0")
	if !errors.Is(err, ErrDivideByZero) {
		t.Errorf("Expected division-by-zero error, got %v", err)
	}
}

func TestCalculateMalformed(t *testing.T) {
	for _, expr := range []string{"(5+3", "5+", "()", "1..2..3"} {
		if _, err := Calculate(expr); err == nil {
			t.Errorf("Calculate(%q) should have failed", expr)
		}
	}
}

// =============================================================================
// GUARD RAIL TESTS
// =============================================================================

func TestGuardRails(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr error
	}{
		{"empty", "", ErrEmpty},
		{"whitespace only", "   ", ErrEmpty},
		{"too long", strings.Repeat("1+", 100) + "1", ErrTooLong},
		{"letters rejected", "import1+2", ErrBadCharacter},
		{"underscore rejected", "_1+2", ErrBadCharacter},
		{"caret rejected", "2^10", ErrBadCharacter},
		{"too many operators", strings.Repeat("(", 61) + "1", ErrTooComplex},
		{"wide exponent", "2**1234567", ErrExponentWide},
		{"huge exponent", "2**99999", ErrExponentHuge},
		{"operator run", "1+++++2", ErrOperatorRun},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(tt.expr)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Calculate(%q) error = %v, want %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestExponentAtLimitAllowed(t *testing.T) {
	result, err := Calculate("2**10")
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if result.Value != 1024 {
		t.Errorf("2**10 = %v", result.Value)
	}

	// 10000 is the inclusive limit; it overflows float64 but must pass the
	// guard and fail on finiteness instead.
	if _, err := Calculate("2**10000"); !errors.Is(err, ErrNotFinite) {
		t.Errorf("2**10000 error = %v, want %v", err, ErrNotFinite)
	}
}

func TestFourConsecutiveOperatorsAllowed(t *testing.T) {
	// Four in a row passes the run check: 2**-- parses as 2**(+4).
	result, err := Calculate("2**--4")
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if result.Value != 16 {
		t.Errorf("2**--4 = %v", result.Value)
	}
}

// =============================================================================
// FORMATTING TESTS
// =============================================================================

func TestFormatResult(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{8, "8"},
		{1024, "1.024"},
		{1234567, "1.234.567"},
		{-1234567, "-1.234.567"},
		{3.5, "3,5000"},
		{1234.5678, "1.234,5678"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := FormatResult(tt.value); got != tt.want {
			t.Errorf("FormatResult(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}
