// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package calc evaluates arithmetic expressions for the demo backend.
//
// Input comes from chat users, so the evaluator is deliberately narrow:
// numbers, + - * / ** and parentheses, nothing else. A set of guard rails
// rejects oversized or degenerate input before parsing so a hostile
// expression cannot burn CPU or memory.
package calc

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// SECURITY: guard-rail limits applied before any parsing.
const (
	// MaxExprLen caps the expression length in bytes.
	MaxExprLen = 200

	// MaxOperators caps the total count of operator characters.
	MaxOperators = 60

	// MaxExponentDigits caps the digit count of a literal exponent.
	MaxExponentDigits = 6

	// MaxExponentValue caps the value of a literal exponent.
	MaxExponentValue = 10000

	// maxConsecutiveOperators rejects degenerate operator runs.
	maxConsecutiveOperators = 4
)

var (
	ErrEmpty         = errors.New("expression is empty")
	ErrTooLong       = fmt.Errorf("expression too long (maximum %d characters)", MaxExprLen)
	ErrBadCharacter  = errors.New("invalid character; only numbers and arithmetic operators are allowed")
	ErrTooComplex    = fmt.Errorf("expression too complex (maximum %d operators)", MaxOperators)
	ErrExponentWide  = fmt.Errorf("exponent too large (maximum %d digits)", MaxExponentDigits)
	ErrExponentHuge  = fmt.Errorf("exponent value too large (maximum %d)", MaxExponentValue)
	ErrOperatorRun   = errors.New("excessive operator repetition detected")
	ErrDivideByZero  = errors.New("division by zero")
	ErrMalformed     = errors.New("malformed expression")
	ErrNotFinite     = errors.New("result is not a finite number")
)

var (
	allowedCharsRe = regexp.MustCompile(`^[0-9+\-*/().\s]+$`)
	exponentRe     = regexp.MustCompile(`\*\*\s*(\d+)`)
	operatorRunRe  = regexp.MustCompile(`[+\-*/]{5,}`)
)

// Result is a completed calculation.
type Result struct {
	Expression string  `json:"expression"`
	Value      float64 `json:"result"`
	Formatted  string  `json:"formatted"`
}

// Calculate validates and evaluates an expression.
func Calculate(expression string) (Result, error) {
	expr := strings.TrimSpace(expression)
	if err := checkGuardRails(expr); err != nil {
		return Result{}, err
	}

	value, err := evaluate(expr)
	if err != nil {
		return Result{}, err
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return Result{}, ErrNotFinite
	}

	return Result{
		Expression: expression,
		Value:      value,
		Formatted:  FormatResult(value),
	}, nil
}

// checkGuardRails applies every input limit, cheapest first.
func checkGuardRails(expr string) error {
	if expr == "" {
		return ErrEmpty
	}
	if len(expr) > MaxExprLen {
		return ErrTooLong
	}
	if !allowedCharsRe.MatchString(expr) {
		return ErrBadCharacter
	}

	operators := 0
	for _, r := range expr {
		switch r {
		case '+', '-', '*', '/', '(', ')', '.':
			operators++
		}
	}
	if operators > MaxOperators {
		return ErrTooComplex
	}

	for _, m := range exponentRe.FindAllStringSubmatch(expr, -1) {
		digits := m[1]
		if len(digits) > MaxExponentDigits {
			return ErrExponentWide
		}
		value, err := strconv.Atoi(digits)
		if err != nil || value > MaxExponentValue {
			return ErrExponentHuge
		}
	}

	if operatorRunRe.MatchString(expr) {
		return ErrOperatorRun
	}
	return nil
}

// FormatResult renders a value in Turkish number format: "." as the
// thousands separator, "," as the decimal mark, four decimal places for
// non-integers.
func FormatResult(value float64) string {
	if value == math.Trunc(value) && math.Abs(value) < 1e15 {
		return groupDigits(strconv.FormatInt(int64(value), 10))
	}
	s := strconv.FormatFloat(value, 'f', 4, 64)
	parts := strings.SplitN(s, ".", 2)
	return groupDigits(parts[0]) + "," + parts[1]
}

// groupDigits inserts "." thousands separators into a decimal integer
// string, preserving a leading sign.
func groupDigits(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}
	var sb strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		sb.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(s[i : i+3])
	}
	return sign + sb.String()
}
