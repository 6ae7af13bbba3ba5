package core

import (
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12", 1200, false},
		{"0.5", 50, false},
		{".5", 50, false},
		{"12.3", 1230, false},
		{"12.344", 1234, false}, // third decimal below half rounds down
		{"12.345", 1235, false}, // half rounds up
		{"12.346", 1235, false},
		{"12.005", 1201, false},
		{"  7.25  ", 725, false},
		{"0", 0, true},
		{"", 0, true},
		{"-12.34", 0, true},
		{"+12.34", 0, true},
		{"12.34.56", 0, true},
		{"abc", 0, true},
		{"12a.34", 0, true},
		{"99999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d cents, got %d", tt.want, got)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{-1234, "-12.34"},
		{5, "0.05"},
		{-5, "-0.05"},
		{0, "0.00"},
		{100000, "1000.00"},
	}

	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestMoneyNeg(t *testing.T) {
	if got := (Money{Cents: 500}).Neg(); got.Cents != -500 {
		t.Errorf("expected -500, got %d", got.Cents)
	}
	if got := (Money{Cents: -500}).Neg(); got.Cents != 500 {
		t.Errorf("expected 500, got %d", got.Cents)
	}
}
