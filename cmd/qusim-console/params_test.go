package main

import (
	"math"
	"testing"
)

func TestParseParamExpr(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1.5707", 1.5707, true},
		{"-0.5", -0.5, true},
		{"3.14e-2", 0.0314, true},
		{"pi", math.Pi, true},
		{"PI", math.Pi, true},
		{"pi/2", math.Pi / 2, true},
		{"pi/4", math.Pi / 4, true},
		{"2pi", 2 * math.Pi, true},
		{"2*pi", 2 * math.Pi, true},
		{"3pi/4", 3 * math.Pi / 4, true},
		{"3*pi/4", 3 * math.Pi / 4, true},
		{"-pi", -math.Pi, true},
		{"-pi/2", -math.Pi / 2, true},
		{"-2*pi/3", -2 * math.Pi / 3, true},
		{" pi / 2 ", math.Pi / 2, true},
		{"", 0, false},
		{"tau", 0, false},
		{"pi/0", 0, false},
		{"pi/", 0, false},
		{"1..2", 0, false},
	}

	for _, c := range cases {
		got, ok := parseParamExpr(c.in)
		if ok != c.ok {
			t.Errorf("parseParamExpr(%q): ok=%v, want %v", c.in, ok, c.ok)
			continue
		}
		if ok && math.Abs(got-c.want) > 1e-12 {
			t.Errorf("parseParamExpr(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFormatParamRoundTrip(t *testing.T) {
	values := []float64{
		math.Pi, math.Pi / 2, math.Pi / 4, 3 * math.Pi / 4,
		-math.Pi, -math.Pi / 2, 2 * math.Pi, 1.25, -0.75,
	}
	for _, v := range values {
		s := formatParam(v)
		got, ok := parseParamExpr(s)
		if !ok {
			t.Errorf("formatParam(%v) = %q does not parse back", v, s)
			continue
		}
		if math.Abs(got-v) > 1e-10 {
			t.Errorf("round trip %v -> %q -> %v", v, s, got)
		}
	}
}

func TestParseParams(t *testing.T) {
	got := parseParams("pi/2, 0.3, -pi")
	if len(got) != 3 {
		t.Fatalf("expected 3 params, got %v", got)
	}
	if math.Abs(got[0]-math.Pi/2) > 1e-12 || math.Abs(got[1]-0.3) > 1e-12 ||
		math.Abs(got[2]+math.Pi) > 1e-12 {
		t.Errorf("unexpected values: %v", got)
	}

	if parseParams("pi/2, nope") != nil {
		t.Error("invalid entry should fail the whole list")
	}
	if parseParams("") != nil {
		t.Error("empty input should produce no params")
	}
}
