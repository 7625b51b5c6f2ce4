package main

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Gate angles are entered and displayed in pi notation where possible,
// so "pi/2" round-trips instead of degrading to 1.570796.

// piExprRegex matches pi expressions: an optional sign, an optional
// coefficient (with or without "*"), and an optional numeric divisor.
// Examples: pi, 2pi, 2*pi, pi/2, 3pi/4, -pi, -2*pi/3.
var piExprRegex = regexp.MustCompile(`^(-?)(\d*\.?\d*)\s*\*?\s*pi(?:\s*/\s*(\d+\.?\d*))?$`)

// parseParamExpr evaluates one parameter expression. Plain numbers pass
// through strconv (so scientific notation like "3.14e-2" works); anything
// else must match piExprRegex. Reports false for unparseable input,
// including a zero divisor.
func parseParamExpr(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}

	m := piExprRegex.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0, false
	}
	v := math.Pi
	if m[2] != "" {
		coeff, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, false
		}
		v *= coeff
	}
	if m[3] != "" {
		div, err := strconv.ParseFloat(m[3], 64)
		if err != nil || div == 0 {
			return 0, false
		}
		v /= div
	}
	if m[1] == "-" {
		v = -v
	}
	return v, true
}

// piDisplayForms maps common angles to the pi-notation strings the
// history and parameter prompt show. Every entry parses back through
// parseParamExpr.
var piDisplayForms = []struct {
	value   float64
	display string
}{
	{2 * math.Pi, "2*pi"},
	{math.Pi, "pi"},
	{math.Pi / 2, "pi/2"},
	{math.Pi / 3, "pi/3"},
	{math.Pi / 4, "pi/4"},
	{math.Pi / 6, "pi/6"},
	{math.Pi / 8, "pi/8"},
	{3 * math.Pi / 4, "3*pi/4"},
	{3 * math.Pi / 2, "3*pi/2"},
	{2 * math.Pi / 3, "2*pi/3"},
}

// formatParam renders an angle for display, matching the pi table in
// either sign before falling back to %g.
func formatParam(val float64) string {
	for _, pf := range piDisplayForms {
		if math.Abs(val-pf.value) < 1e-10 {
			return pf.display
		}
		if math.Abs(val+pf.value) < 1e-10 {
			return "-" + pf.display
		}
	}
	return fmt.Sprintf("%g", val)
}

// parseParams splits a comma separated parameter list and evaluates
// every entry. A single bad entry fails the whole list (nil), so a gate
// is never applied with a partial argument set. Blank entries are
// skipped, which also makes the empty string parse to no parameters.
func parseParams(input string) []float64 {
	var params []float64
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, ok := parseParamExpr(part)
		if !ok {
			return nil
		}
		params = append(params, v)
	}
	return params
}
