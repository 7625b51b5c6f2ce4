package qasm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Wire format separators. A message is rendered as
// "counter|id|tag=value:tag=value:".
const (
	fieldSep  = "|"
	paramSep  = ":"
	parValSep = "="
)

// Message is one protocol unit: an instruction or a response.
type Message struct {
	Counter int
	ID      int
	Params  map[string]string
}

func NewMessage(counter, id int) *Message {
	return &Message{Counter: counter, ID: id, Params: make(map[string]string)}
}

// IsControl reports whether the message is a client access control one.
func (m *Message) IsControl() bool {
	return m.ID == MsgIDRegister || m.ID == MsgIDUnregister
}

func (m *Message) SetParam(tag, val string) {
	if m.Params == nil {
		m.Params = make(map[string]string)
	}
	m.Params[tag] = val
}

func (m *Message) HasParam(tag string) bool {
	_, ok := m.Params[tag]
	return ok
}

// Encode renders the message in wire text form.
func (m *Message) Encode() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(m.Counter))
	sb.WriteString(fieldSep)
	sb.WriteString(strconv.Itoa(m.ID))
	sb.WriteString(fieldSep)
	for tag, val := range m.Params {
		sb.WriteString(tag)
		sb.WriteString(parValSep)
		sb.WriteString(val)
		sb.WriteString(paramSep)
	}
	return sb.String()
}

// Decode parses a wire text message.
func Decode(raw string) (*Message, error) {
	idx := strings.Index(raw, fieldSep)
	if idx < 1 {
		return nil, fmt.Errorf("qasm: malformed message %q", truncate(raw))
	}
	counter, err := strconv.Atoi(raw[:idx])
	if err != nil {
		return nil, fmt.Errorf("qasm: bad message counter: %w", err)
	}
	raw = raw[idx+1:]

	idx = strings.Index(raw, fieldSep)
	if idx < 1 {
		return nil, fmt.Errorf("qasm: malformed message %q", truncate(raw))
	}
	id, err := strconv.Atoi(raw[:idx])
	if err != nil {
		return nil, fmt.Errorf("qasm: bad message id: %w", err)
	}
	raw = raw[idx+1:]

	msg := NewMessage(counter, id)
	for len(raw) > 0 {
		idx = strings.Index(raw, paramSep)
		if idx < 0 {
			return nil, fmt.Errorf("qasm: malformed parameter %q", truncate(raw))
		}
		pair := raw[:idx]
		raw = raw[idx+1:]
		eq := strings.Index(pair, parValSep)
		if eq < 0 {
			return nil, fmt.Errorf("qasm: malformed tag-value pair %q", truncate(pair))
		}
		msg.Params[pair[:eq]] = pair[eq+1:]
	}
	return msg, nil
}

func truncate(s string) string {
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}

// -----------------------------------------------------------------------
// typed parameter accessors

func (m *Message) ParamInt(tag string) (int, error) {
	val, ok := m.Params[tag]
	if !ok {
		return 0, fmt.Errorf("qasm: missing parameter %q", tag)
	}
	v, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("qasm: parameter %q: %w", tag, err)
	}
	return v, nil
}

// ParamIntDefault returns the tag value or def when the tag is absent.
func (m *Message) ParamIntDefault(tag string, def int) (int, error) {
	if !m.HasParam(tag) {
		return def, nil
	}
	return m.ParamInt(tag)
}

func (m *Message) ParamFloat(tag string) (float64, error) {
	val, ok := m.Params[tag]
	if !ok {
		return 0, fmt.Errorf("qasm: missing parameter %q", tag)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return 0, fmt.Errorf("qasm: parameter %q: %w", tag, err)
	}
	return v, nil
}

func (m *Message) ParamBool(tag string) (bool, error) {
	val, ok := m.Params[tag]
	if !ok {
		return false, fmt.Errorf("qasm: missing parameter %q", tag)
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("qasm: parameter %q: bad bool %q", tag, val)
}

func (m *Message) ParamFType(tag string) (FType, error) {
	v, err := m.ParamInt(tag)
	if err != nil {
		return FTypeNull, err
	}
	return FType(v), nil
}

func (m *Message) ParamRange(tag string) (IndexRange, error) {
	val, ok := m.Params[tag]
	if !ok {
		return NullRange, fmt.Errorf("qasm: missing parameter %q", tag)
	}
	return ParseRange(val)
}

func (m *Message) ParamStates(tag string) ([]complex128, error) {
	val, ok := m.Params[tag]
	if !ok {
		return nil, fmt.Errorf("qasm: missing parameter %q", tag)
	}
	return ParseStates(val)
}

func (m *Message) ParamArgs(tag string) ([]float64, error) {
	val, ok := m.Params[tag]
	if !ok {
		return nil, fmt.Errorf("qasm: missing parameter %q", tag)
	}
	return ParseArgs(val)
}

func (m *Message) ParamIndices(tag string) ([]int, error) {
	val, ok := m.Params[tag]
	if !ok {
		return nil, fmt.Errorf("qasm: missing parameter %q", tag)
	}
	return ParseIndices(val)
}

// -----------------------------------------------------------------------
// value encoding helpers

// FormatFloat renders a float with 6 significant digits, the protocol
// precision for amplitudes, angles and probabilities.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func FormatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// FormatRange renders an index range as "(start,stop)".
func FormatRange(r IndexRange) string {
	return fmt.Sprintf("(%d,%d)", r.Start, r.Stop)
}

var rangeRegex = regexp.MustCompile(`^\(\s*(-?\d+)\s*,\s*(-?\d+)\s*\)$`)

func ParseRange(s string) (IndexRange, error) {
	mt := rangeRegex.FindStringSubmatch(strings.TrimSpace(s))
	if mt == nil {
		return NullRange, fmt.Errorf("qasm: bad index range %q", s)
	}
	start, _ := strconv.Atoi(mt[1])
	stop, _ := strconv.Atoi(mt[2])
	return IndexRange{Start: start, Stop: stop}, nil
}

// FormatStates renders a state array as "(re,im),(re,im),...".
func FormatStates(vals []complex128) string {
	var sb strings.Builder
	for i, v := range vals {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(")
		sb.WriteString(FormatFloat(real(v)))
		sb.WriteString(",")
		sb.WriteString(FormatFloat(imag(v)))
		sb.WriteString(")")
	}
	return sb.String()
}

var stateRegex = regexp.MustCompile(`\(\s*([^,()]+)\s*,\s*([^,()]+)\s*\)`)

func ParseStates(s string) ([]complex128, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	pairs := stateRegex.FindAllStringSubmatch(s, -1)
	if pairs == nil {
		return nil, fmt.Errorf("qasm: bad state array %q", truncate(s))
	}
	vals := make([]complex128, 0, len(pairs))
	for _, p := range pairs {
		re, err := strconv.ParseFloat(strings.TrimSpace(p[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("qasm: bad state value %q: %w", p[1], err)
		}
		im, err := strconv.ParseFloat(strings.TrimSpace(p[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("qasm: bad state value %q: %w", p[2], err)
		}
		vals = append(vals, complex(re, im))
	}
	return vals, nil
}

// FormatArgs renders function arguments as a comma joined scalar list.
func FormatArgs(args []float64) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = FormatFloat(a)
	}
	return strings.Join(parts, ",")
}

func ParseArgs(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	args := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("qasm: bad function argument %q: %w", p, err)
		}
		args = append(args, v)
	}
	return args, nil
}

// FormatIndices renders a measurement index list as a comma joined list.
func FormatIndices(idxs []int) string {
	parts := make([]string, len(idxs))
	for i, v := range idxs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func ParseIndices(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	idxs := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("qasm: bad state index %q: %w", p, err)
		}
		idxs = append(idxs, v)
	}
	return idxs, nil
}

// -----------------------------------------------------------------------
// response builders

// OkResponse builds a success response for the given request counter.
func OkResponse(counter int) *Message {
	msg := NewMessage(counter, MsgIDResponse)
	msg.SetParam(TagResult, ResultOK)
	return msg
}

// ErrResponse builds a failure response carrying the error detail.
// Error text routinely contains the parameter separator ("pkg: reason"),
// which would split the value on decode, so separators are rewritten.
func ErrResponse(counter int, detail string) *Message {
	msg := NewMessage(counter, MsgIDResponse)
	msg.SetParam(TagResult, ResultNotOK)
	msg.SetParam(TagError, strings.ReplaceAll(detail, paramSep, ";"))
	return msg
}
