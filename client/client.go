// Package client is the Go access layer for a running simulator
// daemon: it registers for an access token and wraps the framed text
// protocol in typed register operations.
package client

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/quforge/qusim/qasm"
)

// MeasureOutcome is the result of a measurement request.
type MeasureOutcome struct {
	State     int
	Prob      float64
	Collapsed []int
}

// Client is a synchronous protocol client. All methods are safe for
// concurrent use; requests are serialized on the single connection.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	counter int
	token   string
	id      string
}

// Dial connects to a daemon and registers under the given client id.
func Dial(addr, id string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	c := &Client{conn: conn, id: id}

	msg := c.nextMessage(qasm.MsgIDRegister)
	msg.SetParam(qasm.TagClientID, id)
	resp, err := c.roundTripLocked(msg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.token = resp.Params[qasm.TagClientToken]
	if c.token == "" {
		conn.Close()
		return nil, fmt.Errorf("client: registration returned no token")
	}
	return c, nil
}

// Close unregisters and drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	msg := c.nextMessage(qasm.MsgIDUnregister)
	msg.SetParam(qasm.TagClientToken, c.token)
	c.roundTripLocked(msg) // best effort
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) nextMessage(id int) *qasm.Message {
	c.counter++
	return qasm.NewMessage(c.counter, id)
}

// roundTripLocked sends one message and reads its response. The caller
// holds the mutex.
func (c *Client) roundTripLocked(msg *qasm.Message) (*qasm.Message, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("client: connection closed")
	}
	if err := qasm.WriteMessage(c.conn, msg); err != nil {
		return nil, fmt.Errorf("client: send: %w", err)
	}
	resp, err := qasm.ReadMessage(c.conn)
	if err != nil {
		return nil, fmt.Errorf("client: receive: %w", err)
	}
	if resp.Counter != msg.Counter {
		return nil, fmt.Errorf("client: response counter %d for request %d",
			resp.Counter, msg.Counter)
	}
	if resp.Params[qasm.TagResult] != qasm.ResultOK {
		return nil, fmt.Errorf("client: %s", resp.Params[qasm.TagError])
	}
	return resp, nil
}

// request builds, tags and sends one instruction message.
func (c *Client) request(id int, params map[string]string) (*qasm.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := c.nextMessage(id)
	msg.SetParam(qasm.TagClientToken, c.token)
	for k, v := range params {
		msg.SetParam(k, v)
	}
	return c.roundTripLocked(msg)
}

// Allocate creates a register of qn qubits and returns its handle.
func (c *Client) Allocate(qn int) (int, error) {
	resp, err := c.request(qasm.MsgIDQregAllocate, map[string]string{
		qasm.TagQregQn: strconv.Itoa(qn),
	})
	if err != nil {
		return 0, err
	}
	return resp.ParamInt(qasm.TagQregH)
}

// Release frees a register handle.
func (c *Client) Release(handle int) error {
	_, err := c.request(qasm.MsgIDQregRelease, map[string]string{
		qasm.TagQregH: strconv.Itoa(handle),
	})
	return err
}

// Reset puts the register back in the all-zero state.
func (c *Client) Reset(handle int) error {
	_, err := c.request(qasm.MsgIDQregReset, map[string]string{
		qasm.TagQregH: strconv.Itoa(handle),
	})
	return err
}

// SetPure sets the register to one computational basis state.
func (c *Client) SetPure(handle, stIdx int) error {
	_, err := c.request(qasm.MsgIDQregSet, map[string]string{
		qasm.TagQregH:     strconv.Itoa(handle),
		qasm.TagQregStIdx: strconv.Itoa(stIdx),
	})
	return err
}

// SetStates loads an arbitrary state vector. The values are taken as
// given; the caller normalizes.
func (c *Client) SetStates(handle int, vals []complex128) error {
	_, err := c.request(qasm.MsgIDQregSet, map[string]string{
		qasm.TagQregH:      strconv.Itoa(handle),
		qasm.TagQregStVals: qasm.FormatStates(vals),
	})
	return err
}

func transformParams(handle int, ftype qasm.FType, fsize, frep, flsq int, args []float64) map[string]string {
	p := map[string]string{
		qasm.TagQregH: strconv.Itoa(handle),
		qasm.TagFType: strconv.Itoa(int(ftype)),
		qasm.TagFSize: strconv.Itoa(fsize),
		qasm.TagFRep:  strconv.Itoa(frep),
		qasm.TagFLSQ:  strconv.Itoa(flsq),
	}
	if len(args) > 0 {
		p[qasm.TagFArgs] = qasm.FormatArgs(args)
	}
	return p
}

// Transform1Q applies a 1-qubit gate, repeated frep times upward from
// the given LSQ offset.
func (c *Client) Transform1Q(handle int, ftype qasm.FType, frep, flsq int, args ...float64) error {
	_, err := c.request(qasm.MsgIDQregTransform,
		transformParams(handle, ftype, 2, frep, flsq, args))
	return err
}

// Transform2Q applies a 2-qubit controlled gate on adjacent qubits.
func (c *Client) Transform2Q(handle int, ftype qasm.FType, crng, trng qasm.IndexRange, flsq int, args ...float64) error {
	p := transformParams(handle, ftype, 4, 1, flsq, args)
	p[qasm.TagFCRange] = qasm.FormatRange(crng)
	p[qasm.TagFTRange] = qasm.FormatRange(trng)
	_, err := c.request(qasm.MsgIDQregTransform, p)
	return err
}

// TransformCU applies a controlled version of an arbitrary 1-qubit gate
// on adjacent qubits.
func (c *Client) TransformCU(handle int, base qasm.FType, crng, trng qasm.IndexRange, flsq int, args ...float64) error {
	p := transformParams(handle, qasm.FTypeCU, 4, 1, flsq, args)
	p[qasm.TagFCRange] = qasm.FormatRange(crng)
	p[qasm.TagFTRange] = qasm.FormatRange(trng)
	p[qasm.TagFUType] = strconv.Itoa(int(base))
	_, err := c.request(qasm.MsgIDQregTransform, p)
	return err
}

// TransformN applies a multi-controlled long-range gate. fsize is the
// full gate span including any gap filler qubits; fuType names the
// controlled base gate.
func (c *Client) TransformN(handle int, ftype qasm.FType, fsize int, crng, trng qasm.IndexRange, fuType qasm.FType, flsq int, args ...float64) error {
	p := transformParams(handle, ftype, fsize, 1, flsq, args)
	p[qasm.TagFCRange] = qasm.FormatRange(crng)
	p[qasm.TagFTRange] = qasm.FormatRange(trng)
	if fuType != qasm.FTypeNull {
		p[qasm.TagFUType] = strconv.Itoa(int(fuType))
	}
	_, err := c.request(qasm.MsgIDQregTransform, p)
	return err
}

// Swap exchanges the two halves of a span of fsize states. fsize 4
// swaps one qubit pair; larger spans swap multi-qubit halves.
func (c *Client) Swap(handle, fsize, flsq int) error {
	kind := qasm.FTypeSwapQn
	if fsize == 4 {
		kind = qasm.FTypeSwapQ1
	}
	_, err := c.request(qasm.MsgIDQregTransform,
		transformParams(handle, kind, fsize, 1, flsq, nil))
	return err
}

// CSwap exchanges two register slices under a control qubit.
func (c *Client) CSwap(handle, fsize int, crng, trng qasm.IndexRange, flsq int) error {
	kind := qasm.FTypeCSwapQn
	if trng.Width() == 2 {
		kind = qasm.FTypeCSwapQ1
	}
	p := transformParams(handle, kind, fsize, 1, flsq, nil)
	p[qasm.TagFCRange] = qasm.FormatRange(crng)
	p[qasm.TagFTRange] = qasm.FormatRange(trng)
	_, err := c.request(qasm.MsgIDQregTransform, p)
	return err
}

// FeatureMap encodes a datapoint vector into register phases.
func (c *Client) FeatureMap(handle, rep, entang, subType int, x []float64) error {
	p := map[string]string{
		qasm.TagQregH:      strconv.Itoa(handle),
		qasm.TagFType:      strconv.Itoa(int(qasm.FTypeQMLFMap)),
		qasm.TagQMLRep:     strconv.Itoa(rep),
		qasm.TagQMLEntang:  strconv.Itoa(entang),
		qasm.TagQMLSubtype: strconv.Itoa(subType),
		qasm.TagFArgs:      qasm.FormatArgs(x),
	}
	_, err := c.request(qasm.MsgIDQregTransform, p)
	return err
}

// QNet applies a parameterized network ansatz over the whole register.
func (c *Client) QNet(handle, rep, entang, layout int, theta []float64) error {
	p := map[string]string{
		qasm.TagQregH:       strconv.Itoa(handle),
		qasm.TagFType:       strconv.Itoa(int(qasm.FTypeQMLQNet)),
		qasm.TagQMLRep:      strconv.Itoa(rep),
		qasm.TagQMLEntang:   strconv.Itoa(entang),
		qasm.TagQMLQNetType: strconv.Itoa(layout),
		qasm.TagFArgs:       qasm.FormatArgs(theta),
	}
	_, err := c.request(qasm.MsgIDQregTransform, p)
	return err
}

// Peek fetches the state vector. Wide registers come back empty; the
// daemon suppresses dumps above its peek limit.
func (c *Client) Peek(handle int) ([]complex128, error) {
	resp, err := c.request(qasm.MsgIDQregPeek, map[string]string{
		qasm.TagQregH: strconv.Itoa(handle),
	})
	if err != nil {
		return nil, err
	}
	if !resp.HasParam(qasm.TagQregStVals) {
		return nil, nil
	}
	return resp.ParamStates(qasm.TagQregStVals)
}

// Measure measures qLen qubits starting at qIdx; qIdx -1 measures the
// whole register. doRand samples the outcome, otherwise the most
// probable state wins; collapse projects the register onto it.
func (c *Client) Measure(handle, qIdx, qLen int, doRand, collapse bool) (MeasureOutcome, error) {
	resp, err := c.request(qasm.MsgIDQregMeasure, map[string]string{
		qasm.TagQregH:     strconv.Itoa(handle),
		qasm.TagQregMQIdx: strconv.Itoa(qIdx),
		qasm.TagQregMQLen: strconv.Itoa(qLen),
		qasm.TagQregMRand: qasm.FormatBool(doRand),
		qasm.TagQregMColl: qasm.FormatBool(collapse),
	})
	if err != nil {
		return MeasureOutcome{}, err
	}
	out := MeasureOutcome{}
	if out.State, err = resp.ParamInt(qasm.TagQregMStIdx); err != nil {
		return MeasureOutcome{}, err
	}
	if out.Prob, err = resp.ParamFloat(qasm.TagQregMStPr); err != nil {
		return MeasureOutcome{}, err
	}
	if resp.HasParam(qasm.TagQregMStIdxs) {
		if out.Collapsed, err = resp.ParamIndices(qasm.TagQregMStIdxs); err != nil {
			return MeasureOutcome{}, err
		}
	}
	return out, nil
}

// Expectation computes the observable expectation over a qubit range.
// stIdx -1 spans all sub-states.
func (c *Client) Expectation(handle, qIdx, qLen, obsOp, stIdx int) (float64, error) {
	resp, err := c.request(qasm.MsgIDQregExpect, map[string]string{
		qasm.TagQregH:       strconv.Itoa(handle),
		qasm.TagQregExQIdx:  strconv.Itoa(qIdx),
		qasm.TagQregExQLen:  strconv.Itoa(qLen),
		qasm.TagQregExObsOp: strconv.Itoa(obsOp),
		qasm.TagQregExStIdx: strconv.Itoa(stIdx),
	})
	if err != nil {
		return 0, err
	}
	return resp.ParamFloat(qasm.TagQregExStVal)
}
