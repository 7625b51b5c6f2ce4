// Package session owns the live register set of a simulator instance
// and executes decoded instruction messages against it.
package session

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/davecgh/go-spew/spew"

	"github.com/quforge/qusim/engine"
	"github.com/quforge/qusim/instr"
	"github.com/quforge/qusim/qasm"
	"github.com/quforge/qusim/qreg"
)

var logger = log.WithPrefix("session")

// Session maps register handles to live registers and dispatches
// instruction messages. Handles are monotonic and start at 1; a
// released handle is never reused within a session.
type Session struct {
	mu      sync.Mutex
	backend engine.Backend
	regs    map[int]*qreg.Register
	nextH   int
	verbose bool
}

func New(backend engine.Backend) *Session {
	return &Session{
		backend: backend,
		regs:    make(map[int]*qreg.Register),
		nextH:   1,
	}
}

// SetVerbose enables instruction dumps at debug level.
func (s *Session) SetVerbose(v bool) {
	s.mu.Lock()
	s.verbose = v
	s.mu.Unlock()
}

// Registers reports the number of live registers.
func (s *Session) Registers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.regs)
}

// ResetAll releases every register and restarts the handle sequence.
func (s *Session) ResetAll() {
	s.mu.Lock()
	s.regs = make(map[int]*qreg.Register)
	s.nextH = 1
	s.mu.Unlock()
	logger.Debug("session reset, all registers released")
}

// Dispatch executes one instruction message and always returns a
// response message. Instruction failures come back as Not-Ok responses
// with an error detail, never as a dropped message.
func (s *Session) Dispatch(msg *qasm.Message) *qasm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Debug("dispatch", "counter", msg.Counter, "id", msg.ID)

	switch {
	case instr.IsBlock(msg):
		return s.execBlock(msg)
	case instr.IsQML(msg):
		return s.execQML(msg)
	case instr.IsCore(msg):
		c, err := instr.ParseCore(msg)
		if err != nil {
			return qasm.ErrResponse(msg.Counter, err.Error())
		}
		if s.verbose {
			logger.Debug("instruction", "dump", spew.Sdump(c))
		}
		return s.execCore(c, msg.Counter)
	}
	return qasm.ErrResponse(msg.Counter, fmt.Sprintf("unsupported instruction %d", msg.ID))
}

func (s *Session) reg(handle int) (*qreg.Register, error) {
	r, ok := s.regs[handle]
	if !ok {
		return nil, fmt.Errorf("no register with handle %d", handle)
	}
	return r, nil
}

// applyCores runs an unwrapped gate sequence against one register.
func (s *Session) applyCores(handle int, cores []*instr.Core) error {
	r, err := s.reg(handle)
	if err != nil {
		return err
	}
	for _, c := range cores {
		g, err := c.GateSpec()
		if err != nil {
			return err
		}
		if err := r.Transform(g, c.FRep, c.FLSQ); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) execBlock(msg *qasm.Message) *qasm.Message {
	b, err := instr.ParseBlock(msg)
	if err != nil {
		return qasm.ErrResponse(msg.Counter, err.Error())
	}
	if s.verbose {
		logger.Debug("function block", "dump", spew.Sdump(b))
	}
	cores, err := b.Unwrap()
	if err != nil {
		return qasm.ErrResponse(msg.Counter, err.Error())
	}
	logger.Debug("block unwrapped", "kind", b.Kind.String(), "cores", len(cores))
	if err := s.applyCores(b.Handle, cores); err != nil {
		return qasm.ErrResponse(msg.Counter, err.Error())
	}
	return qasm.OkResponse(msg.Counter)
}

func (s *Session) execQML(msg *qasm.Message) *qasm.Message {
	q, err := instr.ParseQML(msg)
	if err != nil {
		return qasm.ErrResponse(msg.Counter, err.Error())
	}
	if s.verbose {
		logger.Debug("QML block", "dump", spew.Sdump(q))
	}
	r, err := s.reg(q.Handle)
	if err != nil {
		return qasm.ErrResponse(msg.Counter, err.Error())
	}
	cores, err := q.Unwrap(r.TotQubits())
	if err != nil {
		return qasm.ErrResponse(msg.Counter, err.Error())
	}
	logger.Debug("QML block unwrapped", "kind", q.Kind.String(), "cores", len(cores))
	if err := s.applyCores(q.Handle, cores); err != nil {
		return qasm.ErrResponse(msg.Counter, err.Error())
	}
	return qasm.OkResponse(msg.Counter)
}

func (s *Session) execCore(c *instr.Core, counter int) *qasm.Message {
	switch c.Kind {
	case qasm.MsgIDQregAllocate:
		if c.QN > qreg.MaxQubits {
			return qasm.ErrResponse(counter,
				fmt.Sprintf("register width %d above limit %d", c.QN, qreg.MaxQubits))
		}
		r, err := qreg.New(c.QN, s.backend)
		if err != nil {
			return qasm.ErrResponse(counter, err.Error())
		}
		h := s.nextH
		s.nextH++
		s.regs[h] = r
		logger.Info("register allocated", "handle", h, "qubits", c.QN)
		resp := qasm.OkResponse(counter)
		resp.SetParam(qasm.TagQregH, strconv.Itoa(h))
		return resp

	case qasm.MsgIDQregRelease:
		if _, err := s.reg(c.Handle); err != nil {
			return qasm.ErrResponse(counter, err.Error())
		}
		delete(s.regs, c.Handle)
		logger.Info("register released", "handle", c.Handle)
		return qasm.OkResponse(counter)

	case qasm.MsgIDQregReset:
		r, err := s.reg(c.Handle)
		if err != nil {
			return qasm.ErrResponse(counter, err.Error())
		}
		if err := r.Reset(); err != nil {
			return qasm.ErrResponse(counter, err.Error())
		}
		return qasm.OkResponse(counter)

	case qasm.MsgIDQregSet:
		r, err := s.reg(c.Handle)
		if err != nil {
			return qasm.ErrResponse(counter, err.Error())
		}
		if c.StIdx >= 0 {
			err = r.SetPure(c.StIdx)
		} else {
			err = r.SetStates(c.StVals)
		}
		if err != nil {
			return qasm.ErrResponse(counter, err.Error())
		}
		return qasm.OkResponse(counter)

	case qasm.MsgIDQregTransform:
		g, err := c.GateSpec()
		if err != nil {
			return qasm.ErrResponse(counter, err.Error())
		}
		r, err := s.reg(c.Handle)
		if err != nil {
			return qasm.ErrResponse(counter, err.Error())
		}
		if err := r.Transform(g, c.FRep, c.FLSQ); err != nil {
			return qasm.ErrResponse(counter, err.Error())
		}
		return qasm.OkResponse(counter)

	case qasm.MsgIDQregPeek:
		r, err := s.reg(c.Handle)
		if err != nil {
			return qasm.ErrResponse(counter, err.Error())
		}
		st, err := r.Peek()
		if err != nil {
			return qasm.ErrResponse(counter, err.Error())
		}
		resp := qasm.OkResponse(counter)
		if st != nil {
			resp.SetParam(qasm.TagQregStVals, qasm.FormatStates(st))
		}
		return resp

	case qasm.MsgIDQregMeasure:
		r, err := s.reg(c.Handle)
		if err != nil {
			return qasm.ErrResponse(counter, err.Error())
		}
		res, err := r.Measure(c.MQIdx, c.MQLen, c.MRand, c.MColl)
		if err != nil {
			return qasm.ErrResponse(counter, err.Error())
		}
		resp := qasm.OkResponse(counter)
		resp.SetParam(qasm.TagQregMStIdx, strconv.Itoa(res.State))
		resp.SetParam(qasm.TagQregMStPr, qasm.FormatFloat(res.Prob))
		if res.Collapsed != nil {
			resp.SetParam(qasm.TagQregMStIdxs, qasm.FormatIndices(res.Collapsed))
		}
		return resp

	case qasm.MsgIDQregExpect:
		r, err := s.reg(c.Handle)
		if err != nil {
			return qasm.ErrResponse(counter, err.Error())
		}
		v, err := r.Expectation(c.ExQIdx, c.ExQLen, c.ExObsOp, c.ExStIdx)
		if err != nil {
			return qasm.ErrResponse(counter, err.Error())
		}
		resp := qasm.OkResponse(counter)
		resp.SetParam(qasm.TagQregExStVal, qasm.FormatFloat(v))
		return resp
	}
	return qasm.ErrResponse(counter, fmt.Sprintf("unsupported instruction %d", c.Kind))
}
