// Package server exposes a simulator session over TCP. Clients speak
// the framed text protocol: they register for an access token, then
// issue register instructions carrying that token.
package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/quforge/qusim/engine"
	"github.com/quforge/qusim/qasm"
	"github.com/quforge/qusim/session"
)

// DefaultAddr is the loopback endpoint the daemon listens on when no
// address is configured.
const DefaultAddr = "127.0.0.1:27020"

var logger = log.WithPrefix("qsimd")

type Config struct {
	Addr    string
	Backend string
	Verbose bool
}

// Server accepts client connections and routes their instructions into
// a shared session. One session serves all clients; tokens gate access.
type Server struct {
	cfg  Config
	sess *session.Session
	ln   net.Listener

	mu       sync.Mutex
	tokens   map[string]string // token -> client id
	byClient map[string]string // client id -> live token
	conns    map[net.Conn]struct{}
	closed   bool
	lastBase string
	lastSeq  int

	wg sync.WaitGroup
}

func New(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	var backend engine.Backend
	var err error
	if cfg.Backend == "" {
		backend = engine.Default()
	} else if backend, err = engine.New(cfg.Backend); err != nil {
		return nil, err
	}
	sess := session.New(backend)
	sess.SetVerbose(cfg.Verbose)
	return &Server{
		cfg:      cfg,
		sess:     sess,
		tokens:   make(map[string]string),
		byClient: make(map[string]string),
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

// Session exposes the underlying session, mainly for embedding the
// simulator in-process.
func (s *Server) Session() *session.Session { return s.sess }

// Addr reports the bound listen address once the server has started.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.cfg.Addr
	}
	return s.ln.Addr().String()
}

// Start binds the listener and begins accepting connections.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.cfg.Addr, err)
	}
	s.ln = ln
	logger.Info("listening", "addr", ln.Addr().String())
	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Close stops the listener, drops all connections and waits for the
// per-connection handlers to drain.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.wg.Wait()
	logger.Info("stopped")
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Error("accept failed", "err", err)
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	remote := conn.RemoteAddr().String()
	logger.Debug("client connected", "remote", remote)

	for {
		msg, err := qasm.ReadMessage(conn)
		if err != nil {
			logger.Debug("client gone", "remote", remote, "err", err)
			return
		}
		resp := s.handle(msg)
		if err := qasm.WriteMessage(conn, resp); err != nil {
			logger.Error("response write failed", "remote", remote, "err", err)
			return
		}
	}
}

// handle routes one message: registration control messages run against
// the token registry, everything else needs a live token and goes to
// the session.
func (s *Server) handle(msg *qasm.Message) *qasm.Message {
	switch msg.ID {
	case qasm.MsgIDRegister:
		return s.register(msg)
	case qasm.MsgIDUnregister:
		return s.unregister(msg)
	}

	token := msg.Params[qasm.TagClientToken]
	s.mu.Lock()
	_, ok := s.tokens[token]
	s.mu.Unlock()
	if !ok {
		return qasm.ErrResponse(msg.Counter, "unknown or stale access token")
	}
	return s.sess.Dispatch(msg)
}

func (s *Server) register(msg *qasm.Message) *qasm.Message {
	id := msg.Params[qasm.TagClientID]
	if id == "" {
		return qasm.ErrResponse(msg.Counter, "registration without a client id")
	}

	s.mu.Lock()
	// a re-registration invalidates the client's previous token
	if old, ok := s.byClient[id]; ok {
		delete(s.tokens, old)
	}
	token := s.newTokenLocked()
	s.tokens[token] = id
	s.byClient[id] = token
	s.mu.Unlock()

	logger.Info("client registered", "id", id)
	resp := qasm.OkResponse(msg.Counter)
	resp.SetParam(qasm.TagClientToken, token)
	return resp
}

func (s *Server) unregister(msg *qasm.Message) *qasm.Message {
	token := msg.Params[qasm.TagClientToken]
	s.mu.Lock()
	id, ok := s.tokens[token]
	if ok {
		delete(s.tokens, token)
		delete(s.byClient, id)
	}
	empty := len(s.tokens) == 0
	s.mu.Unlock()

	if !ok {
		return qasm.ErrResponse(msg.Counter, "unknown or stale access token")
	}
	logger.Info("client unregistered", "id", id)
	if empty {
		// last client gone, drop all registers
		s.sess.ResetAll()
	}
	return qasm.OkResponse(msg.Counter)
}

// newTokenLocked mints an access token from the wall clock, suffixed
// when more than one registration lands in the same second.
func (s *Server) newTokenLocked() string {
	base := strconv.FormatInt(time.Now().Unix(), 10)
	if base != s.lastBase {
		s.lastBase, s.lastSeq = base, 0
		return base
	}
	s.lastSeq++
	return base + "-" + strconv.Itoa(s.lastSeq)
}
