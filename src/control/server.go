package control

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"signal-monitor/src/helpers"
	"signal-monitor/src/interfaces"
	"signal-monitor/src/logger"
	"signal-monitor/src/models"
	"signal-monitor/src/state"

	"github.com/google/uuid"
)

// Options tune the control server. Zero values fall back to defaults.
type Options struct {
	MaxMessageBytes int
	WriteTimeout    time.Duration
}

// Peer is one accepted controller connection.
type Peer struct {
	ID          string
	conn        net.Conn
	addr        string
	connectedAt time.Time
	writeMu     sync.Mutex
}

func newPeer(conn net.Conn) *Peer {
	return &Peer{
		ID:          uuid.NewString(),
		conn:        conn,
		addr:        conn.RemoteAddr().String(),
		connectedAt: time.Now(),
	}
}

func (p *Peer) info() models.MPeerInfo {
	return models.MPeerInfo{ID: p.ID, RemoteAddr: p.addr, ConnectedAt: p.connectedAt.Unix()}
}

// -----------------------------------------------------------------------------

// Server accepts controller connections and applies newline-delimited JSON
// control messages to the shared state. The most recently accepted
// connection is the active peer that trade results are delivered to.
type Server struct {
	State      *state.SharedState
	Loader     interfaces.ILoadTrigger
	Logger     *logger.Logger
	errHandler *helpers.ErrorHandler
	opts       Options

	listener net.Listener

	peerMu sync.Mutex
	peer   *Peer

	connMu sync.Mutex
	conns  map[net.Conn]struct{}

	wg     sync.WaitGroup
	closed atomic.Bool
}

// -----------------------------------------------------------------------------

func NewServer(st *state.SharedState, loader interfaces.ILoadTrigger, opts Options, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewLogger(nil, "ControlServer")
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = 64 * 1024
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &Server{
		State:      st,
		Loader:     loader,
		Logger:     log,
		errHandler: helpers.NewErrorHandler(log),
		opts:       opts,
		conns:      make(map[net.Conn]struct{}),
	}
}

// -----------------------------------------------------------------------------

// Listen binds the control socket. A bind failure is returned to the caller.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("control listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.Logger.Info("Control server listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// -----------------------------------------------------------------------------

// Serve runs the accept loop until ctx ends or Close is called.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("control server: Serve called before Listen")
	}

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	var backoff time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > time.Second {
				backoff = time.Second
			}
			s.Logger.Warning("Accept error: %v; retrying in %v", err, backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		if !s.track(conn) {
			conn.Close()
			return nil
		}

		// The active peer follows accept order.
		peer := newPeer(conn)
		s.setPeer(peer)

		go func() {
			defer s.wg.Done()
			defer s.errHandler.Recover("control connection")
			s.handleConn(peer)
		}()
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
}

// -----------------------------------------------------------------------------

func (s *Server) handleConn(peer *Peer) {
	conn := peer.conn
	s.Logger.Info("Controller connected: %s (%s)", peer.addr, peer.ID)

	defer func() {
		conn.Close()
		s.untrack(conn)
		s.clearPeer(peer)
		s.Logger.Info("Controller disconnected: %s (%s)", peer.addr, peer.ID)
	}()

	scanner := bufio.NewScanner(conn)
	// Scanner allows tokens up to max(cap(buf), limit), so the initial buffer
	// must not exceed the limit.
	scanner.Buffer(make([]byte, 0, min(4096, s.opts.MaxMessageBytes)), s.opts.MaxMessageBytes)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		msg, err := DecodeMessage([]byte(line))
		if err != nil {
			s.errHandler.Handle(err, "control message from "+peer.addr)
			continue
		}
		if err := s.Apply(msg); err != nil {
			s.errHandler.Handle(err, "control message from "+peer.addr)
		}
	}

	if err := scanner.Err(); err != nil && !s.closed.Load() {
		if errors.Is(err, bufio.ErrTooLong) {
			s.Logger.Warning("Control message from %s exceeds %d bytes; closing connection", peer.addr, s.opts.MaxMessageBytes)
		} else if !errors.Is(err, net.ErrClosed) {
			s.Logger.Warning("Read error from %s: %v", peer.addr, err)
		}
	}
}

// -----------------------------------------------------------------------------

// DecodeMessage parses one control line.
func DecodeMessage(line []byte) (models.MControlMessage, error) {
	var msg models.MControlMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", helpers.ErrMalformedControlMessage, err)
	}
	if msg.Type == "" {
		return msg, fmt.Errorf("%w: missing type", helpers.ErrMalformedControlMessage)
	}
	return msg, nil
}

// Apply executes a decoded control message against the shared state.
func (s *Server) Apply(msg models.MControlMessage) error {
	switch strings.ToLower(msg.Type) {
	case models.ControlTypeCompany:
		sym, err := s.State.SetInstrument(msg.Value)
		if err != nil {
			return err
		}
		s.Logger.Info("Instrument set to %s", sym)
		if s.Loader != nil {
			s.Loader.TriggerLoad(sym)
		}
		return nil

	case models.ControlTypeStrategy:
		strategy, err := s.State.SetStrategy(msg.Value)
		if err != nil {
			return err
		}
		s.Logger.Info("Strategy set to %s", strategy)
		return nil

	default:
		return fmt.Errorf("%w: unknown type %q", helpers.ErrMalformedControlMessage, msg.Type)
	}
}

// -----------------------------------------------------------------------------

func (s *Server) setPeer(p *Peer) {
	s.peerMu.Lock()
	s.peer = p
	s.peerMu.Unlock()
}

// clearPeer drops p if it is still the active peer.
func (s *Server) clearPeer(p *Peer) {
	s.peerMu.Lock()
	if s.peer == p {
		s.peer = nil
	}
	s.peerMu.Unlock()
}

func (s *Server) activePeer() *Peer {
	s.peerMu.Lock()
	defer s.peerMu.Unlock()
	return s.peer
}

// ActivePeer describes the connection trade results go to.
func (s *Server) ActivePeer() (models.MPeerInfo, bool) {
	p := s.activePeer()
	if p == nil {
		return models.MPeerInfo{}, false
	}
	return p.info(), true
}

// -----------------------------------------------------------------------------

// Deliver writes one trade record to the active peer. It returns
// helpers.ErrNoActivePeer when nobody is connected. A failed write closes
// the peer and returns a *helpers.DeliveryError.
func (s *Server) Deliver(ctx context.Context, result models.MTradeResult) error {
	p := s.activePeer()
	if p == nil {
		return helpers.ErrNoActivePeer
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return helpers.NewDeliveryError(p.ID, err)
	}
	payload = append(payload, '\n')

	deadline := time.Now().Add(s.opts.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	p.writeMu.Lock()
	_ = p.conn.SetWriteDeadline(deadline)
	_, err = p.conn.Write(payload)
	p.writeMu.Unlock()

	if err != nil {
		p.conn.Close()
		s.clearPeer(p)
		return helpers.NewDeliveryError(p.ID, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Close stops accepting, closes every connection and waits for handlers.
func (s *Server) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	s.connMu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return err
}
