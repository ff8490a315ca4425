// Package fakeups is a scripted stand-in for the carrier, used by tests. It
// listens on a loopback port, acknowledges every command it receives and can
// answer pickups and load-ready notices the way a carrier would.
package fakeups

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"fulfillment/internal/pkg/framing"
	"fulfillment/internal/pkg/proto/upspb"
)

type Option func(*Server)

// WithTruck answers every pickup request with a pickup response and a truck
// arrival naming truckID.
func WithTruck(truckID int32) Option {
	return func(s *Server) { s.truckID = truckID }
}

// WithAutoDeliver answers every load-ready notice with delivery started and
// delivery complete.
func WithAutoDeliver() Option {
	return func(s *Server) { s.autoDeliver = true }
}

// WithIgnoredCommands leaves the first n commands unacknowledged so they have to
// be resent.
func WithIgnoredCommands(n int) Option {
	return func(s *Server) { s.ignore.Store(int64(n)) }
}

// WithDropOnIgnore closes the connection on every ignored command instead of
// leaving it open.
func WithDropOnIgnore() Option {
	return func(s *Server) { s.dropOnIgnore = true }
}

type Server struct {
	ln           net.Listener
	truckID      int32
	autoDeliver  bool
	dropOnIgnore bool
	ignore       atomic.Int64
	seq          atomic.Int64

	mu       sync.Mutex
	received []upspb.AmazonToUPS
	conns    []*conn
	wg       sync.WaitGroup
}

type conn struct {
	net.Conn
	mu sync.Mutex
}

func (c *conn) write(msg *upspb.UPSToAmazon) error {
	frame, err := framing.Encode(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.Write(frame)
	return err
}

// Start listens on an ephemeral loopback port.
func Start(opts ...Option) (*Server, error) {
	return StartAt("127.0.0.1:0", opts...)
}

// StartAt listens on addr.
func StartAt(addr string, opts ...Option) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{ln: ln}
	s.seq.Store(1000)
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.accept()
	return s, nil
}

func (s *Server) Addr() string { return s.ln.Addr().String() }

func (s *Server) Close() error {
	err := s.ln.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

// Received returns every batch received so far.
func (s *Server) Received() []upspb.AmazonToUPS {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]upspb.AmazonToUPS(nil), s.received...)
}

// Pickups returns every pickup request received, resends included.
func (s *Server) Pickups() []upspb.RequestPickup {
	var out []upspb.RequestPickup
	for _, m := range s.Received() {
		out = append(out, m.Pickups...)
	}
	return out
}

// Connections returns how many connections were accepted.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Push sends msg on the most recent connection.
func (s *Server) Push(msg *upspb.UPSToAmazon) error {
	s.mu.Lock()
	if len(s.conns) == 0 {
		s.mu.Unlock()
		return errors.New("fakeups: no connection")
	}
	c := s.conns[len(s.conns)-1]
	s.mu.Unlock()
	return c.write(msg)
}

// NextSeq returns a fresh carrier-side sequence number.
func (s *Server) NextSeq() int64 { return s.seq.Add(1) }

// WaitFor polls cond until it holds or timeout passes.
func (s *Server) WaitFor(cond func(s *Server) bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond(s) {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond(s)
}

func (s *Server) accept() {
	defer s.wg.Done()
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			return
		}
		c := &conn{Conn: nc}
		s.mu.Lock()
		s.conns = append(s.conns, c)
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(c)
	}
}

func (s *Server) serve(c *conn) {
	defer s.wg.Done()
	defer c.Close()

	r := framing.NewReader(c)
	for {
		body, err := r.ReadFrame()
		if err != nil {
			return
		}
		var msg upspb.AmazonToUPS
		if err = msg.Unmarshal(body); err != nil {
			return
		}
		s.mu.Lock()
		s.received = append(s.received, msg)
		s.mu.Unlock()

		if err = s.answer(c, &msg); err != nil {
			return
		}
	}
}

func (s *Server) answer(c *conn, msg *upspb.AmazonToUPS) error {
	var acks []int64
	for _, p := range msg.Pickups {
		acks = append(acks, p.SeqNum)
	}
	for _, l := range msg.LoadReady {
		acks = append(acks, l.SeqNum)
	}
	if len(acks) == 0 {
		return nil
	}
	if s.ignore.Add(-1) >= 0 {
		if s.dropOnIgnore {
			return errors.New("fakeups: dropped connection")
		}
		return nil
	}

	reply := &upspb.UPSToAmazon{Acks: acks}
	if s.truckID != 0 {
		for _, p := range msg.Pickups {
			reply.PickupResps = append(reply.PickupResps, upspb.PickupResp{
				SeqNum: s.NextSeq(), PackageID: p.OrderID, OrderID: p.OrderID, TruckID: s.truckID,
			})
			reply.TrucksArrived = append(reply.TrucksArrived, upspb.TruckArrived{
				SeqNum: s.NextSeq(), PackageID: p.OrderID, TruckID: s.truckID, WarehouseID: p.WarehouseID,
			})
		}
	}
	if s.autoDeliver {
		for _, l := range msg.LoadReady {
			reply.DeliveriesStarted = append(reply.DeliveriesStarted, upspb.PackageRef{SeqNum: s.NextSeq(), PackageID: l.PackageID})
			reply.Delivered = append(reply.Delivered, upspb.PackageRef{SeqNum: s.NextSeq(), PackageID: l.PackageID})
		}
	}
	return c.write(reply)
}
