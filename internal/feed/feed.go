// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package feed serves the simulated position fixes as a gpsd-compatible TCP feed. Clients
// receive a VERSION banner on connect, followed by the latest fix and a TPV report for every
// position change. Client commands like ?WATCH are accepted and ignored.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/wneessen/geosim/internal/geobus"
	"github.com/wneessen/geosim/internal/logger"
)

const (
	// DefaultAddress is the listen address of the feed, one port above the gpsd default.
	DefaultAddress = "127.0.0.1:2948"

	// DefaultDevice is the device name reported in TPV reports.
	DefaultDevice = "geosim"

	clientBufferSize = 32
	writeTimeout     = time.Second * 2
)

// ErrListenerClosed is returned if the feed listener was closed while consuming events.
var ErrListenerClosed = errors.New("feed listener closed")

// Server is a gpsd-compatible feed of simulated fixes. It implements geobus.Sink.
type Server struct {
	address string
	device  string
	release string
	logger  *logger.Logger

	mu       sync.Mutex
	listener net.Listener
	clients  map[*client]struct{}
	latest   []byte
}

type client struct {
	conn net.Conn
	send chan []byte
	once sync.Once
}

// New returns a feed Server for the given address. An empty address uses DefaultAddress.
func New(address, release string, log *logger.Logger) (*Server, error) {
	if log == nil {
		return nil, geobus.ErrLoggerRequired
	}
	if address == "" {
		address = DefaultAddress
	}
	return &Server{
		address: address,
		device:  DefaultDevice,
		release: release,
		logger:  log,
		clients: make(map[*client]struct{}),
	}, nil
}

// Name satisfies the geobus.Sink interface.
func (s *Server) Name() string {
	return "gpsd-feed"
}

// Listen binds the listener of the feed. Calling it before Consume allows the caller to learn
// the bound address. It is a no-op if the feed is already listening.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	s.listener = listener
	s.logger.Info("gpsd feed listening", slog.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address of the feed, or nil if it is not listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Consume accepts clients and broadcasts every position change as a TPV report until the
// context is canceled or the event channel is closed. The listener and all client connections
// are closed on return.
func (s *Server) Consume(ctx context.Context, events <-chan geobus.Event) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	defer s.shutdown()

	acceptErr := make(chan error, 1)
	go func() {
		acceptErr <- s.acceptLoop(listener)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-acceptErr:
			return fmt.Errorf("%w: %w", ErrListenerClosed, err)
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Kind != geobus.EventPositionChange {
				continue
			}
			line, err := tpvLine(s.device, event.Snapshot)
			if err != nil {
				s.logger.Error("failed to encode TPV report", logger.Err(err))
				continue
			}
			s.broadcast(line)
		}
	}
}

func (s *Server) acceptLoop(listener net.Listener) error {
	banner, err := versionLine(s.release)
	if err != nil {
		return err
	}
	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		s.addClient(conn, banner)
	}
}

func (s *Server) addClient(conn net.Conn, banner []byte) {
	c := &client{conn: conn, send: make(chan []byte, clientBufferSize)}
	c.send <- banner

	s.mu.Lock()
	if s.listener == nil {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	if s.latest != nil {
		c.send <- s.latest
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Debug("gpsd feed client connected", slog.String("remote", conn.RemoteAddr().String()))

	go s.writeLoop(c)
	go func() {
		// client commands are not interpreted
		_, _ = io.Copy(io.Discard, conn)
		s.removeClient(c)
	}()
}

func (s *Server) writeLoop(c *client) {
	for line := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.conn.Write(line); err != nil {
			s.logger.Debug("failed to write to gpsd feed client", logger.Err(err))
			s.removeClient(c)
			return
		}
	}
}

func (s *Server) broadcast(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = line
	for c := range s.clients {
		select {
		case c.send <- line:
		default:
			s.logger.Debug("dropped TPV report for slow gpsd feed client",
				slog.String("remote", c.conn.RemoteAddr().String()))
		}
	}
}

func (s *Server) removeClient(c *client) {
	c.once.Do(func() {
		s.mu.Lock()
		delete(s.clients, c)
		close(c.send)
		s.mu.Unlock()
		_ = c.conn.Close()
		s.logger.Debug("gpsd feed client disconnected", slog.String("remote", c.conn.RemoteAddr().String()))
	})
}

// Close releases the listener and disconnects all clients. It is a no-op if the feed is not
// listening.
func (s *Server) Close() {
	s.shutdown()
}

func (s *Server) shutdown() {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	if listener != nil {
		_ = listener.Close()
	}
	for _, c := range clients {
		s.removeClient(c)
	}
}
