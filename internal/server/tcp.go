package server

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/fwftable/fwftable/internal/common"
	"github.com/fwftable/fwftable/internal/logging"
)

// TCPConfig configures a TCPServer.
type TCPConfig struct {
	Port           int
	MaxConcurrency int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Logger         *zap.SugaredLogger
}

// TCPServer is a line-delimited JSON-RPC front end over TCP, grounded on
// the teacher's Daemon (src/go/internal/server/server.go): a semaphore
// bounds concurrent connections, each read and write carries its own
// deadline so a slow or silent client can't pin a worker slot forever.
type TCPServer struct {
	config TCPConfig
	reg    *Registry
	sem    chan struct{}
	log    *zap.SugaredLogger
}

// NewTCPServer creates a TCP server bound to reg; reg is shared across all
// connections, so handles and indexes built on one connection are visible
// to lookups on another.
func NewTCPServer(cfg TCPConfig, reg *Registry) *TCPServer {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 50
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}
	return &TCPServer{
		config: cfg,
		reg:    reg,
		sem:    make(chan struct{}, cfg.MaxConcurrency),
		log:    logging.OrNop(cfg.Logger),
	}
}

// ListenAndServe binds the configured port and serves forever until
// listener.Accept fails.
func (s *TCPServer) ListenAndServe() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return common.Wrap(common.KindIO, "bind "+addr, err)
	}
	s.log.Infow("tcp server listening", "addr", addr, "maxConcurrency", s.config.MaxConcurrency)
	return s.Serve(listener)
}

// Serve accepts connections from an already-bound listener, useful for
// tests that want an ephemeral port.
func (s *TCPServer) Serve(listener net.Listener) error {
	defer func() { _ = listener.Close() }()
	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetKeepAlive(true)
			_ = tcpConn.SetKeepAlivePeriod(30 * time.Second)
		}
		go s.handleConnection(conn)
	}
}

func (s *TCPServer) handleConnection(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		if !scanner.Scan() {
			return
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := Dispatch(s.reg, line)
		if resp.Status != "ok" {
			s.log.Debugw("request failed", "remote", conn.RemoteAddr(), "error", resp.Error)
		}
		body, err := marshalResponse(resp)
		if err != nil {
			s.log.Errorw("marshal response", "error", err)
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if _, err := conn.Write(body); err != nil {
			return
		}
	}
}
