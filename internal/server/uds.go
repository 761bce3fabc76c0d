package server

import (
	"bufio"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fwftable/fwftable/internal/common"
	"github.com/fwftable/fwftable/internal/logging"
)

// UDSConfig configures a UDSServer.
type UDSConfig struct {
	SocketPath     string
	MaxConcurrency int
	IdleTimeout    time.Duration
	Logger         *zap.SugaredLogger
}

// UDSServer is the same line-delimited JSON-RPC protocol as TCPServer over
// a Unix domain socket, grounded on the teacher's UDSDaemon
// (go/internal/server/daemon.go): a shutdown channel plus a WaitGroup give
// graceful shutdown instead of TCPServer's simpler accept-loop-until-error.
type UDSServer struct {
	config   UDSConfig
	reg      *Registry
	listener net.Listener
	sem      chan struct{}
	shutdown chan struct{}
	wg       sync.WaitGroup
	log      *zap.SugaredLogger
}

// NewUDSServer creates a Unix-socket server bound to reg.
func NewUDSServer(cfg UDSConfig, reg *Registry) *UDSServer {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 50
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Second
	}
	if cfg.SocketPath == "" {
		cfg.SocketPath = "/tmp/fwftable.sock"
	}
	return &UDSServer{
		config:   cfg,
		reg:      reg,
		sem:      make(chan struct{}, cfg.MaxConcurrency),
		shutdown: make(chan struct{}),
		log:      logging.OrNop(cfg.Logger),
	}
}

// ListenAndServe removes any stale socket file, binds, and serves until
// Shutdown is called.
func (s *UDSServer) ListenAndServe() error {
	if _, err := os.Stat(s.config.SocketPath); err == nil {
		if err := os.Remove(s.config.SocketPath); err != nil {
			return common.Wrap(common.KindIO, "remove stale socket", err)
		}
	}
	listener, err := net.Listen("unix", s.config.SocketPath)
	if err != nil {
		return common.Wrap(common.KindIO, "bind socket "+s.config.SocketPath, err)
	}
	s.listener = listener
	defer func() { _ = os.Remove(s.config.SocketPath) }()
	s.log.Infow("uds server listening", "socket", s.config.SocketPath, "maxConcurrency", s.config.MaxConcurrency)

	for {
		select {
		case <-s.shutdown:
			return nil
		default:
		}

		if ul, ok := listener.(*net.UnixListener); ok {
			_ = ul.SetDeadline(time.Now().Add(1 * time.Second))
		}

		conn, err := listener.Accept()
		if err != nil {
			if opErr, ok := err.(*net.OpError); ok && opErr.Timeout() {
				continue
			}
			select {
			case <-s.shutdown:
				return nil
			default:
				s.log.Errorw("accept error", "error", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// Shutdown closes the listener and waits for every in-flight connection to
// finish its current request. The socket file is removed by ListenAndServe
// as it returns.
func (s *UDSServer) Shutdown() {
	close(s.shutdown)
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	s.log.Info("uds server shutdown complete")
}

func (s *UDSServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() { _ = conn.Close() }()

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-s.shutdown:
		return
	}

	reader := bufio.NewReaderSize(conn, 64*1024)

	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))
		line, err := reader.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			return
		}
		line = trimNewline(line)
		if len(line) == 0 {
			continue
		}

		resp := Dispatch(s.reg, line)
		if resp.Status != "ok" {
			s.log.Debugw("request failed", "remote", conn.RemoteAddr(), "error", resp.Error)
		}
		body, merr := marshalResponse(resp)
		if merr != nil {
			s.log.Errorw("marshal response", "error", merr)
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if _, err := conn.Write(body); err != nil {
			return
		}
	}
}

func trimNewline(b []byte) []byte {
	n := len(b)
	for n > 0 && (b[n-1] == '\n' || b[n-1] == '\r') {
		n--
	}
	return b[:n]
}
