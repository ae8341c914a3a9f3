// Package agent owns the listener lifecycle: accepting connections,
// bounding how many run concurrently, and draining them on shutdown.
package agent

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/marmos91/spoagent/internal/conn"
	"github.com/marmos91/spoagent/internal/handshake"
	"github.com/marmos91/spoagent/internal/logger"
	"github.com/marmos91/spoagent/internal/metrics"
	"github.com/marmos91/spoagent/internal/service"
)

// Config holds the acceptor's listener and shutdown parameters.
type Config struct {
	BindAddress string
	Port        int

	// MaxConnections bounds concurrently served connections. 0 means
	// unlimited.
	MaxConnections int64

	// ShutdownTimeout is how long Serve waits, once shutdown has begun, for
	// in-flight connections to drain before force-closing them.
	ShutdownTimeout time.Duration

	Runtime        handshake.Runtime
	ServiceFactory service.Factory
	Metrics        *metrics.Metrics
}

// Acceptor runs the TCP accept loop and tracks every connection it spawns
// so Serve can wait for them to drain on shutdown, or force-close them past
// the grace period.
type Acceptor struct {
	cfg Config

	listenerMu sync.RWMutex
	listener   net.Listener

	sem *semaphore.Weighted

	activeMu sync.Mutex
	active   map[string]net.Conn

	shutdownOnce sync.Once
	shutdown     chan struct{}

	ready chan struct{}
}

// New builds an Acceptor in its stopped state. Call Serve to start it.
func New(cfg Config) *Acceptor {
	var sem *semaphore.Weighted
	if cfg.MaxConnections > 0 {
		sem = semaphore.NewWeighted(cfg.MaxConnections)
	}

	return &Acceptor{
		cfg:      cfg,
		sem:      sem,
		active:   make(map[string]net.Conn),
		shutdown: make(chan struct{}),
		ready:    make(chan struct{}),
	}
}

// Serve binds the listener and accepts connections until ctx is cancelled
// or Stop is called. It returns nil on a graceful shutdown and a non-nil
// error only if the listener itself fails to start.
func (a *Acceptor) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", a.cfg.BindAddress, a.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	a.listenerMu.Lock()
	a.listener = listener
	a.listenerMu.Unlock()
	close(a.ready)

	logger.Info("spop agent listening", "address", listener.Addr().String())

	go func() {
		<-ctx.Done()
		a.initiateShutdown()
	}()

	group, groupCtx := errgroup.WithContext(ctx)

	for {
		if a.sem != nil {
			if err := a.sem.Acquire(ctx, 1); err != nil {
				break
			}
		}

		tcpConn, err := listener.Accept()
		if err != nil {
			if a.sem != nil {
				a.sem.Release(1)
			}
			select {
			case <-a.shutdown:
				goto drain
			default:
				logger.Debug("accept error", logger.Err(err))
				continue
			}
		}

		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			_ = tcp.SetNoDelay(true)
		}

		addr := tcpConn.RemoteAddr().String()
		a.trackConn(addr, tcpConn)

		if a.cfg.Metrics != nil {
			a.cfg.Metrics.ActiveConnections.Inc()
		}

		group.Go(func() error {
			defer func() {
				a.untrackConn(addr)
				if a.sem != nil {
					a.sem.Release(1)
				}
				if a.cfg.Metrics != nil {
					a.cfg.Metrics.ActiveConnections.Dec()
				}
			}()

			c := conn.New(tcpConn, a.cfg.Runtime, a.cfg.ServiceFactory, addr, a.cfg.Metrics)
			if err := c.Serve(groupCtx); err != nil {
				logger.Debug("connection ended", logger.ConnID(c.ID()), logger.PeerAddr(addr), logger.Err(err))
			}
			_ = tcpConn.Close()
			return nil
		})
	}

drain:
	return a.drain(group)
}

func (a *Acceptor) trackConn(addr string, c net.Conn) {
	a.activeMu.Lock()
	a.active[addr] = c
	a.activeMu.Unlock()
}

func (a *Acceptor) untrackConn(addr string) {
	a.activeMu.Lock()
	delete(a.active, addr)
	a.activeMu.Unlock()
}

// Stop initiates shutdown, then blocks until ctx is done and returns
// ctx.Err(). It does not wait for connection goroutines and does not cancel
// the context passed to Serve; Serve returns once the connections have
// drained or been force-closed.
func (a *Acceptor) Stop(ctx context.Context) error {
	a.initiateShutdown()
	<-ctx.Done()
	return ctx.Err()
}

func (a *Acceptor) initiateShutdown() {
	a.shutdownOnce.Do(func() {
		close(a.shutdown)

		a.listenerMu.RLock()
		l := a.listener
		a.listenerMu.RUnlock()
		if l != nil {
			_ = l.Close()
		}

		deadline := time.Now().Add(100 * time.Millisecond)
		a.activeMu.Lock()
		for _, c := range a.active {
			_ = c.SetReadDeadline(deadline)
		}
		a.activeMu.Unlock()
	})
}

// drain waits for group to finish up to ShutdownTimeout, then force-closes
// any connections still outstanding.
func (a *Acceptor) drain(group *errgroup.Group) error {
	done := make(chan error, 1)
	go func() { done <- group.Wait() }()

	timeout := a.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	select {
	case err := <-done:
		logger.Info("agent shutdown complete")
		return err
	case <-time.After(timeout):
		a.forceCloseAll()
		<-done
		logger.Warn("agent shutdown timeout exceeded, connections force-closed")
		return nil
	}
}

func (a *Acceptor) forceCloseAll() {
	a.activeMu.Lock()
	defer a.activeMu.Unlock()

	var closed int32
	for addr, c := range a.active {
		if err := c.Close(); err == nil {
			atomic.AddInt32(&closed, 1)
		}
		delete(a.active, addr)
	}
	if closed > 0 {
		logger.Info("force-closed connections", "count", closed)
		if a.cfg.Metrics != nil {
			a.cfg.Metrics.ConnectionsForceClosed.Add(float64(closed))
		}
	}
}

// ActiveConnections reports the current number of tracked connections.
// Satisfies internal/adminhttp.StatsProvider.
func (a *Acceptor) ActiveConnections() int64 {
	a.activeMu.Lock()
	defer a.activeMu.Unlock()
	return int64(len(a.active))
}

// Addr blocks until the listener is bound and returns its address.
func (a *Acceptor) Addr() net.Addr {
	<-a.ready
	a.listenerMu.RLock()
	defer a.listenerMu.RUnlock()
	return a.listener.Addr()
}
