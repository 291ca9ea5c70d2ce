package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Tsukikage7/jobkit/logger"
)

// HTTP 实现 Server 的 HTTP 服务器.
type HTTP struct {
	name   string
	addr   string
	logger logger.Logger
	server *http.Server

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

// NewHTTP 创建 HTTP 服务器.
//
//	srv := server.NewHTTP(mux,
//	    server.WithHTTPName("admin"),
//	    server.WithHTTPAddr(":8080"),
//	)
func NewHTTP(handler http.Handler, opts ...HTTPOption) *HTTP {
	s := &HTTP{
		name:   "http",
		addr:   ":8080",
		logger: logger.NewNop(),
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		ready: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start 监听并处理请求，阻塞到 ctx 结束.
//
// 监听失败立即返回；连接由 Stop 负责优雅关闭.
func (s *HTTP) Start(ctx context.Context) error {
	if s.server.Handler == nil {
		return ErrNilHandler
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	s.logf("监听 %s", ln.Addr())

	served := make(chan error, 1)
	go func() { served <- s.server.Serve(ln) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return nil
	}
}

// Stop 优雅关闭，等待进行中的请求直到 ctx 结束.
func (s *HTTP) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.listener != nil
	s.mu.Unlock()
	if !started {
		return nil
	}

	s.logf("停止中")
	return s.server.Shutdown(ctx)
}

// Ready 返回监听成功后关闭的 channel.
func (s *HTTP) Ready() <-chan struct{} {
	return s.ready
}

// Name 返回服务器名称.
func (s *HTTP) Name() string {
	return s.name
}

// Addr 监听成功后返回实际地址，否则返回配置的地址.
func (s *HTTP) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Handler 返回 HTTP Handler.
func (s *HTTP) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTP) logf(format string, args ...any) {
	s.logger.Debugf("[HTTP:"+s.name+"] "+format, args...)
}
