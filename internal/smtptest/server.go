package smtptest

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// Server is a running capture server
type Server struct {
	*Backend

	Host string
	Port int

	srv *smtp.Server
}

// Start listens on a random loopback port and stops the server when tb ends
func Start(tb testing.TB) *Server {
	tb.Helper()

	be := NewBackend(zap.NewNop())

	s := smtp.NewServer(be)
	s.Domain = "smtptest.local"
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 10 * time.Second
	s.MaxRecipients = 50
	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("smtptest: listen: %v", err)
	}

	host, port, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		tb.Fatalf("smtptest: addr: %v", err)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		tb.Fatalf("smtptest: port: %v", err)
	}

	go func() {
		_ = s.Serve(l)
	}()

	tb.Cleanup(func() {
		_ = s.Close()
	})

	return &Server{Backend: be, Host: host, Port: p, srv: s}
}
