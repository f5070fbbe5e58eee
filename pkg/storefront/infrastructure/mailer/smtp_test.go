package mailer

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smtpStub is a minimal SMTP server that accepts every command and records
// the recipients and message data it receives.
type smtpStub struct {
	listener net.Listener
	greet    bool

	mu         sync.Mutex
	recipients []string
	messages   []string
	conns      []net.Conn
}

func newSMTPStub(t *testing.T, greet bool) *smtpStub {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &smtpStub{listener: l, greet: greet}
	t.Cleanup(s.close)
	go s.serve()
	return s
}

func (s *smtpStub) config() Config {
	addr := s.listener.Addr().(*net.TCPAddr)
	return Config{Host: addr.IP.String(), Port: addr.Port, From: "shop@example.com"}
}

func (s *smtpStub) close() {
	_ = s.listener.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.Close()
	}
}

func (s *smtpStub) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		if s.greet {
			go s.session(conn)
		}
	}
}

func (s *smtpStub) session(conn net.Conn) {
	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = fmt.Fprintf(conn, "%s\r\n", line) }
	reply("220 stub ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "RCPT TO:"):
			s.mu.Lock()
			s.recipients = append(s.recipients, strings.TrimSpace(line[len("RCPT TO:"):]))
			s.mu.Unlock()
			reply("250 ok")
		case cmd == "DATA":
			reply("354 end with <CRLF>.<CRLF>")
			var data strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				data.WriteString(l)
			}
			s.mu.Lock()
			s.messages = append(s.messages, data.String())
			s.mu.Unlock()
			reply("250 queued")
		case cmd == "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 ok")
		}
	}
}

func (s *smtpStub) received() ([]string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recipients...), append([]string(nil), s.messages...)
}

func TestSMTPSender(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		stub := newSMTPStub(t, true)
		sender := NewSMTPSender(stub.config())

		require.NoError(t, sender.Send(context.Background(), "amina@example.com", "Order confirmed", "Line one\nLine two"))

		recipients, messages := stub.received()
		assert.Equal(t, []string{"<amina@example.com>"}, recipients)
		require.Len(t, messages, 1)
		assert.Contains(t, messages[0], "Subject: Order confirmed\r\n")
		assert.Contains(t, messages[0], "Line one")
		assert.Contains(t, messages[0], "Line two")
	})

	t.Run("Encodes non-ASCII subject", func(t *testing.T) {
		stub := newSMTPStub(t, true)
		sender := NewSMTPSender(stub.config())

		require.NoError(t, sender.Send(context.Background(), "amina@example.com", "Commande confirmée", "Merci"))

		_, messages := stub.received()
		require.Len(t, messages, 1)
		assert.Contains(t, messages[0], "Subject: =?UTF-8?q?Commande_confirm=C3=A9e?=")
		assert.NotContains(t, messages[0], "confirmée")
	})

	t.Run("Fail when server does not offer auth", func(t *testing.T) {
		stub := newSMTPStub(t, true)
		cfg := stub.config()
		cfg.Username = "user"
		cfg.Password = "secret"
		sender := NewSMTPSender(cfg)

		require.Error(t, sender.Send(context.Background(), "amina@example.com", "Hi", "Body"))
		_, messages := stub.received()
		assert.Empty(t, messages)
	})

	t.Run("Fail on header injection", func(t *testing.T) {
		stub := newSMTPStub(t, true)
		sender := NewSMTPSender(stub.config())

		err := sender.Send(context.Background(), "amina@example.com", "Hi\r\nBcc: all@example.com", "Body")
		require.Error(t, err)
		recipients, _ := stub.received()
		assert.Empty(t, recipients)
	})

	t.Run("Fail on transport error", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := l.Addr().(*net.TCPAddr)
		require.NoError(t, l.Close())

		sender := NewSMTPSender(Config{Host: addr.IP.String(), Port: addr.Port, From: "shop@example.com"})
		err = sender.Send(context.Background(), "amina@example.com", "Hi", "Body")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "amina@example.com")
	})

	t.Run("Fail on silent server within context deadline", func(t *testing.T) {
		stub := newSMTPStub(t, false)
		cfg := stub.config()
		cfg.Timeout = time.Minute
		sender := NewSMTPSender(cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		started := time.Now()
		err := sender.Send(ctx, "amina@example.com", "Hi", "Body")

		require.Error(t, err)
		assert.Less(t, time.Since(started), 5*time.Second)
	})

	t.Run("Fail on cancelled context", func(t *testing.T) {
		stub := newSMTPStub(t, true)
		sender := NewSMTPSender(stub.config())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, sender.Send(ctx, "amina@example.com", "Hi", "Body"), context.Canceled)
		recipients, _ := stub.received()
		assert.Empty(t, recipients)
	})
}
