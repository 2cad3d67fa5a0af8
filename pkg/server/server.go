package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/textspot/textspot/pkg/events"
)

// Config holds TCP front-end configuration.
type Config struct {
	Port        int
	IdleTimeout time.Duration
	WelcomeText string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:        8888,
		IdleTimeout: 3600 * time.Second,
		WelcomeText: "Welcome to the Multi-User Text Space!",
	}
}

// Server is the TCP game server. It owns the listener; the Game owns all
// shared state, so the WebSocket front-end can run beside it.
type Server struct {
	Config    Config
	Game      *Game
	listener  net.Listener
	webServer *WebServer
}

// NewServer creates a server around an existing game.
func NewServer(game *Game, cfg Config) *Server {
	return &Server{Config: cfg, Game: game}
}

// Start begins listening for connections. It blocks until the listeners
// close.
func (s *Server) Start() error {
	s.Game.StartScheduler()
	s.Game.StartAutoSave()

	if s.Game.History != nil {
		NewHistoryWriter(s.Game)
		retention := time.Duration(s.Game.Conf.HistoryRetention) * time.Second
		StartRetentionCleanup(s.Game.History, retention)
	}

	log.Printf("World: %d rooms, %d bots, scripts: %d triggers",
		len(s.Game.World.RoomIDs()), len(s.Game.World.BotIDs()), s.Game.Triggers.Len())

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Config.Port))
		if err != nil {
			errCh <- fmt.Errorf("tcp listener: %w", err)
			return
		}
		s.listener = ln
		log.Printf("Listening (TCP) on port %d", s.Config.Port)
		s.acceptLoop(ln)
	}()

	if s.Game.Conf != nil && s.Game.Conf.WebEnabled {
		cfg := WebConfig{
			Port:        s.Game.Conf.WebPort,
			Host:        s.Game.Conf.WebHost,
			Domain:      s.Game.Conf.WebDomain,
			CertFile:    s.Game.Conf.TLSCert,
			KeyFile:     s.Game.Conf.TLSKey,
			CertDir:     s.Game.Conf.CertDir,
			CORSOrigins: s.Game.Conf.WebCORSOrigins,
			RateLimit:   s.Game.Conf.WebRateLimit,
			JWTSecret:   s.Game.Conf.JWTSecret,
			JWTExpiry:   s.Game.Conf.JWTExpiry,
		}
		s.webServer = NewWebServer(s.Game, cfg)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.webServer.Start(cfg); err != nil {
				errCh <- fmt.Errorf("web server: %w", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	default:
	}

	wg.Wait()
	return nil
}

// acceptLoop accepts connections on the listener until it is closed.
func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Accept error: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// Stop closes the listeners and stops the game's background loops.
func (s *Server) Stop() {
	if s.listener != nil {
		s.listener.Close()
	}
	if s.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.webServer.Stop(ctx)
	}
	s.Game.Stop()
}

// handleConnection manages a single client connection lifecycle.
func (s *Server) handleConnection(conn net.Conn) {
	id := s.Game.Conns.NextID()
	d := NewDescriptor(id, conn)
	s.Game.Conns.Add(d)

	log.Printf("[%d] New connection from %s", d.ID, d.Addr)

	defer func() {
		s.Game.DisconnectUser(d)
		s.Game.Conns.Remove(d)
		d.Close()
		log.Printf("[%d] Connection closed from %s", d.ID, d.Addr)
	}()

	d.Send(s.Config.WelcomeText)
	d.Send("Enter your username:")

	scanner := bufio.NewScanner(d.Conn)
	scanner.Buffer(make([]byte, 8192), 8192)

	for scanner.Scan() {
		if d.IsClosed() {
			return
		}

		line := scanner.Text()
		d.BytesRecv += len(line) + 1
		line = stripTelnet(line)
		line = strings.TrimRight(line, "\r\n")
		d.LastCmd = time.Now()

		if d.State == ConnLogin {
			s.handleLogin(d, line)
		} else {
			DispatchCommand(s.Game, d, line)
		}

		if d.IsClosed() {
			return
		}
	}
}

// handleLogin processes one line of the pre-login name prompt. Empty and
// taken names re-prompt; a valid name activates the session.
func (s *Server) handleLogin(d *Descriptor, input string) {
	name := strings.TrimSpace(input)
	if name == "" {
		d.Send("Username cannot be empty. Try again:")
		return
	}
	if err := s.Game.LoginUser(d, name); err != nil {
		d.Send("Username already taken. Try another:")
		return
	}

	log.Printf("[%d] User %q connected from %s", d.ID, name, d.Addr)
	d.Send(fmt.Sprintf("Welcome, %s!", name))
	if s.Game.World.IsAdmin(name) {
		d.Send("You have admin privileges.")
	}
	d.Send("Type 'help' for commands.")
	s.Game.ShowRoom(d)
	if roomID, ok := s.Game.World.UserRoom(name); ok {
		s.Game.fireTriggers(events.EvEnter, roomID, name)
	}
}

// stripTelnet removes telnet IAC command sequences from input.
func stripTelnet(s string) string {
	var buf strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == 0xFF && i+2 < len(s) {
			// IAC command: skip 3 bytes (IAC + cmd + option)
			i += 3
			continue
		}
		if s[i] == 0xFF && i+1 < len(s) {
			i += 2
			continue
		}
		// Skip other control chars except tab and standard whitespace
		if s[i] < 32 && s[i] != '\t' && s[i] != '\n' && s[i] != '\r' {
			i++
			continue
		}
		buf.WriteByte(s[i])
		i++
	}
	return buf.String()
}
