package reminder

import (
	"context"
	"log/slog"
	"net"
	"reflect"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/calstore/internal/calerr"
)

// Callback receives a published reminder. userData is the value given at
// registration.
type Callback func(r Reminder, userData any)

type callbackReg struct {
	fn       uintptr
	cb       Callback
	userData any
}

const (
	redialMin = 50 * time.Millisecond
	redialMax = 5 * time.Second
	dialWait  = 2 * time.Second
)

// Subscriber is the client side of the broadcast. The first registered
// callback opens the connection to the hub and removing the last one closes
// it. While callbacks are registered a lost connection is redialed with
// backoff. A {callback, userData} pair is registered at most once; userData
// must be comparable.
type Subscriber struct {
	socket string

	mu        sync.Mutex
	regs      []callbackReg
	conn      *websocket.Conn
	redialing bool
}

// NewSubscriber returns a Subscriber for the hub listening on the unix
// socket at path. Nothing is dialed until the first Add.
func NewSubscriber(path string) *Subscriber {
	return &Subscriber{socket: path}
}

// Add registers cb.
func (s *Subscriber) Add(ctx context.Context, cb Callback, userData any) error {
	if cb == nil {
		return calerr.New(calerr.InvalidParameter, "add reminder callback", "nil callback")
	}
	if !validUserData(userData) {
		return calerr.New(calerr.InvalidParameter, "add reminder callback", "user data of type %T is not comparable", userData)
	}
	r := callbackReg{fn: reflect.ValueOf(cb).Pointer(), cb: cb, userData: userData}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(r) >= 0 {
		return calerr.New(calerr.InvalidParameter, "add reminder callback", "callback already registered")
	}
	if s.conn == nil {
		if err := s.openLocked(ctx); err != nil {
			return err
		}
	}
	s.regs = append(s.regs, r)
	return nil
}

// Remove drops the registration made with the same arguments.
func (s *Subscriber) Remove(cb Callback, userData any) error {
	if cb == nil {
		return calerr.New(calerr.InvalidParameter, "remove reminder callback", "nil callback")
	}
	if !validUserData(userData) {
		return calerr.New(calerr.InvalidParameter, "remove reminder callback", "user data of type %T is not comparable", userData)
	}
	r := callbackReg{fn: reflect.ValueOf(cb).Pointer(), userData: userData}

	s.mu.Lock()
	i := s.find(r)
	if i < 0 {
		s.mu.Unlock()
		return calerr.New(calerr.InvalidParameter, "remove reminder callback", "callback not registered")
	}
	s.regs = append(s.regs[:i], s.regs[i+1:]...)
	var conn *websocket.Conn
	if len(s.regs) == 0 {
		conn, s.conn = s.conn, nil
	}
	s.mu.Unlock()

	if conn != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
	return nil
}

// Connected reports whether the subscriber holds an open connection.
func (s *Subscriber) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func (s *Subscriber) find(r callbackReg) int {
	for i, have := range s.regs {
		if have.fn == r.fn && have.userData == r.userData {
			return i
		}
	}
	return -1
}

// validUserData reports whether v can be used as a registration key.
func validUserData(v any) bool {
	return v == nil || reflect.ValueOf(v).Comparable()
}

func (s *Subscriber) dial(ctx context.Context) (*websocket.Conn, error) {
	d := websocket.Dialer{
		NetDialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var nd net.Dialer
			return nd.DialContext(ctx, "unix", s.socket)
		},
	}
	conn, _, err := d.DialContext(ctx, "ws://calstore"+Path, nil)
	if err != nil {
		return nil, calerr.Wrap(calerr.Ipc, "subscribe reminders", err)
	}
	return conn, nil
}

func (s *Subscriber) openLocked(ctx context.Context) error {
	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	s.conn = conn
	go s.readLoop(conn)
	return nil
}

// redial reconnects until it succeeds or no callbacks remain.
func (s *Subscriber) redial() {
	wait := redialMin
	for {
		time.Sleep(wait)

		s.mu.Lock()
		if len(s.regs) == 0 || s.conn != nil {
			s.redialing = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), dialWait)
		conn, err := s.dial(ctx)
		cancel()
		if err != nil {
			slog.Debug("reminder redial failed", "error", err, "retry_in", wait)
			wait = min(wait*2, redialMax)
			continue
		}

		s.mu.Lock()
		s.redialing = false
		if len(s.regs) == 0 || s.conn != nil {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conn = conn
		s.mu.Unlock()
		slog.Debug("reminder connection restored")
		go s.readLoop(conn)
		return
	}
}

func (s *Subscriber) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if s.conn == conn {
				slog.Debug("reminder connection lost", "error", err)
				s.conn = nil
				if len(s.regs) > 0 && !s.redialing {
					s.redialing = true
					go s.redial()
				}
			}
			s.mu.Unlock()
			return
		}
		r, err := Decode(msg)
		if err != nil {
			slog.Debug("malformed reminder", "error", err)
			continue
		}

		s.mu.Lock()
		if s.conn != conn {
			s.mu.Unlock()
			return
		}
		regs := append([]callbackReg(nil), s.regs...)
		s.mu.Unlock()
		for _, reg := range regs {
			reg.cb(r, reg.userData)
		}
	}
}
