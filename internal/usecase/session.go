package usecase

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"NewsCurator/internal/domain"
)

// Selection error kinds; match with errors.Is.
var (
	ErrIndexOutOfRange = errors.New("selection index out of range")
	ErrNotANumber      = errors.New("selection is not a number")
	ErrNoActiveSession = errors.New("no active selection session")
)

// SelectionError describes a rejected operator reply.
type SelectionError struct {
	Kind  error
	Input string
	Max   int
}

func (e *SelectionError) Error() string {
	switch e.Kind {
	case ErrIndexOutOfRange:
		return fmt.Sprintf("%v: %q not in 1..%d", e.Kind, e.Input, e.Max)
	case ErrNotANumber:
		return fmt.Sprintf("%v: %q", e.Kind, e.Input)
	default:
		return e.Kind.Error()
	}
}

func (e *SelectionError) Unwrap() error {
	return e.Kind
}

// Handle identifies one offer.
type Handle string

type session struct {
	posts     []domain.Post
	createdAt time.Time
	expiresAt time.Time
}

// Sessions holds offered post sets. The latest offer is current; older
// handles keep resolving against their own posts until consumed or expired.
// Not safe for concurrent use.
type Sessions struct {
	ttl      time.Duration
	now      func() time.Time
	sessions map[Handle]*session
	current  Handle
}

// NewSessions creates an idle manager; offers expire after ttl.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[Handle]*session),
	}
}

// Offer opens a session over a copy of posts and makes it current.
func (s *Sessions) Offer(posts []domain.Post) Handle {
	s.prune()

	now := s.now()
	handle := Handle(uuid.NewString())
	s.sessions[handle] = &session{
		posts:     append([]domain.Post(nil), posts...),
		createdAt: now,
		expiresAt: now.Add(s.ttl),
	}
	s.current = handle
	return handle
}

// Current returns the live current handle, if any.
func (s *Sessions) Current() (Handle, bool) {
	if _, err := s.lookup(s.current); err != nil {
		return "", false
	}
	return s.current, true
}

// ExpiresAt reports when handle stops accepting selections.
func (s *Sessions) ExpiresAt(handle Handle) (time.Time, bool) {
	sess, err := s.lookup(handle)
	if err != nil {
		return time.Time{}, false
	}
	return sess.expiresAt, true
}

// Select parses a 1-based index from operator input.
func (s *Sessions) Select(handle Handle, input string) (domain.Post, error) {
	sess, err := s.lookup(handle)
	if err != nil {
		return domain.Post{}, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return domain.Post{}, &SelectionError{Kind: ErrNotANumber, Input: input, Max: len(sess.posts)}
	}
	return s.take(handle, sess, n, input)
}

// SelectIndex consumes the session at 1-based index n.
func (s *Sessions) SelectIndex(handle Handle, n int) (domain.Post, error) {
	sess, err := s.lookup(handle)
	if err != nil {
		return domain.Post{}, err
	}
	return s.take(handle, sess, n, strconv.Itoa(n))
}

func (s *Sessions) take(handle Handle, sess *session, n int, input string) (domain.Post, error) {
	if n < 1 || n > len(sess.posts) {
		return domain.Post{}, &SelectionError{Kind: ErrIndexOutOfRange, Input: input, Max: len(sess.posts)}
	}
	post := sess.posts[n-1]
	delete(s.sessions, handle)
	if s.current == handle {
		s.current = ""
	}
	return post, nil
}

func (s *Sessions) lookup(handle Handle) (*session, error) {
	sess, ok := s.sessions[handle]
	if !ok {
		return nil, &SelectionError{Kind: ErrNoActiveSession}
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, handle)
		if s.current == handle {
			s.current = ""
		}
		return nil, &SelectionError{Kind: ErrNoActiveSession}
	}
	return sess, nil
}

func (s *Sessions) prune() {
	now := s.now()
	for h, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, h)
		}
	}
}
