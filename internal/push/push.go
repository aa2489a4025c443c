// Package push delivers best-effort notifications to coaches and students.
package push

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/repository"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// ErrNoAddress means the user has not linked this transport.
var ErrNoAddress = errors.New("user has no address for this transport")

const sendTimeout = 5 * time.Second

// Message is a transport-agnostic push payload. Link is a deep link path
// such as /coach/students/{id}.
type Message struct {
	Title string
	Body  string
	Link  string
}

// Sender is one push transport.
type Sender interface {
	Name() string
	Send(ctx context.Context, to *domain.User, msg Message) error
}

// Notifier resolves users and fans a message out to every transport.
// Failures are logged and never returned.
type Notifier struct {
	users      repository.UserRepository
	senders    []Sender
	appBaseURL string
	log        *slog.Logger
}

func NewNotifier(users repository.UserRepository, appBaseURL string, log *slog.Logger, senders ...Sender) *Notifier {
	return &Notifier{
		users:      users,
		senders:    senders,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		log:        log,
	}
}

// Notify pushes msg to userID on every configured transport.
func (n *Notifier) Notify(ctx context.Context, userID primitive.ObjectID, msg Message) {
	if n == nil || len(n.senders) == 0 {
		return
	}
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		n.log.Warn("push_user_lookup_failed", "user_id", userID.Hex(), "error", err)
		return
	}
	if msg.Link != "" && strings.HasPrefix(msg.Link, "/") {
		msg.Link = n.appBaseURL + msg.Link
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	var g errgroup.Group
	for _, s := range n.senders {
		s := s
		g.Go(func() error {
			err := s.Send(ctx, user, msg)
			switch {
			case err == nil:
				n.log.Debug("push_sent", "transport", s.Name(), "user_id", userID.Hex())
			case errors.Is(err, ErrNoAddress):
			default:
				n.log.Warn("push_failed", "transport", s.Name(), "user_id", userID.Hex(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Text renders msg as plain text for chat transports.
func (m Message) Text() string {
	var b strings.Builder
	if m.Title != "" {
		b.WriteString(m.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(m.Body)
	if m.Link != "" {
		b.WriteString("\n")
		b.WriteString(m.Link)
	}
	return b.String()
}
