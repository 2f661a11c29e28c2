package email

import (
	"context"

	"github.com/Domenick1991/hotelbooking/internal/kafka"
	"github.com/sirupsen/logrus"
)

var subjects = map[string]string{
	"booking_created":   "We received your booking",
	"booking_confirmed": "Your booking is confirmed",
	"booking_cancelled": "Your booking was cancelled",
	"booking_completed": "Thanks for staying with us",
}

// Sender stands in for a mail provider: it renders the notification and
// writes it to the log.
type Sender struct {
	log logrus.FieldLogger
}

func NewSender(log logrus.FieldLogger) *Sender {
	return &Sender{log: log.WithField("component", "email")}
}

// Subject returns the mail subject for an event type, or "" when the event
// does not notify the guest.
func Subject(eventType string) string {
	return subjects[eventType]
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	subject := Subject(event.Type)
	if subject == "" || event.Email == "" {
		return nil
	}
	s.log.WithFields(logrus.Fields{
		"to":             event.Email,
		"subject":        subject,
		"booking_number": event.BookingNumber,
		"check_in":       event.CheckIn,
		"check_out":      event.CheckOut,
	}).Info("send email")
	return nil
}
