package auth

import (
	"context"
	"errors"
	"testing"

	"meetai/internal/email"

	"github.com/jackc/pgx/v5"
)

type errRow struct{}

func (errRow) Scan(dest ...any) error { return pgx.ErrNoRows }

// execOnlyDB satisfies database.Service for write-only flows
type execOnlyDB struct{}

func (execOnlyDB) QueryRow(ctx context.Context, query string, args ...any) pgx.Row { return errRow{} }
func (execOnlyDB) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}
func (execOnlyDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return 1, nil
}
func (execOnlyDB) Health() map[string]string { return nil }
func (execOnlyDB) Close() error              { return nil }

// recordingPublisher tracks which publish path each event took
type recordingPublisher struct {
	syncErr     error
	syncEvents  []email.EmailEvent
	asyncEvents []email.EmailEvent
}

func (p *recordingPublisher) PublishEmailEvent(topic string, event interface{}) error {
	p.asyncEvents = append(p.asyncEvents, event.(email.EmailEvent))
	return nil
}

func (p *recordingPublisher) PublishEmailEventSync(topic string, event interface{}) error {
	if p.syncErr != nil {
		return p.syncErr
	}
	p.syncEvents = append(p.syncEvents, event.(email.EmailEvent))
	return nil
}

// recordingSender captures direct sends
type recordingSender struct {
	sent []email.EmailEvent
}

func (s *recordingSender) SendVerificationCode(emailAddr, code string) error { return nil }
func (s *recordingSender) SendWelcome(emailAddr, name string) error          { return nil }
func (s *recordingSender) SendEmailEvent(event email.EmailEvent) error {
	s.sent = append(s.sent, event)
	return nil
}

func TestRequestVerificationPublishesSynchronously(t *testing.T) {
	pub := &recordingPublisher{}
	sender := &recordingSender{}

	svc := NewServiceWithPublisher(execOnlyDB{}, sender, nil, nil, pub, "email-events")

	if err := svc.RequestVerification(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestVerification failed: %v", err)
	}

	if len(pub.syncEvents) != 1 {
		t.Fatalf("Expected 1 synchronous publish, got %d", len(pub.syncEvents))
	}
	if pub.syncEvents[0].EventType != email.EmailTypeVerificationCode {
		t.Errorf("Expected verification_code event, got %s", pub.syncEvents[0].EventType)
	}
	if len(pub.asyncEvents) != 0 {
		t.Errorf("Verification code should not use the async path, got %d events", len(pub.asyncEvents))
	}
	if len(sender.sent) != 0 {
		t.Errorf("Direct sender should not be used when publish succeeds, got %d sends", len(sender.sent))
	}
}

func TestRequestVerificationFallsBackToDirectSend(t *testing.T) {
	pub := &recordingPublisher{syncErr: errors.New("broker down")}
	sender := &recordingSender{}

	svc := NewServiceWithPublisher(execOnlyDB{}, sender, nil, nil, pub, "email-events")

	if err := svc.RequestVerification(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestVerification failed: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("Expected direct send fallback, got %d sends", len(sender.sent))
	}
	if sender.sent[0].EventType != email.EmailTypeVerificationCode {
		t.Errorf("Expected verification_code event, got %s", sender.sent[0].EventType)
	}
}
