package queue

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestLogSenderWritesRecord(t *testing.T) {
	dir := t.TempDir()
	s := &LogSender{Dir: dir}

	ev := RegistrationConfirmedEvent{
		EventID:            "ev-1",
		RegistrationID:     12,
		ClassID:            3,
		ClientID:           7,
		ClientEmail:        "client@example.com",
		ClassName:          "Yoga Basics",
		StartsAt:           "2026-09-01T18:00:00Z",
		PaymentReference:   "BK-9F3A27C1",
		PaymentAmountCents: 2500,
		PaymentMethod:      "bank_transfer",
		ConfirmedAt:        "2026-08-29T10:00:00Z",
	}
	if err := s.SendConfirmation(ev); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := s.SendConfirmation(ev); err != nil {
		t.Fatalf("second send: %v", err)
	}

	data, err := os.ReadFile(dir + "/notifications.log")
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	for _, want := range []string{"BK-9F3A27C1", "client@example.com", "Yoga Basics", "registration_id=12"} {
		if !strings.Contains(lines[0], want) {
			t.Fatalf("log line %q missing %q", lines[0], want)
		}
	}
}

func TestHandleMessage(t *testing.T) {
	var got RegistrationConfirmedEvent
	sender := senderFunc(func(ev RegistrationConfirmedEvent) error {
		got = ev
		return nil
	})

	body, _ := json.Marshal(RegistrationConfirmedEvent{EventID: "ev-2", RegistrationID: 5})
	if err := handleMessage(body, sender); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got.EventID != "ev-2" || got.RegistrationID != 5 {
		t.Fatalf("decoded event = %+v", got)
	}

	if err := handleMessage([]byte("not json"), sender); err == nil {
		t.Fatal("malformed body accepted")
	}
}

type senderFunc func(RegistrationConfirmedEvent) error

func (f senderFunc) SendConfirmation(ev RegistrationConfirmedEvent) error { return f(ev) }
