package testcases

import (
	"context"
	"strings"
	"testing"

	"github.com/tbxark/intakebot/dialogue"
	"github.com/tbxark/intakebot/types"
)

func TestRegistrationDialogue(t *testing.T) {
	t.Parallel()
	d, workers := NewLiveDispatcher(t)

	reply := Say(t, d, "u1", "/isci_ekle")
	if reply.Text != dialogue.RegistrationIntro {
		t.Fatalf("unexpected intro: %q", reply.Text)
	}
	answers := []string{"Ahmet Yılmaz", "Cleaning", "İstanbul", "05551234567", "5"}
	for _, a := range answers {
		reply = Say(t, d, "u1", a)
		if reply.Text == dialogue.RegistrationSuccess {
			break
		}
	}
	if reply.Text != dialogue.RegistrationSuccess {
		t.Fatalf("registration did not complete, last reply: %q", reply.Text)
	}

	records, err := workers.List(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	r := records[0]
	if r.FullName != "Ahmet Yılmaz" || r.Category != "Cleaning" || r.Experience != 5 {
		t.Errorf("unexpected record: %+v", r)
	}
	if r.Rating != 0 || r.ReviewCount != 0 || !r.Availability {
		t.Errorf("unexpected initial values: %+v", r)
	}
}

func TestBookingDialogue(t *testing.T) {
	t.Parallel()
	d, _ := NewLiveDispatcher(t)

	reply := Say(t, d, "u2", "Kadıköy'de ev temizliği için birini arıyorum")
	for range 3 {
		if reply.Markdown || reply.Text == dialogue.NoProviders || reply.Text == dialogue.CategoryNotFound {
			break
		}
		switch reply.Text {
		case dialogue.BookingPrompts[types.FieldDate]:
			reply = Say(t, d, "u2", "Yarın")
		case dialogue.BookingPrompts[types.FieldTime]:
			reply = Say(t, d, "u2", "14:00")
		case dialogue.BookingPrompts[types.FieldLocation]:
			reply = Say(t, d, "u2", "Kadıköy")
		default:
			t.Fatalf("unexpected reply: %q", reply.Text)
		}
	}
	if !reply.Markdown || !strings.Contains(reply.Text, "Ayşe Demir") {
		t.Fatalf("expected the Kadıköy cleaner, got %q", reply.Text)
	}
}
