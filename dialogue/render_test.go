package dialogue

import (
	"testing"

	"github.com/tbxark/intakebot/catalog"
	"github.com/tbxark/intakebot/types"
	"github.com/tbxark/intakebot/worker"
)

func TestProviderListing(t *testing.T) {
	t.Parallel()
	got := ProviderListing("Plumbing", []catalog.Provider{
		{FullName: "A", Location: "Istanbul-Kadikoy", Rating: 4.5},
		{FullName: "B", Location: "Ankara", Rating: 4},
	})
	want := "🧾 *Müsait Görevliler – Plumbing*\n\n1. A – Istanbul-Kadikoy (4.5 ⭐)\n2. B – Ankara (4 ⭐)"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestWorkerListing(t *testing.T) {
	t.Parallel()
	records := []worker.Record{{FullName: "Ayşe", Location: "İzmir"}}
	if got, want := WorkerListing("", records), "📋 *İşçi Listesi*\n\n1. Ayşe - İzmir (0 ⭐)"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := WorkerListing("Cleaning", records), "📋 *İşçi Listesi - Cleaning*\n\n1. Ayşe - İzmir (0 ⭐)"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEveryFieldHasAPrompt(t *testing.T) {
	t.Parallel()
	check := func(fields []types.FieldInfo, prompts map[string]string) {
		for _, f := range fields {
			if prompts[f.Name] == "" {
				t.Errorf("no prompt for %s", f.Name)
			}
		}
	}
	check(RegistrationFields, RegistrationPrompts)
	check(BookingFields, BookingPrompts)
}

func TestListingsEscapeUserText(t *testing.T) {
	t.Parallel()
	records := []worker.Record{{FullName: "Ali_Veli", Location: "İzmir*[merkez]`"}}
	want := "📋 *İşçi Listesi*\n\n1. Ali\\_Veli - İzmir\\*\\[merkez]\\` (0 ⭐)"
	if got := WorkerListing("", records); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got := ProviderListing("Cleaning", []catalog.Provider{{FullName: "Can_Ak", Location: "Bursa", Rating: 4}})
	if want := "🧾 *Müsait Görevliler – Cleaning*\n\n1. Can\\_Ak – Bursa (4 ⭐)"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
