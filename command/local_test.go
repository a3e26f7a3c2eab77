package command

import (
	"context"
	"testing"
)

func TestLocalCommandParser(t *testing.T) {
	t.Parallel()
	p := NewLocalCommandParser()
	cases := []struct {
		input string
		want  Command
	}{
		{"/isci_ekle", Command{Kind: Register}},
		{"/isci_listesi", Command{Kind: ListWorkers}},
		{"/isci_listesi   Cleaning ", Command{Kind: ListWorkers, Args: "Cleaning"}},
		{"/isci_listesi@IntakeBot Plumbing", Command{Kind: ListWorkers, Args: "Plumbing"}},
		{"/IPTAL", Command{Kind: Cancel}},
		{"/cancel", Command{Kind: Cancel}},
		{"/start", Command{Kind: Start}},
		{"/yardim", Command{Kind: Help}},
		{"/help", Command{Kind: Help}},
		{"  Vazgeç ", Command{Kind: Cancel}},
		{"/unknown", Command{Kind: None}},
		{"Ankara'da boyacı arıyorum", Command{Kind: None}},
		{"", Command{Kind: None}},
	}
	for _, tc := range cases {
		got, err := p.ParseCommand(context.Background(), tc.input)
		if err != nil {
			t.Fatalf("%q: %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("%q: got %+v, want %+v", tc.input, got, tc.want)
		}
	}
}
