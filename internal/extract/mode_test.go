package extract

import (
	"strings"
	"testing"

	"github.com/candorlabs/candor/internal/capsule"
)

func TestComplexity(t *testing.T) {
	longFiller := strings.Repeat("The meeting went well and everyone agreed on the plan. ", 10)

	tests := []struct {
		name   string
		text   string
		source capsule.SourceType
		want   float64
	}{
		{
			name:   "short clean chat",
			text:   "alice [09:00]: hi",
			source: capsule.SourceChat,
			want:   0, // -0.2 clamped to 0
		},
		{
			name:   "email without headers",
			text:   longFiller,
			source: capsule.SourceEmail,
			want:   0.3,
		},
		{
			name:   "email without headers and unclear markers",
			text:   longFiller + " and then... [unclear]",
			source: capsule.SourceEmail,
			want:   0.5,
		},
		{
			name:   "mixed format",
			text:   "From: a@b.com\n" + longFiller + "\nalice [09:00]: hi",
			source: capsule.SourceChat,
			want:   0.3,
		},
		{
			name:   "non-ascii long text",
			text:   longFiller + " café",
			source: capsule.SourceChat,
			want:   0.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Complexity(tt.text, tt.source)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Complexity() = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("Complexity() = %v, out of [0,1]", got)
			}
		})
	}
}

func TestComplexity_Deterministic(t *testing.T) {
	text := "From: a@b.com\nalice [09:00]: hola… ¿qué tal?"
	first := Complexity(text, capsule.SourceEmail)
	for i := 0; i < 100; i++ {
		if got := Complexity(text, capsule.SourceEmail); got != first {
			t.Fatalf("Complexity() not deterministic: %v != %v", got, first)
		}
	}
}

func TestSelector_Resolve(t *testing.T) {
	complexText := strings.Repeat("hmm... ", 40) + "café [unclear]\nFrom: x\nb [09:00]: hi"

	tests := []struct {
		name      string
		available bool
		requested capsule.Mode
		text      string
		source    capsule.SourceType
		want      capsule.Mode
		wantErr   bool
	}{
		{"explicit basic", true, capsule.ModeBasic, "hi", capsule.SourceChat, capsule.ModeBasic, false},
		{"explicit advanced with backend", true, capsule.ModeAdvanced, "hi", capsule.SourceChat, capsule.ModeAdvanced, false},
		{"explicit advanced without backend", false, capsule.ModeAdvanced, "hi", capsule.SourceChat, "", true},
		{"auto simple text", true, capsule.ModeAuto, "alice: hi\nbob: hello there friend", capsule.SourceGeneric, capsule.ModeBasic, false},
		{"auto complex with backend", true, capsule.ModeAuto, complexText, capsule.SourceEmail, capsule.ModeAdvanced, false},
		{"auto complex without backend", false, capsule.ModeAuto, complexText, capsule.SourceEmail, capsule.ModeBasic, false},
		{"unknown mode", true, capsule.Mode("turbo"), "hi", capsule.SourceChat, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelector(tt.available)
			got, err := s.Resolve(tt.text, tt.source, tt.requested)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Resolve() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}
