package generate

import (
	"strings"
	"testing"
)

func TestBuildUserPromptSections(t *testing.T) {
	p := Payload{
		ParticipantName: "Mira",
		Suggestion:      "Deepen the current beat: clues accumulate",
		TemplateName:    "Unraveling Mystery",
		PhaseName:       "investigation",
		BranchLabel:     "a witness lies",
		PreviousPlot:    "A letter arrived with no sender.",
		DirectionHints:  []string{"lighthouse", "storm"},
		Cues:            []string{"a secret surfaces"},
		RecentWindow:    []string{"Mira: who sent this?", "The keeper shrugs."},
	}

	prompt := p.BuildUserPrompt()

	for _, want := range []string{
		"Character: Mira",
		"Story arc: Unraveling Mystery",
		"current phase: investigation",
		"Chosen direction: a witness lies",
		"A letter arrived with no sender.",
		"lighthouse, storm",
		"a secret surfaces",
		"Mira: who sent this?",
		"Develop this plot direction: Deepen the current beat",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\n%s", want, prompt)
		}
	}
}

func TestBuildUserPromptMinimal(t *testing.T) {
	prompt := Payload{}.BuildUserPrompt()

	if !strings.Contains(prompt, "Write the next plot development") {
		t.Errorf("expected generic task line, got:\n%s", prompt)
	}
	for _, absent := range []string{"Character:", "Story arc:", "Chosen direction:", "Recent exchange:"} {
		if strings.Contains(prompt, absent) {
			t.Errorf("empty payload should omit %q section", absent)
		}
	}
}

func TestJoinWindowTruncatesOldest(t *testing.T) {
	long := strings.Repeat("x", MaxWindowChars)
	window := []string{long, "the newest message"}

	joined := joinWindow(window)
	if len(joined) > MaxWindowChars {
		t.Errorf("excerpt exceeds limit: %d", len(joined))
	}
	if !strings.Contains(joined, "the newest message") {
		t.Error("newest message must survive truncation")
	}
}

func TestJoinWindowEmpty(t *testing.T) {
	if joinWindow(nil) != "" {
		t.Error("expected empty excerpt for empty window")
	}
}
