package generate

import (
	"strings"
)

// MaxWindowChars limits the recent-exchange excerpt sent to the model.
const MaxWindowChars = 8000

// SystemPrompt instructs the model to act as a story director.
const SystemPrompt = `You are a story director for an ongoing roleplay conversation. You write short plot developments that move the story forward without taking control of the other participant's character.

Rules:
- Write 2-4 sentences of plot development, present tense.
- Build on what has already happened; never contradict established events.
- Introduce complications, not resolutions.
- Output plain prose only. No headers, no markdown, no meta commentary.`

// Payload carries everything the prompt builder needs for one
// generation: the suggestion being developed, who we are writing for,
// and the recent conversation context.
type Payload struct {
	ParticipantName string
	Suggestion      string
	PhaseName       string
	TemplateName    string
	BranchLabel     string
	PreviousPlot    string
	DirectionHints  []string
	Cues            []string
	RecentWindow    []string
}

// BuildUserPrompt assembles the user prompt from the payload parts.
// Sections with no content are omitted entirely.
func (p Payload) BuildUserPrompt() string {
	var sb strings.Builder

	if p.ParticipantName != "" {
		sb.WriteString("Character: ")
		sb.WriteString(p.ParticipantName)
		sb.WriteString("\n\n")
	}

	if p.TemplateName != "" {
		sb.WriteString("Story arc: ")
		sb.WriteString(p.TemplateName)
		if p.PhaseName != "" {
			sb.WriteString(" (current phase: ")
			sb.WriteString(p.PhaseName)
			sb.WriteString(")")
		}
		sb.WriteString("\n\n")
	}

	if p.BranchLabel != "" {
		sb.WriteString("Chosen direction: ")
		sb.WriteString(p.BranchLabel)
		sb.WriteString("\n\n")
	}

	if p.PreviousPlot != "" {
		sb.WriteString("Previous plot development:\n")
		sb.WriteString(p.PreviousPlot)
		sb.WriteString("\n\n")
	}

	if len(p.DirectionHints) > 0 {
		sb.WriteString("Recurring themes in recent messages: ")
		sb.WriteString(strings.Join(p.DirectionHints, ", "))
		sb.WriteString("\n\n")
	}

	if len(p.Cues) > 0 {
		sb.WriteString("Narrative cues detected: ")
		sb.WriteString(strings.Join(p.Cues, "; "))
		sb.WriteString("\n\n")
	}

	if window := joinWindow(p.RecentWindow); window != "" {
		sb.WriteString("Recent exchange:\n")
		sb.WriteString(window)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Task: ")
	if p.Suggestion != "" {
		sb.WriteString("Develop this plot direction: ")
		sb.WriteString(p.Suggestion)
	} else {
		sb.WriteString("Write the next plot development for this conversation.")
	}

	return sb.String()
}

// joinWindow concatenates the recent messages, keeping the newest ones
// when the excerpt would exceed MaxWindowChars.
func joinWindow(window []string) string {
	if len(window) == 0 {
		return ""
	}
	joined := strings.Join(window, "\n")
	if len(joined) > MaxWindowChars {
		joined = joined[len(joined)-MaxWindowChars:]
		if i := strings.IndexByte(joined, '\n'); i >= 0 {
			joined = joined[i+1:]
		}
	}
	return joined
}
