// Package coach composes the chat-completion request for the AI coach
// and owns the single outbound call to the LLM provider.
package coach

import (
	"fmt"
	"strings"
	"time"

	"github.com/jessmcb/trilog/internal/summary"
	"github.com/jessmcb/trilog/internal/workout"
)

// Chat roles as the completion API expects them.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged turn of the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptBuilder composes the system prompt and message list. Pure
// string composition over already-fetched data; it never fails.
type PromptBuilder struct {
	// MaxInputChars caps the user message and every history entry.
	// This runs here even when the caller already truncated.
	MaxInputChars int
	// MaxHistoryTurns is how many trailing conversation turns survive
	// into the request.
	MaxHistoryTurns int
	// PlanText is the weekly plan shown to the coach when the profile
	// carries none of its own.
	PlanText string
	// Targets back the "Weekly targets" line of the plan block.
	Targets summary.Targets
}

// Truncate caps s at n characters. Applying it twice is the same as
// applying it once.
func Truncate(s string, n int) string {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

// Build produces the ordered message list for the completion call: one
// system message, the trimmed history, then the user's message.
// trainingLog is the summarizer's report. A nil profile falls back to a
// generic framing with a placeholder name.
func (b PromptBuilder) Build(profile *workout.Profile, trainingLog string, history []Message, userMsg string, now time.Time) []Message {
	msgs := []Message{{Role: RoleSystem, Content: b.systemPrompt(profile, trainingLog, now)}}

	if n := b.MaxHistoryTurns; n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	for _, h := range history {
		msgs = append(msgs, Message{Role: h.Role, Content: Truncate(h.Content, b.MaxInputChars)})
	}

	return append(msgs, Message{Role: RoleUser, Content: Truncate(strings.TrimSpace(userMsg), b.MaxInputChars)})
}

func (b PromptBuilder) systemPrompt(profile *workout.Profile, trainingLog string, now time.Time) string {
	name := "athlete"
	injuries := "None"
	if profile != nil {
		if profile.Name != "" {
			name = profile.Name
		}
		if strings.TrimSpace(profile.InjuryFlags) != "" {
			injuries = profile.InjuryFlags
		}
	}

	days, hasRace := 0, false
	if profile != nil {
		days, hasRace = profile.DaysToRace(now)
	}
	if !hasRace {
		return b.genericPrompt(name, injuries, trainingLog)
	}
	return b.racePrompt(profile, name, injuries, days, trainingLog)
}

func (b PromptBuilder) genericPrompt(name, injuries, trainingLog string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are \"Coach\", a supportive endurance and strength coach helping %s train consistently. You are warm, direct, and data-driven.\n\n", name)
	fmt.Fprintf(&sb, "== ATHLETE ==\nName: %s\nActive injuries / flags: %s\n\n", name, injuries)
	fmt.Fprintf(&sb, "== TRAINING LOG (all sessions since training began) ==\n%s\n\n", trainingLog)
	sb.WriteString(`== COACHING RULES ==
1. Always account for the listed injuries — never prescribe pain-pushing sessions.
2. Reference specific dates and workout data when answering. Never be vague.
3. Keep responses to 3-5 sentences unless asked for a detailed breakdown.
4. Use the athlete's name occasionally, not every message.
5. If no workouts are logged yet, encourage the athlete to start logging and offer a first-week plan.`)
	return sb.String()
}

func (b PromptBuilder) racePrompt(profile *workout.Profile, name, injuries string, daysToRace int, trainingLog string) string {
	raceName := profile.RaceName
	if raceName == "" {
		raceName = "the race"
	}
	plan := strings.TrimSpace(profile.TrainingPlan)
	if plan == "" {
		plan = b.PlanText
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are \"Coach\", an expert triathlon coach helping %s prepare for %s. You are warm, direct, and data-driven. You do NOT rewrite the training plan unless there is a compelling reason. You protect %s from injury and never push through pain.\n\n", name, raceName, name)

	fmt.Fprintf(&sb, "== ATHLETE ==\nName: %s\n", name)
	fmt.Fprintf(&sb, "Race: %s, %s (%d days away)\n", raceName, profile.RaceDate, daysToRace)
	if profile.RaceGoal != "" {
		fmt.Fprintf(&sb, "Goal: %s\n", profile.RaceGoal)
	}
	if d := profile.RaceDistances; d != nil {
		fmt.Fprintf(&sb, "Distances: %gm swim · %gkm bike · %gkm run\n", d.Swim, d.Bike, d.Run)
	}
	fmt.Fprintf(&sb, "Active injuries / flags: %s\n\n", injuries)

	if plan != "" {
		fmt.Fprintf(&sb, "== WEEKLY TRAINING PLAN (this is THE plan — do not change it unless necessary) ==\n%s\n", plan)
		fmt.Fprintf(&sb, "Weekly targets: Strength ×%d, Run ×%d, Bike ×%d, Swim ×%d+\n\n",
			b.Targets.Strength, b.Targets.Run, b.Targets.Bike, b.Targets.Swim)
	}

	fmt.Fprintf(&sb, "== TRAINING LOG (all sessions since training began) ==\n%s\n\n", trainingLog)

	fmt.Fprintf(&sb, `== COACHING RULES ==
1. Always account for the listed injuries — never prescribe pain-pushing sessions.
2. Reference specific dates and workout data when answering. Never be vague.
3. When asked about race readiness, compare current performance against the target distances above.
4. Evaluate weekly adherence against the plan — note missed sessions by discipline.
5. Suggest plan adjustments only when recovery, injury, or significant missed weeks make it necessary.
6. Keep responses to 3-5 sentences unless %s asks for a detailed breakdown.
7. Use %s's name occasionally, not every message.
8. If no workouts are logged yet, encourage %s to start logging and offer a first-week plan.`, name, name, name)

	return sb.String()
}
