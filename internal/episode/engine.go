package episode

import (
	"context"
	"fmt"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/myrjola/kastor/internal/logging"
	"log/slog"
	"strings"
	"time"
)

// HistoryTurns is the number of previous transcript turns handed to the chat completer.
const HistoryTurns = 5

const defaultPlayerName = "detective"

// Turn is one conversational turn handed to a [Completer].
type Turn struct {
	Role    Speaker
	Content string
}

// Completer produces the companion's reply to free-text input.
type Completer interface {
	// Complete returns the reply to the last turn. instruction describes the companion and the current situation.
	Complete(ctx context.Context, instruction string, turns []Turn) (string, error)
}

// ActionKind distinguishes the inputs an [Engine] accepts.
type ActionKind string

const (
	ActionChoose  ActionKind = "choose"
	ActionSay     ActionKind = "say"
	ActionHint    ActionKind = "hint"
	ActionSkip    ActionKind = "skip"
	ActionRestart ActionKind = "restart"
)

// Action is a player input.
type Action struct {
	Kind ActionKind
	// ID is the predefined choice for [ActionChoose].
	ID ActionID
	// Text is the free-text input for [ActionSay] or the abandoned input for [ActionSkip].
	Text string
}

// Choose selects a predefined choice.
func Choose(id ActionID) Action {
	return Action{Kind: ActionChoose, ID: id, Text: ""}
}

// Say sends free text to the companion.
func Say(text string) Action {
	return Action{Kind: ActionSay, ID: "", Text: text}
}

// RequestHint asks for the next hint of the current stage.
func RequestHint() Action {
	return Action{Kind: ActionHint, ID: "", Text: ""}
}

// Skip abandons a failed chat turn. text is the player's unanswered input and may be empty.
func Skip(text string) Action {
	return Action{Kind: ActionSkip, ID: "", Text: text}
}

// Restart resets the play-through.
func Restart() Action {
	return Action{Kind: ActionRestart, ID: "", Text: ""}
}

// Engine applies player actions to session states according to a [Script].
type Engine struct {
	script            *Script
	completer         Completer
	completionTimeout time.Duration
	logger            *slog.Logger
}

// NewEngine creates an engine. completionTimeout bounds every chat completion.
func NewEngine(script *Script, completer Completer, completionTimeout time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		script:            script,
		completer:         completer,
		completionTimeout: completionTimeout,
		logger:            logger,
	}
}

// Script returns the narrative content the engine plays.
func (e *Engine) Script() *Script {
	return e.script
}

// NewSession returns the default state of a fresh play-through.
func (e *Engine) NewSession() SessionState {
	state := SessionState{
		Stage:      e.script.InitialStage(),
		Score:      0,
		Badges:     nil,
		Hypotheses: nil,
		HintsUsed:  make(map[StageID]int),
		Messages:   nil,
		UserName:   "",
	}
	if stage, err := e.script.Stage(state.Stage); err == nil {
		for _, msg := range stage.OnEnter {
			state.Messages = append(state.Messages, e.personalize(state, msg))
		}
	}
	return state
}

// Apply computes the state following action and the transcript lines it emitted.
//
// The input state is never modified. On error the input state is returned: [ErrIllegalAction] for actions the
// current stage does not allow, [ErrNoMoreHints] when the hint ladder is exhausted and [ErrCompletionFailed] when
// the companion could not answer.
func (e *Engine) Apply(ctx context.Context, state SessionState, action Action) (SessionState, []Message, error) {
	ctx = logging.WithAttrs(ctx,
		slog.String("stage", string(state.Stage)),
		slog.String("action_kind", string(action.Kind)))

	if action.Kind == ActionRestart {
		fresh := e.NewSession()
		e.logger.LogAttrs(ctx, slog.LevelInfo, "restarted play-through")
		return fresh, fresh.Messages, nil
	}

	stage, err := e.script.Stage(state.Stage)
	if err != nil {
		return state, nil, errors.Wrap(errors.Join(ErrIllegalAction, err), "current stage")
	}

	t := transition{engine: e, state: state.Clone(), emitted: nil}
	switch action.Kind {
	case ActionChoose:
		rule, ok := e.script.Rule(stage.ID, action.ID)
		if !ok {
			return state, nil, errors.Wrap(ErrIllegalAction, "choice not offered",
				slog.String("action", string(action.ID)))
		}
		t.applyRule(rule)
	case ActionSay:
		text := strings.TrimSpace(action.Text)
		if !stage.FreeChat || text == "" {
			return state, nil, errors.Wrap(ErrIllegalAction, "free text not accepted")
		}
		if e.capturesName(t.state) {
			t.captureName(text)
			break
		}
		var reply string
		if reply, err = e.complete(ctx, stage, t.state, text); err != nil {
			return state, nil, err
		}
		t.emit(SpeakerUser, text)
		t.emit(SpeakerAssistant, reply)
	case ActionHint:
		ladder := stage.Hints
		if len(ladder) == 0 {
			return state, nil, errors.Wrap(ErrIllegalAction, "stage has no hints")
		}
		used := t.state.HintsUsed[stage.ID]
		if used >= len(ladder) {
			return state, nil, errors.Wrap(ErrNoMoreHints, "request hint", slog.Int("hints_used", used))
		}
		t.state.HintsUsed[stage.ID] = used + 1
		t.emit(SpeakerAssistant, "💡 "+ladder[used])
	case ActionSkip:
		if !stage.FreeChat {
			return state, nil, errors.Wrap(ErrIllegalAction, "nothing to skip")
		}
		if text := strings.TrimSpace(action.Text); text != "" {
			t.emit(SpeakerUser, text)
		}
		t.emit(SpeakerAssistant, e.script.SkipApology())
	case ActionRestart:
		// Handled above.
	default:
		return state, nil, errors.Wrap(ErrIllegalAction, "unknown action kind")
	}

	e.logger.LogAttrs(ctx, slog.LevelDebug, "applied action",
		slog.String("next_stage", string(t.state.Stage)),
		slog.Int("score", t.state.Score),
		slog.Int("emitted", len(t.emitted)))
	return t.state, t.emitted, nil
}

func (e *Engine) capturesName(state SessionState) bool {
	return state.UserName == "" &&
		state.Stage == e.script.InitialStage() &&
		e.script.NameCapture().Next != ""
}

func (e *Engine) complete(ctx context.Context, stage StageDefinition, state SessionState, text string) (string, error) {
	instruction := e.script.Persona() + "\n\nCurrent situation: " + stage.Context
	if state.UserName != "" {
		instruction += "\nThe player's name is " + state.UserName + "."
	}
	turns := append(state.recentTurns(HistoryTurns), Turn{Role: SpeakerUser, Content: text})

	if e.completionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.completionTimeout)
		defer cancel()
	}
	start := time.Now()
	reply, err := e.completer.Complete(ctx, instruction, turns)
	if err != nil {
		err = errors.Wrap(fmt.Errorf("%w: %w", ErrCompletionFailed, err), "complete chat",
			slog.Duration("duration", time.Since(start)))
		e.logger.LogAttrs(ctx, slog.LevelWarn, "chat completion failed", errors.SlogError(err))
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.Wrap(ErrCompletionFailed, "empty completion")
	}
	e.logger.LogAttrs(ctx, slog.LevelDebug, "chat completion",
		slog.Duration("duration", time.Since(start)), slog.Int("turns", len(turns)))
	return reply, nil
}

// personalize fills the {name} placeholder of scripted lines.
func (e *Engine) personalize(state SessionState, msg Message) Message {
	name := state.UserName
	if name == "" {
		name = defaultPlayerName
	}
	return Message{Speaker: msg.Speaker, Text: strings.ReplaceAll(msg.Text, "{name}", name)}
}

// transition accumulates the changes of one applied action.
type transition struct {
	engine  *Engine
	state   SessionState
	emitted []Message
}

func (t *transition) emit(speaker Speaker, text string) {
	msg := t.engine.personalize(t.state, Message{Speaker: speaker, Text: text})
	t.state.Messages = append(t.state.Messages, msg)
	t.emitted = append(t.emitted, msg)
}

func (t *transition) applyRule(rule TransitionRule) {
	t.emit(SpeakerUser, rule.userLine())
	t.state.Score += rule.Score
	for _, id := range rule.Badges {
		if t.state.award(id) {
			if badge, ok := t.engine.script.Badge(id); ok {
				t.emit(SpeakerSystem, "🏅 Badge earned: "+badge.Title)
			}
		}
	}
	if rule.Resolve != nil {
		t.state.resolveLatest(*rule.Resolve)
	}
	if rule.Hypothesis != "" {
		t.state.Hypotheses = append(t.state.Hypotheses, Hypothesis{Text: rule.Hypothesis, Verified: false, Result: ""})
	}
	for _, line := range rule.Reply {
		t.emit(SpeakerAssistant, line)
	}
	t.enter(rule.Next)
}

func (t *transition) captureName(text string) {
	capture := t.engine.script.NameCapture()
	t.emit(SpeakerUser, text)
	name := t.engine.script.NormalizeName(text)
	if name == "" {
		t.emit(SpeakerAssistant, capture.Reprompt)
		return
	}
	t.state.UserName = name
	t.emit(SpeakerAssistant, capture.Greeting)
	t.enter(capture.Next)
}

// enter moves to the next stage and plays its entry lines. Self-loops replay nothing.
func (t *transition) enter(next StageID) {
	if next == t.state.Stage {
		return
	}
	t.state.Stage = next
	stage, err := t.engine.script.Stage(next)
	if err != nil {
		return
	}
	for _, msg := range stage.OnEnter {
		t.emit(msg.Speaker, msg.Text)
	}
}
