package episode

import (
	"github.com/myrjola/kastor/internal/errors"
	"log/slog"
	"slices"
)

const maxProgress = 100

// reservedActionIDs name player commands and cannot be used as choice ids.
var reservedActionIDs = []ActionID{"say", "hint", "retry", "skip", "restart"}

// validate checks referential integrity and the structural invariants of the stage graph. Every problem found is
// reported, joined into one error matching [ErrInvalidScript].
func (s *Script) validate() error {
	var problems []error
	problem := func(msg string, attrs ...slog.Attr) {
		problems = append(problems, errors.Wrap(ErrInvalidScript, msg, attrs...))
	}

	if len(s.doc.Stages) == 0 {
		problem("script has no stages")
		return errors.Join(problems...)
	}

	seenPanels := make(map[PanelID]bool)
	for _, panel := range s.doc.Panels {
		if panel.ID == "" {
			problem("panel without id")
		}
		if seenPanels[panel.ID] {
			problem("duplicate panel", slog.String("panel", string(panel.ID)))
		}
		seenPanels[panel.ID] = true
	}
	seenBadges := make(map[BadgeID]bool)
	for _, badge := range s.doc.Badges {
		if badge.ID == "" {
			problem("badge without id")
		}
		if seenBadges[badge.ID] {
			problem("duplicate badge", slog.String("badge", string(badge.ID)))
		}
		seenBadges[badge.ID] = true
	}

	if _, ok := s.stages[s.doc.Initial]; !ok {
		problem("initial stage is not defined", slog.String("stage", string(s.doc.Initial)))
	}

	terminals := 0
	seenStages := make(map[StageID]bool)
	for _, stage := range s.doc.Stages {
		stageAttr := slog.String("stage", string(stage.ID))
		if stage.ID == "" {
			problem("stage without id")
		}
		if seenStages[stage.ID] {
			problem("duplicate stage", stageAttr)
		}
		seenStages[stage.ID] = true
		if stage.Progress < 0 || stage.Progress > maxProgress {
			problem("progress out of range", stageAttr, slog.Int("progress", stage.Progress))
		}
		for _, panel := range stage.Panels {
			if !seenPanels[panel] {
				problem("undefined panel", stageAttr, slog.String("panel", string(panel)))
			}
		}
		for _, panel := range stage.Highlight {
			if !slices.Contains(stage.Panels, panel) {
				problem("highlighted panel is not visible", stageAttr, slog.String("panel", string(panel)))
			}
		}
		if stage.Terminal {
			terminals++
			if len(stage.Actions) > 0 || stage.FreeChat || len(stage.Hints) > 0 {
				problem("terminal stage must not offer actions", stageAttr)
			}
		}
		for _, msg := range stage.OnEnter {
			switch msg.Speaker {
			case SpeakerUser, SpeakerAssistant, SpeakerSystem:
			default:
				problem("unknown speaker", stageAttr, slog.String("speaker", string(msg.Speaker)))
			}
		}
		if stage.FreeChat && s.doc.SkipApology == "" {
			problem("free chat requires a skip apology", stageAttr)
		}
		problems = append(problems, s.validateRules(stage, seenBadges)...)
	}
	if terminals != 1 {
		problem("script must have exactly one terminal stage", slog.Int("terminals", terminals))
	}

	if capture := s.doc.NameCapture; capture.Next != "" {
		if _, ok := s.stages[capture.Next]; !ok {
			problem("name capture targets undefined stage", slog.String("next", string(capture.Next)))
		}
		if capture.Greeting == "" || capture.Reprompt == "" {
			problem("name capture needs a greeting and a reprompt")
		}
		if initial, ok := s.stages[s.doc.Initial]; ok && !initial.FreeChat {
			problem("name capture requires free chat in the initial stage", slog.String("stage", string(s.doc.Initial)))
		}
		if capture.MinLength < 1 {
			problem("name capture minimum length must be positive", slog.Int("min_length", capture.MinLength))
		}
	}

	// Graph checks only make sense once every reference resolves.
	if len(problems) > 0 {
		return errors.Join(problems...)
	}
	problems = append(problems, s.validateGraph()...)
	return errors.Join(problems...)
}

func (s *Script) validateRules(stage StageDefinition, badges map[BadgeID]bool) []error {
	var problems []error
	stageAttr := slog.String("stage", string(stage.ID))
	seen := make(map[ActionID]bool, len(stage.Actions))
	for _, rule := range stage.Actions {
		actionAttr := slog.String("action", string(rule.ID))
		if rule.ID == "" || rule.Label == "" {
			problems = append(problems, errors.Wrap(ErrInvalidScript, "action needs an id and a label",
				stageAttr, actionAttr))
		}
		if seen[rule.ID] {
			problems = append(problems, errors.Wrap(ErrInvalidScript, "duplicate action", stageAttr, actionAttr))
		}
		seen[rule.ID] = true
		if slices.Contains(reservedActionIDs, rule.ID) {
			problems = append(problems, errors.Wrap(ErrInvalidScript, "reserved action id", stageAttr, actionAttr))
		}
		if _, ok := s.stages[rule.Next]; !ok {
			problems = append(problems, errors.Wrap(ErrInvalidScript, "transition targets undefined stage",
				stageAttr, actionAttr, slog.String("next", string(rule.Next))))
		}
		if rule.Score < 0 {
			problems = append(problems, errors.Wrap(ErrInvalidScript, "negative score delta",
				stageAttr, actionAttr, slog.Int("score", rule.Score)))
		}
		if rule.Resolve != nil && rule.Resolve.Result == "" {
			problems = append(problems, errors.Wrap(ErrInvalidScript, "resolution without result", stageAttr, actionAttr))
		}
		for _, badge := range rule.Badges {
			if !badges[badge] {
				problems = append(problems, errors.Wrap(ErrInvalidScript, "undefined badge",
					stageAttr, actionAttr, slog.String("badge", string(badge))))
			}
		}
	}
	return problems
}

// edges returns the stages reachable from a stage in one step, excluding self-loops.
func (s *Script) edges(id StageID) []StageID {
	var next []StageID
	if capture := s.doc.NameCapture; capture.Next != "" && id == s.doc.Initial && capture.Next != id &&
		s.stages[id].FreeChat {
		next = append(next, capture.Next)
	}
	for _, rule := range s.stages[id].Actions {
		if rule.Next != id && !slices.Contains(next, rule.Next) {
			next = append(next, rule.Next)
		}
	}
	return next
}

func (s *Script) validateGraph() []error {
	var problems []error
	for _, stage := range s.doc.Stages {
		stageAttr := slog.String("stage", string(stage.ID))
		next := s.edges(stage.ID)
		if !stage.Terminal && len(next) == 0 {
			problems = append(problems, errors.Wrap(ErrInvalidScript, "dead end stage", stageAttr))
		}
		// Evidence never disappears when the story moves forward.
		for _, target := range next {
			for _, panel := range stage.Panels {
				if !slices.Contains(s.stages[target].Panels, panel) {
					problems = append(problems, errors.Wrap(ErrInvalidScript, "panel hidden by transition",
						stageAttr, slog.String("next", string(target)), slog.String("panel", string(panel))))
				}
			}
		}
	}

	reachable := map[StageID]bool{s.doc.Initial: true}
	queue := []StageID{s.doc.Initial}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range s.edges(current) {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}
	for _, stage := range s.doc.Stages {
		if !reachable[stage.ID] {
			problems = append(problems, errors.Wrap(ErrInvalidScript, "unreachable stage",
				slog.String("stage", string(stage.ID))))
		}
	}
	return problems
}
