package episode

import "slices"

// Choice is a predefined action offered to the player.
type Choice struct {
	ID    ActionID `json:"id"`
	Label string   `json:"label"`
}

// PanelView is a visible evidence panel.
type PanelView struct {
	ID          PanelID `json:"id"`
	Title       string  `json:"title"`
	Highlighted bool    `json:"highlighted"`
}

// View is the read-only projection of a session state that presentation layers render.
type View struct {
	EpisodeTitle   string       `json:"episode_title"`
	Stage          StageID      `json:"stage"`
	StageTitle     string       `json:"stage_title"`
	Progress       int          `json:"progress"`
	Panels         []PanelView  `json:"panels"`
	Messages       []Message    `json:"messages"`
	Score          int          `json:"score"`
	Badges         []Badge      `json:"badges"`
	Hypotheses     []Hypothesis `json:"hypotheses"`
	Choices        []Choice     `json:"choices"`
	AllowsChat     bool         `json:"allows_chat"`
	HintsRemaining int          `json:"hints_remaining"`
	Terminal       bool         `json:"terminal"`
	UserName       string       `json:"user_name,omitempty"`
}

// View projects state for rendering. Evidence visibility is recomputed from the stage every time.
func (e *Engine) View(state SessionState) View {
	view := View{
		EpisodeTitle:   e.script.Title(),
		Stage:          state.Stage,
		StageTitle:     "",
		Progress:       0,
		Panels:         nil,
		Messages:       slices.Clone(state.Messages),
		Score:          state.Score,
		Badges:         make([]Badge, 0, len(state.Badges)),
		Hypotheses:     slices.Clone(state.Hypotheses),
		Choices:        nil,
		AllowsChat:     false,
		HintsRemaining: 0,
		Terminal:       false,
		UserName:       state.UserName,
	}
	for _, id := range state.Badges {
		if badge, ok := e.script.Badge(id); ok {
			view.Badges = append(view.Badges, badge)
		}
	}
	highlighted := e.script.HighlightedPanels(state.Stage)
	for _, id := range e.script.VisiblePanels(state.Stage) {
		if panel, ok := e.script.Panel(id); ok {
			view.Panels = append(view.Panels, PanelView{
				ID:          panel.ID,
				Title:       panel.Title,
				Highlighted: slices.Contains(highlighted, id),
			})
		}
	}

	stage, err := e.script.Stage(state.Stage)
	if err != nil {
		return view
	}
	view.StageTitle = stage.Title
	view.Progress = stage.Progress
	view.AllowsChat = stage.FreeChat
	view.Terminal = stage.Terminal
	view.HintsRemaining = max(len(stage.Hints)-state.HintsUsed[stage.ID], 0)
	for _, rule := range stage.Actions {
		view.Choices = append(view.Choices, Choice{ID: rule.ID, Label: rule.Label})
	}
	return view
}
