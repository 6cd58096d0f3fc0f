package episode

import (
	"maps"
	"slices"
)

// Hypothesis is an entry in the player's hypothesis log.
type Hypothesis struct {
	Text     string `json:"text"`
	Verified bool   `json:"verified"`
	// Result is empty while the hypothesis is still open.
	Result string `json:"result,omitempty"`
}

// SessionState holds the facts of one play-through.
//
// Values are treated as immutable by [Engine.Apply], which always works on a [SessionState.Clone].
type SessionState struct {
	Stage      StageID         `json:"stage"`
	Score      int             `json:"score"`
	Badges     []BadgeID       `json:"badges"`
	Hypotheses []Hypothesis    `json:"hypotheses"`
	HintsUsed  map[StageID]int `json:"hints_used"`
	Messages   []Message       `json:"messages"`
	// UserName is empty until the player has introduced themselves.
	UserName string `json:"user_name,omitempty"`
}

// Clone returns a deep copy of the state.
func (s SessionState) Clone() SessionState {
	hints := make(map[StageID]int, len(s.HintsUsed))
	maps.Copy(hints, s.HintsUsed)
	return SessionState{
		Stage:      s.Stage,
		Score:      s.Score,
		Badges:     slices.Clone(s.Badges),
		Hypotheses: slices.Clone(s.Hypotheses),
		HintsUsed:  hints,
		Messages:   slices.Clone(s.Messages),
		UserName:   s.UserName,
	}
}

// HasBadge reports whether the badge was already awarded.
func (s SessionState) HasBadge(id BadgeID) bool {
	return slices.Contains(s.Badges, id)
}

// award adds the badge unless already present and reports whether it was new.
func (s *SessionState) award(id BadgeID) bool {
	if s.HasBadge(id) {
		return false
	}
	s.Badges = append(s.Badges, id)
	return true
}

// resolveLatest settles the most recent open hypothesis, if any.
func (s *SessionState) resolveLatest(resolution Resolution) {
	for i := len(s.Hypotheses) - 1; i >= 0; i-- {
		if s.Hypotheses[i].Result == "" {
			s.Hypotheses[i].Verified = resolution.Verified
			s.Hypotheses[i].Result = resolution.Result
			return
		}
	}
}

// recentTurns returns the last n user and assistant messages as completion turns.
func (s SessionState) recentTurns(n int) []Turn {
	turns := make([]Turn, 0, n)
	for i := len(s.Messages) - 1; i >= 0 && len(turns) < n; i-- {
		msg := s.Messages[i]
		if msg.Speaker == SpeakerSystem {
			continue
		}
		turns = append(turns, Turn{Role: msg.Speaker, Content: msg.Text})
	}
	slices.Reverse(turns)
	return turns
}
