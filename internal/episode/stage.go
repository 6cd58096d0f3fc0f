package episode

// StageID identifies a narrative stage. The set of valid ids is closed per [Script] and checked when the script
// is loaded.
type StageID string

// ActionID identifies a predefined choice within a stage.
type ActionID string

// BadgeID identifies an achievement.
type BadgeID string

// PanelID identifies an evidence panel backed by a data table.
type PanelID string

// Speaker is the author of a transcript message.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerSystem    Speaker = "system"
)

// Message is a single transcript line.
type Message struct {
	Speaker Speaker `yaml:"speaker" json:"speaker"`
	Text    string  `yaml:"text"    json:"text"`
}

// Panel is an evidence panel declared by a script.
type Panel struct {
	ID    PanelID `yaml:"id"    json:"id"`
	Title string  `yaml:"title" json:"title"`
}

// Badge is an achievement declared by a script.
type Badge struct {
	ID    BadgeID `yaml:"id"    json:"id"`
	Title string  `yaml:"title" json:"title"`
}

// Resolution settles the most recent open hypothesis.
type Resolution struct {
	Verified bool   `yaml:"verified"`
	Result   string `yaml:"result"`
}

// TransitionRule describes what happens when a predefined choice is taken in a stage.
type TransitionRule struct {
	ID    ActionID `yaml:"id"`
	Label string   `yaml:"label"`
	// Say is the player's transcript line. Label is used when empty.
	Say    string    `yaml:"say"`
	Reply  []string  `yaml:"reply"`
	Next   StageID   `yaml:"next"`
	Score  int       `yaml:"score"`
	Badges []BadgeID `yaml:"badges"`
	// Hypothesis is committed to the hypothesis log when non-empty.
	Hypothesis string      `yaml:"hypothesis"`
	Resolve    *Resolution `yaml:"resolve"`
}

func (r TransitionRule) userLine() string {
	if r.Say != "" {
		return r.Say
	}
	return r.Label
}

// StageDefinition is the static content of one stage.
type StageDefinition struct {
	ID       StageID `yaml:"id"`
	Title    string  `yaml:"title"`
	Progress int     `yaml:"progress"`
	// Context is handed to the chat completer to describe the current situation.
	Context   string           `yaml:"context"`
	FreeChat  bool             `yaml:"free_chat"`
	Terminal  bool             `yaml:"terminal"`
	OnEnter   []Message        `yaml:"on_enter"`
	Panels    []PanelID        `yaml:"panels"`
	Highlight []PanelID        `yaml:"highlight"`
	Hints     []string         `yaml:"hints"`
	Actions   []TransitionRule `yaml:"actions"`
}
