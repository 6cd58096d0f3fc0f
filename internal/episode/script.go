package episode

import (
	"embed"
	"github.com/myrjola/kastor/internal/errors"
	"gopkg.in/yaml.v3"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
)

//go:embed content/*.yaml
var content embed.FS

// DefaultScript is the name of the embedded episode used when no script is configured.
const DefaultScript = "shadow-anomaly"

// NameCapture configures how the player's first free-text message in the initial stage becomes their name.
type NameCapture struct {
	Next      StageID  `yaml:"next"`
	Greeting  string   `yaml:"greeting"`
	Reprompt  string   `yaml:"reprompt"`
	Suffixes  []string `yaml:"suffixes"`
	Trim      string   `yaml:"trim"`
	MinLength int      `yaml:"min_length"`
}

type scriptDocument struct {
	ID          string            `yaml:"id"`
	Title       string            `yaml:"title"`
	Initial     StageID           `yaml:"initial"`
	Persona     string            `yaml:"persona"`
	SkipApology string            `yaml:"skip_apology"`
	NameCapture NameCapture       `yaml:"name_capture"`
	Panels      []Panel           `yaml:"panels"`
	Badges      []Badge           `yaml:"badges"`
	Stages      []StageDefinition `yaml:"stages"`
}

// Script is the read-only narrative content of one episode: ordered stages, their scripted lines, legal actions,
// hint ladders and evidence panels.
type Script struct {
	doc        scriptDocument
	stages     map[StageID]*StageDefinition
	ordinals   map[StageID]int
	rules      map[StageID]map[ActionID]TransitionRule
	panels     map[PanelID]Panel
	badges     map[BadgeID]Badge
	terminal   StageID
	normalizer NameNormalizer
}

// ParseScript decodes and validates a YAML episode script.
func ParseScript(data []byte) (*Script, error) {
	var doc scriptDocument
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.Join(ErrInvalidScript, err), "decode script")
	}
	if doc.NameCapture.MinLength == 0 {
		doc.NameCapture.MinLength = 1
	}

	s := &Script{
		doc:        doc,
		stages:     make(map[StageID]*StageDefinition, len(doc.Stages)),
		ordinals:   make(map[StageID]int, len(doc.Stages)),
		rules:      make(map[StageID]map[ActionID]TransitionRule, len(doc.Stages)),
		panels:     make(map[PanelID]Panel, len(doc.Panels)),
		badges:     make(map[BadgeID]Badge, len(doc.Badges)),
		terminal:   "",
		normalizer: NewNameNormalizer(doc.NameCapture.Suffixes, doc.NameCapture.Trim, doc.NameCapture.MinLength),
	}
	for i := range s.doc.Stages {
		stage := &s.doc.Stages[i]
		if _, ok := s.stages[stage.ID]; !ok {
			s.stages[stage.ID] = stage
			s.ordinals[stage.ID] = i
		}
		rules := make(map[ActionID]TransitionRule, len(stage.Actions))
		for _, rule := range stage.Actions {
			if _, ok := rules[rule.ID]; !ok {
				rules[rule.ID] = rule
			}
		}
		s.rules[stage.ID] = rules
		if stage.Terminal && s.terminal == "" {
			s.terminal = stage.ID
		}
	}
	for _, panel := range doc.Panels {
		s.panels[panel.ID] = panel
	}
	for _, badge := range doc.Badges {
		s.badges[badge.ID] = badge
	}

	if err := s.validate(); err != nil {
		return nil, errors.Wrap(err, "validate script", slog.String("script", doc.ID))
	}
	return s, nil
}

// LoadScript loads one of the embedded episode scripts by name, e.g. [DefaultScript].
func LoadScript(name string) (*Script, error) {
	data, err := content.ReadFile(path.Join("content", name+".yaml"))
	if err != nil {
		return nil, errors.Wrap(err, "read embedded script", slog.String("name", name))
	}
	return ParseScript(data)
}

// LoadScriptFile loads an episode script from the file system.
func LoadScriptFile(filename string) (*Script, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "read script file", slog.String("filename", filename))
	}
	return ParseScript(data)
}

// OpenScript loads a YAML file when ref looks like a path and an embedded script otherwise.
func OpenScript(ref string) (*Script, error) {
	if strings.HasSuffix(ref, ".yaml") || strings.HasSuffix(ref, ".yml") || strings.ContainsRune(ref, '/') {
		return LoadScriptFile(ref)
	}
	return LoadScript(ref)
}

// ID returns the script identifier.
func (s *Script) ID() string {
	return s.doc.ID
}

// Title returns the episode title.
func (s *Script) Title() string {
	return s.doc.Title
}

// Persona returns the instruction describing the companion to the chat completer.
func (s *Script) Persona() string {
	return s.doc.Persona
}

// InitialStage returns the stage every play-through starts in.
func (s *Script) InitialStage() StageID {
	return s.doc.Initial
}

// TerminalStage returns the single terminal stage.
func (s *Script) TerminalStage() StageID {
	return s.terminal
}

// Stage looks up the definition of a stage.
func (s *Script) Stage(id StageID) (StageDefinition, error) {
	stage, ok := s.stages[id]
	if !ok {
		return StageDefinition{}, errors.Wrap(ErrUnknownStage, "look up stage", slog.String("stage", string(id)))
	}
	return *stage, nil
}

// Stages returns the stage definitions in canonical order.
func (s *Script) Stages() []StageDefinition {
	return slices.Clone(s.doc.Stages)
}

// Ordinal returns the position of a stage in canonical order or -1 if the stage is unknown.
func (s *Script) Ordinal(id StageID) int {
	ordinal, ok := s.ordinals[id]
	if !ok {
		return -1
	}
	return ordinal
}

// HintLadder returns the ordered hints of a stage. Stages without a ladder and unknown stages return nil.
func (s *Script) HintLadder(id StageID) []string {
	stage, ok := s.stages[id]
	if !ok {
		return nil
	}
	return slices.Clone(stage.Hints)
}

// Rule returns the transition rule for a choice in a stage.
func (s *Script) Rule(stage StageID, action ActionID) (TransitionRule, bool) {
	rule, ok := s.rules[stage][action]
	return rule, ok
}

// Badge returns the badge declaration for id.
func (s *Script) Badge(id BadgeID) (Badge, bool) {
	badge, ok := s.badges[id]
	return badge, ok
}

// Panel returns the panel declaration for id.
func (s *Script) Panel(id PanelID) (Panel, bool) {
	panel, ok := s.panels[id]
	return panel, ok
}

// Panels returns every declared panel in declaration order.
func (s *Script) Panels() []Panel {
	return slices.Clone(s.doc.Panels)
}

// NameCapture returns the name capture configuration.
func (s *Script) NameCapture() NameCapture {
	return s.doc.NameCapture
}

// SkipApology returns the canned line used when the player skips a failed chat turn.
func (s *Script) SkipApology() string {
	return s.doc.SkipApology
}

// VisiblePanels returns the evidence panels unlocked in a stage. Unknown stages unlock nothing.
func (s *Script) VisiblePanels(id StageID) []PanelID {
	stage, ok := s.stages[id]
	if !ok {
		return []PanelID{}
	}
	return slices.Clone(stage.Panels)
}

// HighlightedPanels returns the panels the stage draws attention to.
func (s *Script) HighlightedPanels(id StageID) []PanelID {
	stage, ok := s.stages[id]
	if !ok {
		return []PanelID{}
	}
	return slices.Clone(stage.Highlight)
}

// NormalizeName reduces a raw name reply to the bare name using the script's name capture configuration.
func (s *Script) NormalizeName(raw string) string {
	return s.normalizer.Normalize(raw)
}
