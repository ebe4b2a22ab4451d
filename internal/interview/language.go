package interview

import (
	"regexp"
	"strings"
)

// Language is a BCP-47-ish language code used on the output side.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// LanguageAction describes what the controller decided for one user input.
type LanguageAction string

const (
	ActionNone          LanguageAction = "none"
	ActionSwitchToHindi LanguageAction = "switch_to_hindi"
	ActionRevertEnglish LanguageAction = "revert_to_english"
)

// hindiSwitchPatterns match explicit requests for a Hindi explanation.
// They cover both romanized Hindi ("hindi mein samjhao") and English phrasing.
var hindiSwitchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`hindi\s+m(?:e|ei)n\s+(?:samjh|bata|explain)`),
	regexp.MustCompile(`can\s+you\s+explain\s+(?:this\s+)?in\s+hindi`),
	regexp.MustCompile(`explain\s+(?:again\s+)?(?:but\s+)?in\s+hindi`),
	regexp.MustCompile(`hindi\s+m(?:e|ei)n\s+samjha\s*(?:do|o|iye)`),
	regexp.MustCompile(`mujhe\s+hindi\s+m(?:e|ei)n`),
	regexp.MustCompile(`please\s+(?:say|tell|explain)\s+in\s+hindi`),
}

// englishRevertPatterns match requests to go back to English.
var englishRevertPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:ok|okay|alright|fine|haan)\s*,?\s*(?:english|eng)`),
	regexp.MustCompile(`(?:let'?s?\s+)?continue\s+in\s+english`),
	regexp.MustCompile(`back\s+to\s+english`),
	regexp.MustCompile(`english\s+m(?:e|ei)n`),
}

// LanguageSwitch records one switch into explanation mode.
type LanguageSwitch struct {
	QuestionID int    `json:"question_id"`
	Direction  string `json:"direction"`
}

// LanguageDecision is the controller's verdict for a single user input.
type LanguageDecision struct {
	Action          LanguageAction
	ExplanationMode bool
	OutputLanguage  Language
}

// LanguageController manages the session's output language. The primary
// language is locked at session start; switching to Hindi happens only on an
// explicit request and reverts either on request or automatically after the
// explanation turn. Not safe for concurrent use.
type LanguageController struct {
	primary         Language
	explanation     Language
	explanationMode bool
	switchCount     int
	switchHistory   []LanguageSwitch
}

// NewLanguageController creates a controller with the given primary language.
func NewLanguageController(primary Language) *LanguageController {
	return &LanguageController{
		primary:     primary,
		explanation: LanguageHindi,
	}
}

// Primary returns the locked interview language.
func (c *LanguageController) Primary() Language { return c.primary }

// ExplanationMode reports whether a Hindi explanation is in progress.
func (c *LanguageController) ExplanationMode() bool { return c.explanationMode }

// SwitchCount returns how often explanation mode was entered.
func (c *LanguageController) SwitchCount() int { return c.switchCount }

// SwitchHistory returns the recorded switches, oldest first.
func (c *LanguageController) SwitchHistory() []LanguageSwitch { return c.switchHistory }

// OutputLanguage returns the language responses should currently use.
func (c *LanguageController) OutputLanguage() Language {
	if c.explanationMode {
		return c.explanation
	}
	return c.primary
}

// detectSwitch reports whether text explicitly requests a Hindi explanation.
func detectSwitch(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, p := range hindiSwitchPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// detectRevert reports whether text asks to go back to English.
func detectRevert(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, p := range englishRevertPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// Observe processes one user input and returns the language decision for the
// upcoming response.
func (c *LanguageController) Observe(text string, questionID int) LanguageDecision {
	if c.explanationMode {
		if detectRevert(text) {
			c.explanationMode = false
			return LanguageDecision{Action: ActionRevertEnglish, OutputLanguage: c.primary}
		}
		return LanguageDecision{Action: ActionNone, ExplanationMode: true, OutputLanguage: c.explanation}
	}
	if detectSwitch(text) {
		c.Activate(questionID)
		return LanguageDecision{Action: ActionSwitchToHindi, ExplanationMode: true, OutputLanguage: c.explanation}
	}
	return LanguageDecision{Action: ActionNone, OutputLanguage: c.primary}
}

// Activate enters explanation mode and records the switch.
func (c *LanguageController) Activate(questionID int) {
	c.explanationMode = true
	c.switchCount++
	c.switchHistory = append(c.switchHistory, LanguageSwitch{
		QuestionID: questionID,
		Direction:  "to_hindi",
	})
}

// AutoRevert leaves explanation mode after the explanation has been given and
// returns the bridge line spoken in the primary language.
func (c *LanguageController) AutoRevert() string {
	c.explanationMode = false
	return "Let's continue with the interview."
}
