package interview

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
)

// Claim is a factual statement extracted from an answer, keyed by topic.
type Claim struct {
	QuestionID int    `json:"question_id"`
	Category   string `json:"category"`
	Topic      string `json:"topic"`
	Value      string `json:"value"`
	RawAnswer  string `json:"raw_answer"`
}

// Contradiction pairs two claims about the same topic that cannot both hold.
type Contradiction struct {
	ClaimA Claim  `json:"claim_a"`
	ClaimB Claim  `json:"claim_b"`
	Reason string `json:"reason"`
}

// claimExtractors maps each tracked topic to its extraction patterns. The
// first matching pattern wins, one claim per topic per answer.
var claimExtractors = []struct {
	topic    string
	patterns []*regexp.Regexp
}{
	{"sponsor", []*regexp.Regexp{
		regexp.MustCompile(`(?:my\s+)?(?:father|mother|dad|mom|parent|uncle|aunt|brother|sister|sponsor)\s+(?:is|will)\s+(?:paying|funding|sponsoring)`),
		regexp.MustCompile(`(?:sponsor(?:ed)?|fund(?:ed)?)\s+by\s+(?:my\s+)?(\w+)`),
	}},
	{"return_plan", []*regexp.Regexp{
		regexp.MustCompile(`(?:i\s+will|i\s+plan\s+to|i\s+want\s+to)\s+(return|come\s+back|go\s+back|stay|settle|remain)`),
	}},
	{"income", []*regexp.Regexp{
		regexp.MustCompile(`(?:income|salary|earning).*?(\d[\d,]+)`),
		regexp.MustCompile(`(\d[\d,]+).*?(?:per\s+(?:month|year|annum))`),
	}},
	{"degree", []*regexp.Regexp{
		regexp.MustCompile(`(?:i\s+(?:have|completed|did|studied))\s+(?:a\s+)?(?:bachelor|master|btech|bsc|msc|mba|phd|diploma)`),
		regexp.MustCompile(`(?:bachelor|master|btech|bsc|msc|mba|phd|diploma)(?:'?s?)?\s+(?:in|of)\s+(\w[\w\s]+)`),
	}},
}

var familyMembers = []string{"father", "mother", "uncle", "aunt", "brother", "sister", "parent"}

var numberPattern = regexp.MustCompile(`(\d[\d,]*)`)

// Tracker records claims across answers and flags contradictions between
// them. Not safe for concurrent use.
type Tracker struct {
	claims         []Claim
	contradictions []Contradiction
}

// NewTracker creates an empty contradiction tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Track extracts claims from an answer, compares them against all earlier
// claims on the same topic from other questions, and returns the
// contradictions found in this answer. Extracted claims are always recorded,
// contradictory or not.
func (t *Tracker) Track(questionID int, category, answer string) []Contradiction {
	var found []Contradiction
	lower := strings.ToLower(answer)

	for _, extractor := range claimExtractors {
		for _, p := range extractor.patterns {
			m := p.FindString(lower)
			if m == "" {
				continue
			}
			claim := Claim{
				QuestionID: questionID,
				Category:   category,
				Topic:      extractor.topic,
				Value:      m,
				RawAnswer:  answer,
			}
			for _, prior := range t.claims {
				if prior.Topic != extractor.topic || prior.QuestionID == questionID {
					continue
				}
				if c := checkContradiction(prior, claim); c != nil {
					t.contradictions = append(t.contradictions, *c)
					found = append(found, *c)
				}
			}
			t.claims = append(t.claims, claim)
			break
		}
	}
	return found
}

// HasContradictions reports whether any contradiction was detected so far.
func (t *Tracker) HasContradictions() bool { return len(t.contradictions) > 0 }

// All returns a copy of every contradiction detected so far.
func (t *Tracker) All() []Contradiction {
	out := make([]Contradiction, len(t.contradictions))
	copy(out, t.contradictions)
	return out
}

// Claims returns the recorded claims, oldest first.
func (t *Tracker) Claims() []Claim { return t.claims }

func checkContradiction(a, b Claim) *Contradiction {
	switch a.Topic {
	case "return_plan":
		return checkReturnPlan(a, b)
	case "sponsor":
		return checkSponsor(a, b)
	case "income":
		return checkIncome(a, b)
	}
	return nil
}

func checkReturnPlan(a, b Claim) *Contradiction {
	stayWords := []string{"stay", "settle", "remain"}
	returnWords := []string{"return", "come back", "go back"}

	containsAny := func(s string, words []string) bool {
		for _, w := range words {
			if strings.Contains(s, w) {
				return true
			}
		}
		return false
	}

	aStay, aReturn := containsAny(a.Value, stayWords), containsAny(a.Value, returnWords)
	bStay, bReturn := containsAny(b.Value, stayWords), containsAny(b.Value, returnWords)

	if (aStay && bReturn) || (aReturn && bStay) {
		return &Contradiction{ClaimA: a, ClaimB: b, Reason: "Contradictory return/stay intentions detected"}
	}
	return nil
}

// familyMentions returns the canonical family members named in a claim value.
// Matching is fuzzy (edit distance 1) to tolerate speech-recognition noise
// like "fathers" or "mothar".
func familyMentions(value string) map[string]bool {
	out := make(map[string]bool)
	for _, word := range strings.Fields(value) {
		for _, member := range familyMembers {
			if word == member || matchr.Levenshtein(word, member) <= 1 {
				out[member] = true
				break
			}
		}
	}
	return out
}

func sameStringSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func checkSponsor(a, b Claim) *Contradiction {
	if a.Value == b.Value {
		return nil
	}
	aFam, bFam := familyMentions(a.Value), familyMentions(b.Value)
	if len(aFam) > 0 && len(bFam) > 0 && !sameStringSet(aFam, bFam) {
		return &Contradiction{ClaimA: a, ClaimB: b, Reason: "Different financial sponsors mentioned in different answers"}
	}
	return nil
}

func firstNumber(text string) (int, bool) {
	m := numberPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

func checkIncome(a, b Claim) *Contradiction {
	aNum, aOK := firstNumber(a.Value)
	bNum, bOK := firstNumber(b.Value)
	if !aOK || !bOK || aNum == 0 || bNum == 0 {
		return nil
	}
	hi, lo := aNum, bNum
	if bNum > aNum {
		hi, lo = bNum, aNum
	}
	if lo < 1 {
		lo = 1
	}
	if float64(hi)/float64(lo) > 2.0 {
		return &Contradiction{
			ClaimA: a, ClaimB: b,
			Reason: fmt.Sprintf("Significantly different income figures: %d vs %d", aNum, bNum),
		}
	}
	return nil
}
