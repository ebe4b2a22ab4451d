package asr

import (
	"regexp"
	"strings"
)

// Character-class patterns used for script detection.
var (
	devanagariPattern = regexp.MustCompile(`[\x{0900}-\x{097F}]`)
	latinPattern      = regexp.MustCompile(`[a-zA-Z]`)
)

// hinglishMarkers are common Hindi words in romanized form. A high density
// of these in Latin-script text indicates code-mixed Hinglish.
var hinglishMarkers = map[string]bool{
	"hai": true, "hain": true, "nahi": true, "kya": true, "mein": true,
	"aur": true, "ka": true, "ki": true, "ke": true, "ko": true, "se": true,
	"par": true, "yeh": true, "woh": true, "hum": true, "tum": true,
	"aap": true, "kaise": true, "kyun": true, "kab": true, "kahan": true,
	"kaun": true, "lekin": true, "agar": true, "toh": true, "bhi": true,
	"abhi": true, "bahut": true, "accha": true, "theek": true, "haan": true,
	"ji": true, "matlab": true, "padhai": true, "paisa": true, "kaam": true,
	"desh": true, "ghar": true, "wapas": true, "samjh": true, "bata": true,
	"chalo": true, "dekho": true, "suno": true, "mujhe": true, "unka": true,
	"unki": true, "main": true, "hoon": true, "raha": true, "rahi": true,
	"rahe": true, "kar": true, "karna": true, "chahta": true, "chahti": true,
	"chahte": true, "tha": true, "thi": true, "the": true, "kuch": true,
	"sab": true, "apna": true, "apni": true, "apne": true, "isko": true,
	"usko": true, "mera": true, "meri": true, "mere": true, "tera": true,
	"teri": true, "tere": true,
}

// DetectLanguage classifies transcribed text as "en", "hi" or "mixed" using
// script ratios and romanized-Hindi marker density. No model involved.
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return "en"
	}

	devanagari := len(devanagariPattern.FindAllString(text, -1))
	latin := len(latinPattern.FindAllString(text, -1))
	total := devanagari + latin
	if total == 0 {
		return "en"
	}

	ratio := float64(devanagari) / float64(total)
	if ratio > 0.7 {
		return "hi"
	}
	if ratio < 0.1 {
		words := strings.Fields(strings.ToLower(text))
		if len(words) == 0 {
			return "en"
		}
		var markers int
		for _, w := range words {
			if hinglishMarkers[strings.Trim(w, ".,!?")] {
				markers++
			}
		}
		if float64(markers)/float64(len(words)) > 0.3 {
			return "mixed"
		}
		return "en"
	}
	return "mixed"
}
