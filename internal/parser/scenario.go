package parser

import (
	"regexp"
	"strings"

	"gameforge/internal/model"
)

// Default sentences used when a scenario position cannot be recovered.
const (
	DefaultAct1  = "Le héros découvre son destin."
	DefaultAct2  = "Le héros affronte des épreuves."
	DefaultAct3  = "Le héros triomphe du mal."
	DefaultTwist = "Un secret est révélé."
)

// labelWindow is how many leading runes are inspected for a section label.
const labelWindow = 30

var (
	blankLine = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)

	sectionLabels = []string{"ACTE", "TWIST", "Introduction", "Développement", "Climax"}
	// Checked in this order: the first one present anywhere in the paragraph wins.
	labelSeparators = []string{":", "-", "."}
)

// SegmentScenario splits a numbered narrative into act and twist fields.
// Missing positions fall back to fixed sentences.
func SegmentScenario(text string) model.ScenarioRecord {
	paragraphs := cleanParagraphs(StripEmphasis(text))

	pick := func(i int, def string) string {
		if i < len(paragraphs) {
			return paragraphs[i]
		}
		return def
	}
	return model.ScenarioRecord{
		Act1:  pick(0, DefaultAct1),
		Act2:  pick(1, DefaultAct2),
		Act3:  pick(2, DefaultAct3),
		Twist: pick(3, DefaultTwist),
	}
}

func cleanParagraphs(text string) []string {
	var out []string
	for _, p := range blankLine.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = strings.TrimLeft(p, "1234.- ")
		if !hasSectionLabel(p) {
			if p != "" {
				out = append(out, p)
			}
			continue
		}
		if rest, ok := afterSeparator(p); ok && rest != "" {
			out = append(out, rest)
		}
	}
	return out
}

func hasSectionLabel(p string) bool {
	head := p
	if runes := []rune(p); len(runes) > labelWindow {
		head = string(runes[:labelWindow])
	}
	for _, label := range sectionLabels {
		if strings.Contains(head, label) {
			return true
		}
	}
	return false
}

func afterSeparator(p string) (string, bool) {
	for _, sep := range labelSeparators {
		if _, rest, found := strings.Cut(p, sep); found {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}
