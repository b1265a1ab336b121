package fallback

import (
	"fmt"
	"regexp"
	"strings"

	"gameforge/internal/model"
	"gameforge/internal/prompt"
)

// DemoNotice is returned for tasks without a dedicated mock template.
const DemoNotice = "Contenu généré en mode démo (configurez la clé API pour utiliser l'IA)."

const (
	defaultMockCharacters = 3
	defaultMockLocations  = 4
)

var (
	titlePrefixes = []string{"Les Chroniques de", "La Légende de", "L'Aventure de", "Les Secrets de"}
	titleSuffixes = []string{"l'Ombre", "la Lumière", "l'Éternité", "Azura", "Nexus"}

	worlds = []string{
		"un archipel suspendu au-dessus d'un océan de brume",
		"une mégalopole verticale rongée par la corruption",
		"un royaume fracturé par une guerre de mille ans",
		"une planète colonisée dont les ruines murmurent",
		"une forêt infinie où le temps s'écoule autrement",
	}
	threats = []string{
		"une ancienne puissance se réveille",
		"un empire implacable étend son emprise",
		"une épidémie transforme les habitants",
		"les astres se désalignent un à un",
		"un artefact oublié attire toutes les convoitises",
	}
	atmospheres = []string{
		"Les factions rivales se disputent les dernières ressources.",
		"Chaque région possède ses propres lois et ses propres légendes.",
		"La magie et la technologie y cohabitent difficilement.",
		"Les voyageurs y racontent des histoires que personne ne croit.",
	}
	palettes = []string{
		"tons pourpres et dorés",
		"bleus glacés et reflets d'argent",
		"rouges sombres et noirs profonds",
		"verts émeraude et lumière dorée",
		"néons cyan et magenta sous la pluie",
	}
	compositions = []string{
		"le héros de dos face à l'horizon",
		"une silhouette au premier plan, la cité en arrière-plan",
		"un duel au centre sous un ciel tourmenté",
		"un groupe d'aventuriers au sommet d'une falaise",
	}

	moodMention = regexp.MustCompile(`(?i)ambiance:?\s+(\p{L}+)`)
)

// MockText returns deterministic placeholder content for req. The same prompt
// text always yields the same output.
func MockText(req prompt.Request) string {
	seq := NewSequence(req.Text)
	mood := moodOf(req.Text)

	switch req.Task {
	case prompt.TaskTitle:
		return MockTitle(req.Text)
	case prompt.TaskUniverse:
		return fmt.Sprintf("Le jeu se déroule dans %s, où %s.\n\n%s",
			Pick(seq, worlds), Pick(seq, threats), Pick(seq, atmospheres))
	case prompt.TaskScenario:
		return mockScenario(seq)
	case prompt.TaskCharacters:
		return mockCharacters(req, mood)
	case prompt.TaskLocations:
		return mockLocations(req, mood)
	case prompt.TaskImageDescription, prompt.TaskCoverArt:
		return fmt.Sprintf("Peinture numérique représentant %s dans %s. Couleurs dominantes: %s.",
			Pick(seq, compositions), Pick(seq, worlds), Pick(seq, palettes))
	default:
		return DemoNotice
	}
}

// MockTitle returns a deterministic title for key.
func MockTitle(key string) string {
	seq := NewSequence(key)
	return Pick(seq, titlePrefixes) + " " + Pick(seq, titleSuffixes)
}

func moodOf(text string) model.Mood {
	if m := moodMention.FindStringSubmatch(text); m != nil {
		return model.Mood(m[1]).Normalized()
	}
	return ""
}

func mockScenario(seq *Sequence) string {
	return strings.Join([]string{
		fmt.Sprintf("1. ACTE 1: Dans %s, le héros apprend que %s.", Pick(seq, worlds), Pick(seq, threats)),
		fmt.Sprintf("2. ACTE 2: Le héros traverse %s et rassemble des alliés.", Pick(seq, worlds)),
		"3. ACTE 3: Au terme d'un affrontement décisif, le héros met fin à la menace.",
		fmt.Sprintf("4. TWIST: Le véritable responsable était un allié de confiance, et %s.", Pick(seq, threats)),
	}, "\n\n")
}

func mockCharacters(req prompt.Request, mood model.Mood) string {
	count := req.Count
	if count <= 0 {
		count = defaultMockCharacters
	}
	used := make(map[string]bool, count)
	blocks := make([]string, 0, count)
	for slot := 0; slot < count; slot++ {
		var c model.CharacterRecord
		for redraw := 0; redraw <= maxNameRedraws; redraw++ {
			c = buildCharacter(slotKey(req.Text, slot, redraw), mood)
			if !used[c.Name] {
				break
			}
		}
		used[c.Name] = true
		blocks = append(blocks, fmt.Sprintf(
			"NOM: %s\nROLE: %s\nCLASSE: %s\nPERSONNALITE: %s\nBACKGROUND: %s\nAPPARENCE: %s\nCOMPETENCES: %s\nGAMEPLAY: %s",
			c.Name, c.Role, c.Class, c.Personality, c.Background, c.Appearance, c.Skills, c.Gameplay))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

func mockLocations(req prompt.Request, mood model.Mood) string {
	count := req.Count
	if count <= 0 {
		count = defaultMockLocations
	}
	used := make(map[string]bool, count)
	blocks := make([]string, 0, count)
	for slot := 0; slot < count; slot++ {
		var l model.LocationRecord
		for redraw := 0; redraw <= maxNameRedraws; redraw++ {
			l = buildLocation(slotKey(req.Text, slot, redraw), mood)
			if !used[l.Name] {
				break
			}
		}
		used[l.Name] = true
		blocks = append(blocks, fmt.Sprintf(
			"NOM: %s\nTYPE: %s\nDESCRIPTION: %s\nIMPORTANCE: %s\nDANGERS: %s\nTRESORS: %s",
			l.Name, l.Type, l.Description, l.Importance, l.Dangers, l.Treasure))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}
