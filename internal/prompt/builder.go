package prompt

import (
	"fmt"
	"strings"

	"gameforge/internal/model"
)

// Task identifies a generation step. It selects the template, the token budget
// and the kind of mock content produced when the upstream model is unavailable.
type Task string

const (
	TaskTitle            Task = "title"
	TaskUniverse         Task = "universe"
	TaskScenario         Task = "scenario"
	TaskCharacters       Task = "characters"
	TaskLocations        Task = "locations"
	TaskImageDescription Task = "image_description"
	TaskCoverArt         Task = "cover_art"
)

// MaxTokens returns the completion budget of the task.
func (t Task) MaxTokens() int {
	switch t {
	case TaskTitle:
		return 50
	case TaskUniverse:
		return 400
	case TaskScenario:
		return 600
	case TaskCharacters:
		return 800
	case TaskLocations:
		return 700
	case TaskImageDescription:
		return 300
	default:
		return 500
	}
}

// Excerpt budgets, in runes, for universe text embedded in downstream prompts.
const (
	ScenarioExcerptLen   = 200
	CharacterExcerptLen  = 200
	LocationExcerptLen   = 150
	ImageExcerptLen      = 200
	CoverArtExcerptLen   = 250
	DefaultTitleKeywords = "aventure"
)

// SystemPrompt is sent with every text completion.
const SystemPrompt = "Tu es un créateur de jeux vidéo expert. Réponds de manière concise et créative en français."

// Request is a fully built prompt, ready for the completion layer.
type Request struct {
	Task      Task
	Text      string
	MaxTokens int
	// Count is the number of records asked for, zero for scalar tasks.
	Count int
}

func newRequest(task Task, text string, count int) Request {
	return Request{Task: task, Text: text, MaxTokens: task.MaxTokens(), Count: count}
}

// Excerpt truncates s to at most n runes.
func Excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// moodGuidance maps a mood to the instruction appended to record prompts.
var moodGuidance = map[model.Mood]string{
	model.MoodSombre:       "Ambiance sombre : personnages torturés, moralement ambigus, marqués par la perte. Lieux oppressants et dangereux.",
	model.MoodJoyeux:       "Ambiance joyeuse : personnages optimistes, chaleureux et pleins d'humour. Lieux colorés et accueillants.",
	model.MoodMysterieux:   "Ambiance mystérieuse : personnages énigmatiques aux motivations cachées. Lieux chargés de secrets et d'énigmes.",
	model.MoodEpique:       "Ambiance épique : personnages héroïques au destin grandiose. Lieux monumentaux et légendaires.",
	model.MoodHumoristique: "Ambiance humoristique : personnages décalés et maladroits, situations absurdes. Lieux farfelus.",
}

// MoodGuidance returns the constraint line for the mood, or "" when unknown.
func MoodGuidance(mood model.Mood) string {
	return moodGuidance[mood.Normalized()]
}

// contextLines renders the optional constraints shared by record prompts.
func contextLines(gctx model.GenerationContext, excerptLen int) string {
	var sb strings.Builder
	if gctx.Mood != "" {
		sb.WriteString(fmt.Sprintf("Ambiance: %s\n", gctx.Mood))
		if guidance := MoodGuidance(gctx.Mood); guidance != "" {
			sb.WriteString(guidance + "\n")
		}
	}
	if len(gctx.Keywords) > 0 {
		sb.WriteString(fmt.Sprintf("Intègre obligatoirement ces éléments: %s\n", strings.Join(gctx.Keywords, ", ")))
	}
	if gctx.UniverseDescription != "" {
		sb.WriteString(fmt.Sprintf("Univers: %s\n", Excerpt(gctx.UniverseDescription, excerptLen)))
		sb.WriteString("Les éléments générés doivent être cohérents avec cet univers.\n")
	}
	return sb.String()
}

// Title builds the single-title prompt.
func Title(genre model.Genre, mood model.Mood, keywords []string) Request {
	keywordsStr := DefaultTitleKeywords
	if len(keywords) > 0 {
		keywordsStr = strings.Join(keywords, ", ")
	}
	text := fmt.Sprintf(`Génère UN SEUL titre original et captivant pour un jeu vidéo %s avec une ambiance %s.
Mots-clés: %s

Réponds UNIQUEMENT avec le titre, sans guillemets, sans explication, sans introduction.

Titre:`, genre, mood, keywordsStr)
	return newRequest(TaskTitle, text, 0)
}

// Universe builds the world description prompt.
func Universe(title string, genre model.Genre, mood model.Mood, keywords []string) Request {
	text := fmt.Sprintf(`Décris l'univers d'un jeu vidéo intitulé "%s".
Genre: %s
Ambiance: %s
Éléments clés: %s

Écris 2-3 paragraphes décrivant l'univers, le contexte, et l'atmosphère du jeu.
Sois descriptif et immersif.

Description:`, title, genre, mood, strings.Join(keywords, ", "))
	return newRequest(TaskUniverse, text, 0)
}

// Scenario builds the three acts plus twist prompt.
func Scenario(title, universeDescription string, genre model.Genre) Request {
	text := fmt.Sprintf(`Crée un scénario de jeu vidéo en 3 actes pour "%s".
Genre: %s
Univers: %s

Structure (écris directement chaque acte, sans les labels):

1. ACTE 1 (Introduction): Un paragraphe

2. ACTE 2 (Développement): Un paragraphe

3. ACTE 3 (Climax): Un paragraphe

4. TWIST: Un retournement de situation inattendu

Scénario:`, title, genre, Excerpt(universeDescription, ScenarioExcerptLen))
	return newRequest(TaskScenario, text, 0)
}

// Characters builds the labeled multi-record character prompt.
func Characters(gctx model.GenerationContext, count int) Request {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Crée %d personnages pour le jeu \"%s\" (genre: %s).\n", count, gctx.Title, gctx.Genre))
	sb.WriteString(contextLines(gctx, CharacterExcerptLen))
	sb.WriteString(`
Pour CHAQUE personnage, utilise EXACTEMENT ce format, chaque champ sur sa propre ligne:

NOM: [nom du personnage]
ROLE: [héros/antagoniste/allié/mentor/rival]
CLASSE: [guerrier/mage/archer/voleur/etc]
PERSONNALITE: [3-4 traits de caractère]
BACKGROUND: [histoire en 2-3 phrases]
APPARENCE: [description physique]
COMPETENCES: [capacités principales]
GAMEPLAY: [comment on joue ce personnage]

---

Sépare chaque personnage par une ligne contenant uniquement ---

Personnages:`)
	return newRequest(TaskCharacters, sb.String(), count)
}

// Locations builds the labeled multi-record location prompt.
func Locations(gctx model.GenerationContext, count int) Request {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Crée %d lieux emblématiques pour le jeu \"%s\".\n", count, gctx.Title))
	if gctx.Genre != "" {
		sb.WriteString(fmt.Sprintf("Genre: %s\n", gctx.Genre))
	}
	sb.WriteString(contextLines(gctx, LocationExcerptLen))
	sb.WriteString(`
Pour chaque lieu, utilise EXACTEMENT ce format, chaque champ sur sa propre ligne:

NOM: [nom du lieu]
TYPE: [ville/forêt/donjon/temple/château/ruines/etc]
DESCRIPTION: [description en 2-3 phrases]
IMPORTANCE: [importance dans l'histoire]
DANGERS: [dangers ou énigmes présents]
TRESORS: [récompenses ou secrets à découvrir]

---

Sépare chaque lieu par une ligne contenant uniquement ---

Lieux:`)
	return newRequest(TaskLocations, sb.String(), count)
}

// ImageDescription builds the textual concept-art prompt used when no image is produced.
func ImageDescription(title string, genre model.Genre, mood model.Mood, universeDescription string) Request {
	text := fmt.Sprintf(`Crée une description détaillée pour une image conceptuelle de jeu vidéo intitulé "%s".

Genre: %s
Ambiance: %s
Univers: %s

La description doit être visuelle et détaillée, incluant:
- Style artistique (ex: réaliste, anime, cartoon, peinture numérique)
- Éléments principaux (personnages, environnement, atmosphère)
- Couleurs dominantes
- Composition de l'image

Description conceptuelle:`, title, genre, mood, Excerpt(universeDescription, ImageExcerptLen))
	return newRequest(TaskImageDescription, text, 0)
}

// CoverArt builds the input sent to the image-generation agent.
func CoverArt(title string, genre model.Genre, mood model.Mood, universeDescription string) Request {
	text := fmt.Sprintf(`Génère une image de cover art professionnelle pour le jeu vidéo "%s".

Style: Cover art AAA, qualité cinématographique
Genre: %s
Ambiance: %s
Univers: %s

L'image doit être épique, immersive et capturer visuellement l'essence du jeu. Style professionnel de jaquette de jeu vidéo.`,
		title, genre, mood, Excerpt(universeDescription, CoverArtExcerptLen))
	return newRequest(TaskCoverArt, text, 0)
}
