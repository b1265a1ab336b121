package fallback

import (
	"fmt"
	"strconv"

	"gameforge/internal/model"
)

// maxNameRedraws bounds the re-seeding done to avoid duplicate names.
const maxNameRedraws = 16

var (
	nameStarts = []string{"Ael", "Kae", "Lyr", "Mor", "Thal", "Syl", "Dra", "Vey", "Or", "Zen", "Bri", "Cal", "Ish", "Fen"}
	nameEnds   = []string{"wyn", "len", "ra", "gan", "dris", "via", "kor", "is", "ena", "th", "mir", "ane", "olt", "ric"}

	roles       = []string{"héros", "antagoniste", "allié", "mentor", "rival"}
	classes     = []string{"guerrier", "mage", "archer", "voleur", "soigneur", "paladin", "nécromancien", "ingénieur"}
	traits      = []string{"loyal", "rusé", "impétueux", "mélancolique", "ambitieux", "bienveillant", "taciturne", "excentrique"}
	appearances = []string{
		"Silhouette élancée, regard perçant",
		"Carrure massive couverte de cicatrices",
		"Longue cape usée et masque d'argent",
		"Cheveux tressés ornés de perles",
		"Armure dépareillée et sourire en coin",
		"Yeux luisants dans la pénombre",
	}
	skills = []string{
		"Maîtrise de l'épée et parade",
		"Sorts élémentaires et barrières",
		"Tir de précision à longue portée",
		"Discrétion et crochetage",
		"Soins et bénédictions",
		"Pièges et gadgets mécaniques",
	}
	gameplays = []string{
		"Combattant au corps à corps, encaisse les coups",
		"Attaquant à distance, fragile mais dévastateur",
		"Soutien qui renforce l'équipe",
		"Infiltrateur rapide aux attaques critiques",
		"Contrôleur de zone qui ralentit les ennemis",
	}

	placeTypes = []placeType{
		{"forteresse", "une forteresse"},
		{"forêt", "une forêt"},
		{"temple", "un temple"},
		{"cité", "une cité"},
		{"nécropole", "une nécropole"},
		{"caverne", "une caverne"},
		{"marais", "un marais"},
		{"tour", "une tour"},
	}
	placePrefixes  = []string{"Bastion", "Sanctuaire", "Vallée", "Citadelle", "Abysses", "Pic", "Port", "Jardins"}
	placeSuffixes  = []string{"des Ombres", "d'Argent", "du Crépuscule", "des Murmures", "des Anciens", "de Cendre", "des Étoiles", "du Néant"}
	// Qualities agree with either gender.
	placeQualities = []string{"immense", "sinistre", "étrange", "fragile", "célèbre", "légendaire", "mystique", "insolite"}
	importances    = []string{
		"Point de départ de la quête principale",
		"Refuge des derniers alliés",
		"Repaire de l'antagoniste",
		"Gardien d'un fragment de l'artefact",
		"Carrefour des routes commerciales",
	}
	dangers = []string{
		"Gardiens spectraux et pièges à pression",
		"Bandits embusqués",
		"Effondrements soudains",
		"Énigmes mortelles gravées dans la pierre",
		"Créatures nocturnes affamées",
	}
	treasures = []string{
		"Une relique oubliée",
		"Des cartes menant à un lieu secret",
		"Un équipement légendaire",
		"Des parchemins de sorts rares",
		"Un coffre scellé par une ancienne magie",
	}
)

// placeType is a location noun with its indefinite article.
type placeType struct {
	noun       string
	indefinite string
}

// Character backgrounds take the name, the class and a trait, in that order.
// The class and trait are used in apposition, so no article is needed.
var characterTemplates = map[model.Mood][]string{
	model.MoodSombre: {
		"%[1]s, %[2]s %[3]s, porte le poids d'un passé sanglant qu'il ne parvient pas à oublier.",
		"Hanté par une trahison, %[1]s, %[2]s %[3]s, erre dans les ruines d'un monde sans espoir.",
		"%[1]s, %[2]s %[3]s, a vendu une part de son âme pour survivre aux ténèbres.",
	},
	model.MoodJoyeux: {
		"%[1]s, %[2]s %[3]s, parcourt le monde en semant rires et chansons.",
		"Toujours prêt à aider, %[1]s, %[2]s %[3]s, transforme chaque épreuve en fête.",
		"%[1]s, %[2]s %[3]s, rêve d'ouvrir la plus grande taverne du royaume.",
	},
	model.MoodMysterieux: {
		"Nul ne sait d'où vient %[1]s, %[2]s %[3]s aux secrets bien gardés.",
		"%[1]s, %[2]s %[3]s, suit des symboles qu'il est seul à voir.",
		"Le passé de %[1]s, %[2]s %[3]s, a été effacé de toutes les archives.",
	},
	model.MoodEpique: {
		"%[1]s, %[2]s %[3]s, est l'élu d'une prophétie millénaire.",
		"Dernier de sa lignée, %[1]s, %[2]s %[3]s, a juré de sauver le royaume.",
		"%[1]s, %[2]s %[3]s, a vaincu une armée entière lors de la bataille des Cent Lunes.",
	},
	model.MoodHumoristique: {
		"%[1]s, %[2]s %[3]s, est devenu héros par erreur après avoir trébuché sur un dragon.",
		"Viré de sa guilde pour excès de zèle, %[1]s, %[2]s %[3]s, cherche un nouvel emploi.",
		"%[1]s, %[2]s %[3]s, collectionne les chaussettes magiques dépareillées.",
	},
}

var defaultCharacterTemplates = []string{
	"%[1]s, %[2]s %[3]s, a quitté son village pour découvrir le monde.",
	"Formé dès l'enfance, %[1]s, %[2]s %[3]s, cherche à prouver sa valeur.",
}

// Location descriptions take the name, the bare place noun, a quality and the
// place noun with its article, in that order.
var locationTemplates = map[model.Mood][]string{
	model.MoodSombre: {
		"%[1]s est %[4]s %[3]s où la lumière ne pénètre jamais.",
		"Les murs de %[1]s, %[2]s %[3]s, résonnent encore des cris des disparus.",
	},
	model.MoodJoyeux: {
		"%[1]s est %[4]s %[3]s où les habitants célèbrent chaque jour une fête.",
		"Des lanternes colorées illuminent %[1]s, %[2]s %[3]s débordant de vie.",
	},
	model.MoodMysterieux: {
		"%[1]s, %[2]s %[3]s, apparaît seulement les nuits de brouillard.",
		"Des inscriptions inconnues couvrent %[1]s, %[2]s %[3]s aux passages cachés.",
	},
	model.MoodEpique: {
		"%[1]s, %[2]s %[3]s, fut le théâtre de la dernière grande bataille.",
		"Les rois d'antan ont bâti %[1]s, %[2]s %[3]s qui domine l'horizon.",
	},
	model.MoodHumoristique: {
		"%[1]s est %[4]s %[3]s sous l'autorité d'un conseil de canards.",
		"À %[1]s, %[2]s %[3]s, les portes ne s'ouvrent qu'après une blague.",
	},
}

var defaultLocationTemplates = []string{
	"%[1]s est %[4]s %[3]s au cœur de l'aventure.",
	"Les voyageurs évoquent %[1]s, %[2]s %[3]s riche en découvertes.",
}

// CharacterTemplates returns the background templates applied for mood.
func CharacterTemplates(mood model.Mood) []string {
	if t, ok := characterTemplates[mood.Normalized()]; ok {
		return t
	}
	return defaultCharacterTemplates
}

// LocationTemplates returns the description templates applied for mood.
func LocationTemplates(mood model.Mood) []string {
	if t, ok := locationTemplates[mood.Normalized()]; ok {
		return t
	}
	return defaultLocationTemplates
}

// Generator synthesizes plausible records when parsing yields fewer than requested.
// Its output depends only on the generation context and the slot index.
type Generator struct{}

// NewGenerator returns a fallback generator.
func NewGenerator() *Generator {
	return &Generator{}
}

func slotKey(seed string, slot, redraw int) string {
	key := seed + "_" + strconv.Itoa(slot)
	if redraw > 0 {
		key += "#" + strconv.Itoa(redraw)
	}
	return key
}

// Character returns the synthetic character of a slot.
func (g *Generator) Character(gctx model.GenerationContext, slot int) model.CharacterRecord {
	return buildCharacter(slotKey(gctx.Summary(), slot, 0), gctx.Mood)
}

// Location returns the synthetic location of a slot.
func (g *Generator) Location(gctx model.GenerationContext, slot int) model.LocationRecord {
	return buildLocation(slotKey(gctx.Summary(), slot, 0), gctx.Mood)
}

func buildCharacter(key string, mood model.Mood) model.CharacterRecord {
	seq := NewSequence(key)
	name := Pick(seq, nameStarts) + Pick(seq, nameEnds)
	class := Pick(seq, classes)
	trait := Pick(seq, traits)
	return model.CharacterRecord{
		Name:        name,
		Role:        Pick(seq, roles),
		Class:       class,
		Personality: trait + ", " + Pick(seq, traits),
		Background:  fmt.Sprintf(Pick(seq, CharacterTemplates(mood)), name, class, trait),
		Appearance:  Pick(seq, appearances),
		Skills:      Pick(seq, skills),
		Gameplay:    Pick(seq, gameplays),
	}
}

func buildLocation(key string, mood model.Mood) model.LocationRecord {
	seq := NewSequence(key)
	name := Pick(seq, placePrefixes) + " " + Pick(seq, placeSuffixes)
	kind := Pick(seq, placeTypes)
	return model.LocationRecord{
		Name:        name,
		Type:        kind.noun,
		Description: fmt.Sprintf(Pick(seq, LocationTemplates(mood)), name, kind.noun, Pick(seq, placeQualities), kind.indefinite),
		Importance:  Pick(seq, importances),
		Dangers:     Pick(seq, dangers),
		Treasure:    Pick(seq, treasures),
	}
}

// PadCharacters returns exactly count characters: existing ones first, then
// synthetic ones for the missing slots.
func (g *Generator) PadCharacters(existing []model.CharacterRecord, count int, gctx model.GenerationContext) []model.CharacterRecord {
	if count <= 0 {
		return []model.CharacterRecord{}
	}
	if len(existing) >= count {
		return existing[:count]
	}
	out := make([]model.CharacterRecord, 0, count)
	out = append(out, existing...)
	used := make(map[string]bool, count)
	for _, c := range existing {
		used[c.Name] = true
	}

	seed := gctx.Summary()
	for slot := len(existing); slot < count; slot++ {
		var c model.CharacterRecord
		for redraw := 0; redraw <= maxNameRedraws; redraw++ {
			c = buildCharacter(slotKey(seed, slot, redraw), gctx.Mood)
			if !used[c.Name] {
				break
			}
		}
		used[c.Name] = true
		out = append(out, c)
	}
	return out
}

// PadLocations returns exactly count locations, synthesizing the missing slots.
func (g *Generator) PadLocations(existing []model.LocationRecord, count int, gctx model.GenerationContext) []model.LocationRecord {
	if count <= 0 {
		return []model.LocationRecord{}
	}
	if len(existing) >= count {
		return existing[:count]
	}
	out := make([]model.LocationRecord, 0, count)
	out = append(out, existing...)
	used := make(map[string]bool, count)
	for _, l := range existing {
		used[l.Name] = true
	}

	seed := gctx.Summary()
	for slot := len(existing); slot < count; slot++ {
		var l model.LocationRecord
		for redraw := 0; redraw <= maxNameRedraws; redraw++ {
			l = buildLocation(slotKey(seed, slot, redraw), gctx.Mood)
			if !used[l.Name] {
				break
			}
		}
		used[l.Name] = true
		out = append(out, l)
	}
	return out
}
