package parser

import (
	"strings"

	"gameforge/internal/model"
)

// RecordSeparator splits model output into one block per generated item.
const RecordSeparator = "---"

// Field describes one labeled field of a record.
type Field struct {
	// Name is the canonical key the value is stored under.
	Name string
	// Labels are the accepted spellings, colon included, matched case-sensitively.
	Labels []string
	// Continuable fields absorb the following non-label lines.
	Continuable bool
	// Default is used when the field is missing. Required fields have no default.
	Default string
}

// Schema is the declarative label table of one record kind.
type Schema struct {
	// KeyField must be present for a record to be accepted. Its first label is
	// also the token a block must contain to be considered at all.
	KeyField string
	// AnchorField is the second mandatory field.
	AnchorField string
	Fields      []Field
}

// Record maps canonical field names to their values.
type Record map[string]string

// Character and location field names.
const (
	FieldName        = "name"
	FieldRole        = "role"
	FieldClass       = "class"
	FieldPersonality = "personality"
	FieldBackground  = "background"
	FieldAppearance  = "appearance"
	FieldSkills      = "skills"
	FieldGameplay    = "gameplay"

	FieldType        = "type"
	FieldDescription = "description"
	FieldImportance  = "importance"
	FieldDangers     = "dangers"
	FieldTreasure    = "treasure"
)

// CharacterSchema is the label table of character blocks.
var CharacterSchema = Schema{
	KeyField:    FieldName,
	AnchorField: FieldBackground,
	Fields: []Field{
		{Name: FieldName, Labels: []string{"NOM:"}},
		{Name: FieldRole, Labels: []string{"ROLE:", "RÔLE:"}, Default: "allié"},
		{Name: FieldClass, Labels: []string{"CLASSE:"}, Default: "guerrier"},
		{Name: FieldPersonality, Labels: []string{"PERSONNALITE:", "PERSONNALITÉ:"}, Default: "Courageux et déterminé"},
		{Name: FieldBackground, Labels: []string{"BACKGROUND:"}, Continuable: true},
		{Name: FieldAppearance, Labels: []string{"APPARENCE:"}, Default: "Apparence héroïque"},
		{Name: FieldSkills, Labels: []string{"COMPETENCES:", "COMPÉTENCES:"}, Default: "Combat et leadership"},
		{Name: FieldGameplay, Labels: []string{"GAMEPLAY:"}, Default: "Personnage équilibré"},
	},
}

// LocationSchema is the label table of location blocks.
var LocationSchema = Schema{
	KeyField:    FieldName,
	AnchorField: FieldDescription,
	Fields: []Field{
		{Name: FieldName, Labels: []string{"NOM:"}},
		{Name: FieldType, Labels: []string{"TYPE:"}, Default: "zone mystérieuse"},
		{Name: FieldDescription, Labels: []string{"DESCRIPTION:"}, Continuable: true},
		{Name: FieldImportance, Labels: []string{"IMPORTANCE:"}, Default: "Lieu clé pour la quête principale"},
		{Name: FieldDangers, Labels: []string{"DANGERS:"}, Default: "Créatures hostiles et pièges anciens"},
		{Name: FieldTreasure, Labels: []string{"TRESORS:", "TRÉSORS:"}, Default: "Artéfacts puissants et connaissances perdues"},
	},
}

// mandatoryToken is the label a block must contain to be treated as a record.
func (s Schema) mandatoryToken() string {
	for _, f := range s.Fields {
		if f.Name == s.KeyField && len(f.Labels) > 0 {
			return f.Labels[0]
		}
	}
	return ""
}

// match returns the field whose label starts line, and the value after the first colon.
func (s Schema) match(line string) (*Field, string, bool) {
	for i := range s.Fields {
		for _, label := range s.Fields[i].Labels {
			if strings.HasPrefix(line, label) {
				_, value, _ := strings.Cut(line, ":")
				return &s.Fields[i], strings.TrimSpace(value), true
			}
		}
	}
	return nil, "", false
}

// ParseRecords extracts the valid records of text, in input order.
// Blocks without the mandatory label are dropped silently, as are records missing
// the key or anchor field.
func ParseRecords(text string, schema Schema) []Record {
	token := schema.mandatoryToken()
	text = StripEmphasis(text)

	var records []Record
	for _, block := range strings.Split(text, RecordSeparator) {
		if token == "" || !strings.Contains(block, token) {
			continue
		}
		if rec, ok := parseBlock(block, schema); ok {
			records = append(records, rec)
		}
	}
	return records
}

func parseBlock(block string, schema Schema) (Record, bool) {
	rec := Record{}
	var current *Field

	for _, raw := range strings.Split(strings.TrimSpace(block), "\n") {
		line := strings.TrimSpace(raw)
		if field, value, ok := schema.match(line); ok {
			rec[field.Name] = value
			if field.Continuable {
				current = field
			} else {
				current = nil
			}
			continue
		}
		if current != nil && line != "" {
			if rec[current.Name] == "" {
				rec[current.Name] = line
			} else {
				rec[current.Name] += " " + line
			}
		}
	}

	if rec[schema.KeyField] == "" || rec[schema.AnchorField] == "" {
		return nil, false
	}
	for _, f := range schema.Fields {
		if rec[f.Name] == "" && f.Default != "" {
			rec[f.Name] = f.Default
		}
	}
	return rec, true
}

// ParseCharacters parses character blocks into typed records.
func ParseCharacters(text string) []model.CharacterRecord {
	records := ParseRecords(text, CharacterSchema)
	characters := make([]model.CharacterRecord, 0, len(records))
	for _, r := range records {
		characters = append(characters, model.CharacterRecord{
			Name:        r[FieldName],
			Role:        r[FieldRole],
			Class:       r[FieldClass],
			Personality: r[FieldPersonality],
			Background:  r[FieldBackground],
			Appearance:  r[FieldAppearance],
			Skills:      r[FieldSkills],
			Gameplay:    r[FieldGameplay],
		})
	}
	return characters
}

// ParseLocations parses location blocks into typed records.
func ParseLocations(text string) []model.LocationRecord {
	records := ParseRecords(text, LocationSchema)
	locations := make([]model.LocationRecord, 0, len(records))
	for _, r := range records {
		locations = append(locations, model.LocationRecord{
			Name:        r[FieldName],
			Type:        r[FieldType],
			Description: r[FieldDescription],
			Importance:  r[FieldImportance],
			Dangers:     r[FieldDangers],
			Treasure:    r[FieldTreasure],
		})
	}
	return locations
}
