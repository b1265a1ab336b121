package generator

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"gameforge/internal/fallback"
	"gameforge/internal/image"
	"gameforge/internal/model"
	"gameforge/internal/parser"
	"gameforge/internal/prompt"
	"gameforge/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Record counts of a concept.
const (
	DefaultCharacterCount = 3
	DefaultLocationCount  = 4
	MinRecordCount        = 1
	MaxRecordCount        = 10
	randomKeywordCount    = 3
)

// RandomKeywords is the pool "surprise me" keywords are drawn from.
var RandomKeywords = []string{"magie", "dragons", "technologie", "espace", "zombies", "pirates", "ninjas", "robots", "vampires", "aliens"}

// Completer produces text for a prompt and never fails.
type Completer interface {
	Complete(ctx context.Context, req prompt.Request) string
}

// CoverGenerator produces the cover of a game and never fails.
type CoverGenerator interface {
	GenerateCover(ctx context.Context, req image.CoverRequest) model.ImageResult
}

// ConceptRequest holds the user choices of a full generation.
type ConceptRequest struct {
	Genre          model.Genre
	Mood           model.Mood
	Keywords       []string
	CharacterCount int
	LocationCount  int
}

// Service runs the generation operations. None of them returns an error:
// upstream failures degrade to deterministic content.
type Service struct {
	completion Completer
	covers     CoverGenerator
	fallback   *fallback.Generator
	*Randomizer
	logger *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithRand sets the source of RandomParameters.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.Randomizer = &Randomizer{rng: r} }
}

// Randomizer draws "surprise me" parameters. It is safe for concurrent use.
type Randomizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomizer returns a Randomizer seeded from the clock.
func NewRandomizer() *Randomizer {
	return &Randomizer{rng: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))}
}

// NewService wires the generation pipeline.
func NewService(completion Completer, covers CoverGenerator, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		completion: completion,
		covers:     covers,
		fallback:   fallback.NewGenerator(),
		Randomizer: NewRandomizer(),
		logger:     logger.Named("generator"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateTitle returns a single clean title.
func (s *Service) GenerateTitle(ctx context.Context, genre model.Genre, mood model.Mood, keywords []string) string {
	req := prompt.Title(genre, mood, keywords)
	if title := CleanTitle(s.completion.Complete(ctx, req)); title != "" {
		return title
	}
	return fallback.MockTitle(req.Text)
}

// CleanTitle keeps the first line of raw, without quotes, emphasis or a "Titre:" label.
func CleanTitle(raw string) string {
	line := strings.TrimSpace(parser.StripEmphasis(raw))
	if first, _, found := strings.Cut(line, "\n"); found {
		line = strings.TrimSpace(first)
	}
	if len(line) >= len("titre:") && strings.EqualFold(line[:len("titre:")], "titre:") {
		line = strings.TrimSpace(line[len("titre:"):])
	}
	return strings.TrimSpace(strings.Trim(line, "\"'«»“”` "))
}

// ArtStyleFor returns the art style suggested for genre.
func ArtStyleFor(genre model.Genre) model.ArtStyle {
	switch genre {
	case model.GenreFantasy, model.GenreRPG:
		return model.ArtStyleAnime
	default:
		return model.ArtStyleRealiste
	}
}

// WorldTypeFor returns the world structure suggested for genre.
func WorldTypeFor(genre model.Genre) model.WorldType {
	switch genre {
	case model.GenreRPG, model.GenreAventure:
		return model.WorldTypeOpenWorld
	case model.GenreAction, model.GenreHorror:
		return model.WorldTypeLineaire
	case model.GenreStrategie:
		return model.WorldTypeHub
	default:
		return model.WorldTypeOpenWorld
	}
}

// GenerateUniverse describes the world of the game.
func (s *Service) GenerateUniverse(ctx context.Context, title string, genre model.Genre, mood model.Mood, keywords []string) model.Universe {
	description := s.completion.Complete(ctx, prompt.Universe(title, genre, mood, keywords))
	return model.Universe{
		Description: strings.TrimSpace(description),
		ArtStyle:    ArtStyleFor(genre),
		WorldType:   WorldTypeFor(genre),
	}
}

// GenerateScenario returns the three acts and the twist.
func (s *Service) GenerateScenario(ctx context.Context, title, universeDescription string, genre model.Genre) model.ScenarioRecord {
	return parser.SegmentScenario(s.completion.Complete(ctx, prompt.Scenario(title, universeDescription, genre)))
}

// GenerateCharacters returns exactly count characters.
func (s *Service) GenerateCharacters(ctx context.Context, gctx model.GenerationContext, count int) []model.CharacterRecord {
	if count <= 0 {
		return []model.CharacterRecord{}
	}
	parsed := parser.ParseCharacters(s.completion.Complete(ctx, prompt.Characters(gctx, count)))
	if len(parsed) < count {
		s.logger.Info("Padding characters", zap.Int("parsed", len(parsed)), zap.Int("requested", count))
	}
	return s.fallback.PadCharacters(parsed, count, gctx)
}

// GenerateLocations returns exactly count locations.
func (s *Service) GenerateLocations(ctx context.Context, gctx model.GenerationContext, count int) []model.LocationRecord {
	if count <= 0 {
		return []model.LocationRecord{}
	}
	parsed := parser.ParseLocations(s.completion.Complete(ctx, prompt.Locations(gctx, count)))
	if len(parsed) < count {
		s.logger.Info("Padding locations", zap.Int("parsed", len(parsed)), zap.Int("requested", count))
	}
	return s.fallback.PadLocations(parsed, count, gctx)
}

// GenerateCoverImage returns the cover, or its textual description in demo mode.
func (s *Service) GenerateCoverImage(ctx context.Context, title string, genre model.Genre, mood model.Mood, universeDescription string) model.ImageResult {
	return s.covers.GenerateCover(ctx, image.CoverRequest{
		Title:               title,
		Genre:               genre,
		Mood:                mood,
		UniverseDescription: universeDescription,
	})
}

// RandomParameters draws a genre, a mood and three distinct keywords.
func (r *Randomizer) RandomParameters() model.RandomParameters {
	r.mu.Lock()
	defer r.mu.Unlock()

	perm := r.rng.Perm(len(RandomKeywords))
	keywords := make([]string, 0, randomKeywordCount)
	for _, i := range perm[:randomKeywordCount] {
		keywords = append(keywords, RandomKeywords[i])
	}
	return model.RandomParameters{
		Genre:    model.AllGenres[r.rng.IntN(len(model.AllGenres))],
		Mood:     model.AllMoods[r.rng.IntN(len(model.AllMoods))],
		Keywords: keywords,
	}
}

// ClampCount applies the default for zero and bounds n to [MinRecordCount, MaxRecordCount].
func ClampCount(n, def int) int {
	switch {
	case n == 0:
		return def
	case n < MinRecordCount:
		return MinRecordCount
	case n > MaxRecordCount:
		return MaxRecordCount
	default:
		return n
	}
}

// GenerateConcept runs the full pipeline for userID. The cover is produced
// concurrently with the scenario, characters and locations once the universe exists.
func (s *Service) GenerateConcept(ctx context.Context, userID string, req ConceptRequest) *model.GameConcept {
	ctx = service.ContextWithUserID(ctx, userID)
	keywords := req.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	log := s.logger.With(zap.String("user_id", userID), zap.String("genre", string(req.Genre)))
	start := time.Now()

	concept := &model.GameConcept{
		ID:       uuid.NewString(),
		UserID:   userID,
		Genre:    req.Genre,
		Mood:     req.Mood,
		Keywords: keywords,
	}
	concept.Title = s.GenerateTitle(ctx, req.Genre, req.Mood, keywords)
	concept.Universe = s.GenerateUniverse(ctx, concept.Title, req.Genre, req.Mood, keywords)
	gctx := concept.Context()

	var g errgroup.Group
	g.Go(func() error {
		concept.Cover = s.GenerateCoverImage(ctx, concept.Title, req.Genre, req.Mood, concept.Universe.Description)
		return nil
	})
	g.Go(func() error {
		concept.Scenario = s.GenerateScenario(ctx, concept.Title, concept.Universe.Description, req.Genre)
		concept.Characters = s.GenerateCharacters(ctx, gctx, ClampCount(req.CharacterCount, DefaultCharacterCount))
		concept.Locations = s.GenerateLocations(ctx, gctx, ClampCount(req.LocationCount, DefaultLocationCount))
		return nil
	})
	_ = g.Wait()

	concept.CreatedAt = time.Now().UTC()
	log.Info("Concept generated",
		zap.String("concept_id", concept.ID),
		zap.String("title", concept.Title),
		zap.Bool("has_image", !concept.Cover.IsDemo()),
		zap.Duration("duration", time.Since(start)))
	return concept
}
