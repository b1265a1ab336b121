package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gameforge/internal/generator"
	"gameforge/internal/model"
	"gameforge/internal/quota"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type generateOptions struct {
	genre      string
	mood       string
	keywords   string
	characters int
	locations  int
	surprise   bool
	count      int
	dailyQuota int
	coverOut   string
	private    bool
}

func newGenerateCommand(a *app) *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one or more complete game concepts",
		Example: `  gameforge generate --genre rpg --mood sombre --keywords dragons,magie
  gameforge generate --surprise --count 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runGenerate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.genre, "genre", "g", "", "game genre ("+joinValues(model.AllGenres)+")")
	f.StringVarP(&opts.mood, "mood", "m", "", "mood ("+joinValues(model.AllMoods)+")")
	f.StringVarP(&opts.keywords, "keywords", "k", "", "comma separated keywords")
	f.IntVar(&opts.characters, "characters", 0, "number of characters (0 uses the default)")
	f.IntVar(&opts.locations, "locations", 0, "number of locations (0 uses the default)")
	f.BoolVar(&opts.surprise, "surprise", false, "draw genre, mood and keywords at random")
	f.IntVarP(&opts.count, "count", "n", 1, "number of concepts to generate")
	f.IntVar(&opts.dailyQuota, "quota", quota.DefaultDailyLimit, "maximum generations for this run")
	f.StringVarP(&opts.coverOut, "cover-out", "o", "", "file the last cover image is written to")
	f.BoolVar(&opts.private, "private", false, "store the concepts as private")
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, opts generateOptions) error {
	if opts.count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}
	if !opts.surprise {
		if !model.Genre(opts.genre).Valid() {
			return fmt.Errorf("invalid genre %q", opts.genre)
		}
		if opts.mood != "" && !model.Mood(opts.mood).Valid() {
			return fmt.Errorf("invalid mood %q", opts.mood)
		}
	}

	gen, err := a.newGenerator()
	if err != nil {
		return err
	}
	history, err := a.openHistory()
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}
	limiter := quota.NewMemoryLimiter(opts.dailyQuota)

	concepts := make([]*model.GameConcept, 0, opts.count)
	for i := 0; i < opts.count; i++ {
		if _, err := limiter.Consume(cmd.Context(), a.userID); err != nil {
			if errors.Is(err, quota.ErrQuotaExceeded) {
				a.logger.Warn("Quota reached, stopping", zap.Int("generated", len(concepts)))
				break
			}
			return err
		}

		req := generator.ConceptRequest{
			Genre:          model.Genre(opts.genre),
			Mood:           model.Mood(opts.mood),
			Keywords:       model.ParseKeywords(opts.keywords),
			CharacterCount: opts.characters,
			LocationCount:  opts.locations,
		}
		if opts.surprise {
			params := gen.RandomParameters()
			req.Genre, req.Mood, req.Keywords = params.Genre, params.Mood, params.Keywords
		}

		concept := gen.GenerateConcept(cmd.Context(), a.userID, req)
		concept.Public = !opts.private
		if history != nil {
			if err := history.Save(cmd.Context(), concept); err != nil {
				return fmt.Errorf("failed to store concept: %w", err)
			}
		}
		concepts = append(concepts, concept)
	}
	if len(concepts) == 0 {
		return quota.ErrQuotaExceeded
	}

	if opts.coverOut != "" {
		if err := writeCover(opts.coverOut, concepts[len(concepts)-1]); err != nil {
			return err
		}
	}
	if len(concepts) == 1 {
		return a.printJSON(concepts[0])
	}
	return a.printJSON(concepts)
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// writeCover writes the cover bytes, or nothing when the concept only has a description.
func writeCover(path string, concept *model.GameConcept) error {
	if concept.Cover.IsDemo() {
		return nil
	}
	if err := os.WriteFile(path, concept.Cover.ImageBytes, 0o644); err != nil {
		return fmt.Errorf("failed to write cover: %w", err)
	}
	return nil
}
