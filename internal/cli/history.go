package cli

import (
	"errors"
	"fmt"
	"time"

	"gameforge/internal/model"
	"gameforge/internal/repository"

	"github.com/spf13/cobra"
)

type historyEntry struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Genre     model.Genre `json:"genre"`
	Mood      model.Mood  `json:"mood,omitempty"`
	HasCover  bool        `json:"has_cover"`
	CreatedAt time.Time   `json:"created_at"`
}

var errNoHistory = errors.New("history is disabled (--db is empty)")

func newHistoryCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the concepts generated by the user, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			history, err := a.openHistory()
			if err != nil {
				return err
			}
			if history == nil {
				return errNoHistory
			}
			defer history.Close()

			concepts, err := history.ListByUser(cmd.Context(), a.userID, limit)
			if err != nil {
				return err
			}
			entries := make([]historyEntry, 0, len(concepts))
			for _, c := range concepts {
				entries = append(entries, historyEntry{
					ID:        c.ID,
					Title:     c.Title,
					Genre:     c.Genre,
					Mood:      c.Mood,
					HasCover:  !c.Cover.IsDemo(),
					CreatedAt: c.CreatedAt,
				})
			}
			return a.printJSON(entries)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", repository.DefaultListLimit, "maximum number of entries")
	return cmd
}

func newShowCommand(a *app) *cobra.Command {
	var coverOut string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored concept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := a.openHistory()
			if err != nil {
				return err
			}
			if history == nil {
				return errNoHistory
			}
			defer history.Close()

			concept, err := history.GetByID(cmd.Context(), args[0])
			if errors.Is(err, repository.ErrNotFound) || (err == nil && concept.UserID != a.userID) {
				return fmt.Errorf("concept %s not found", args[0])
			}
			if err != nil {
				return err
			}
			if coverOut != "" {
				if err := writeCover(coverOut, concept); err != nil {
					return err
				}
			}
			return a.printJSON(concept)
		},
	}
	cmd.Flags().StringVarP(&coverOut, "cover-out", "o", "", "file the cover image is written to")
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored concept of the user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := a.openHistory()
			if err != nil {
				return err
			}
			if history == nil {
				return errNoHistory
			}
			defer history.Close()

			if err := history.Delete(cmd.Context(), args[0], a.userID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("concept %s not found", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
