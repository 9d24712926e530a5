package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vocadrill/vocadrill/internal/session"
	"github.com/vocadrill/vocadrill/internal/vocab"
)

func newQuizCmd(a *app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Run a flashcard quiz over the vocabulary",
		RunE: func(c *cobra.Command, args []string) error {
			repo, err := vocab.NewRepository(a.cfg.Vocab.Path)
			if err != nil {
				return err
			}

			tracker := session.New(a.store, a.log,
				session.WithMinDuration(a.cfg.Session.MinDuration))
			tracker.Start(a.cfg.Session.FlushInterval)

			reader := bufio.NewReader(os.Stdin)
			correct := 0

			for i := 0; i < count; i++ {
				word := repo.GetRandom()
				tracker.NoteStudied(1)

				fmt.Printf("\n[%d/%d] %s (%s)\n", i+1, count, word.Word, word.PartOfSpeech)
				fmt.Print("press enter to reveal the definition...")
				_, _ = reader.ReadString('\n')
				fmt.Printf("  %s\n", word.Definition)
				if len(word.Examples) > 0 {
					fmt.Printf("  e.g. %s\n", word.Examples[0])
				}

				fmt.Print("did you know it? [y/n] ")
				answer, _ := reader.ReadString('\n')
				knew := strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y")

				if err := a.store.UpdateQuizScore(c.Context(), word.ID, knew); err != nil {
					return err
				}
				tracker.NoteQuizAnswer(knew)
				if knew {
					correct++
					if changed, err := a.store.MarkLearned(c.Context(), word.ID); err == nil && changed {
						tracker.NoteLearned(1)
					}
				}
			}

			// Final flush records the session and advances the streak even
			// when the quiz finished before the first scheduled flush.
			if err := tracker.Stop(c.Context()); err != nil {
				a.log.Warn("final session flush failed")
			}

			fmt.Printf("\nquiz finished: %d/%d correct\n", correct, count)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of words to quiz")
	return cmd
}
