package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vocadrill/vocadrill/internal/report"
	"github.com/vocadrill/vocadrill/internal/stats"
	"github.com/vocadrill/vocadrill/internal/vocab"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "vocadrill",
		Short:         "Vocabulary trainer with remote sync and an offline-first cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newUserCmd(a),
		newStatsCmd(a),
		newLearnCmd(a),
		newUnlearnCmd(a),
		newQuizCmd(a),
		newPrefCmd(a),
		newCertCmd(a),
		newExportCmd(a),
		newResetCmd(a),
		newImportVocabCmd(a),
	)
	return root
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage learner identities",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List locally known users",
		RunE: func(c *cobra.Command, args []string) error {
			current, _ := a.store.CurrentUser()
			for _, u := range a.store.Users() {
				marker := " "
				if u.ID == current.ID {
					marker = "*"
				}
				fmt.Printf("%s %s\t%s\n", marker, u.ID, u.Name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "register <name>",
		Short: "Create a new account on the remote service",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			user, err := a.store.Register(c.Context(), args[0])
			if err != nil {
				return err
			}
			a.store.SetCurrentUser(user)
			fmt.Printf("registered and selected %s (%s)\n", user.Name, user.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a local-only user",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			user := a.store.CreateLocalUser(args[0])
			a.store.SetCurrentUser(user)
			fmt.Printf("created and selected %s (%s)\n", user.Name, user.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "select <id>",
		Short: "Switch the active user",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			for _, u := range a.store.Users() {
				if u.ID == args[0] {
					a.store.SetCurrentUser(u)
					fmt.Printf("selected %s\n", u.Name)
					return nil
				}
			}
			return fmt.Errorf("unknown user id %q", args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user and their progress everywhere",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if err := a.store.DeleteUser(c.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Deselect the active user",
		RunE: func(c *cobra.Command, args []string) error {
			a.store.Logout()
			fmt.Println("logged out")
			return nil
		},
	})

	return cmd
}

func newCertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cert <key>",
		Short: "Activate a certification key for the current user",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if err := a.store.ActivateCertification(c.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("certification activated")
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show learning statistics",
		RunE: func(c *cobra.Command, args []string) error {
			p, err := a.store.Get(c.Context())
			if err != nil {
				return err
			}

			total := 0
			if repo, err := vocab.NewRepository(a.cfg.Vocab.Path); err == nil {
				total = repo.Count()
			}

			fmt.Printf("Words learned:      %d\n", p.Stats.TotalWordsLearned)
			if total > 0 {
				fmt.Printf("Vocabulary covered: %.1f%%\n", stats.PercentLearned(p, total))
			}
			fmt.Printf("This week:          %d words\n", stats.WeeklyWordsLearned(p, time.Now()))
			fmt.Printf("Average quiz score: %.1f%%\n", stats.AverageQuizScore(p))
			fmt.Printf("Study time:         %s\n", stats.TotalStudyTime(p).Round(time.Minute))
			fmt.Printf("Streak:             %s (longest %d)\n", stats.StreakText(p), p.Stats.LongestStreak)
			fmt.Printf("Storage tier:       %s\n", a.store.Tier())
			return nil
		},
	}
}

func newLearnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "learn <wordID>...",
		Short: "Mark words as learned",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			for _, arg := range args {
				id, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid word id %q", arg)
				}
				changed, err := a.store.MarkLearned(c.Context(), id)
				if err != nil {
					return err
				}
				if changed {
					fmt.Printf("word %d marked learned\n", id)
				} else {
					fmt.Printf("word %d already learned\n", id)
				}
			}
			return nil
		},
	}
}

func newUnlearnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlearn <wordID>",
		Short: "Remove a word from the learned set",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid word id %q", args[0])
			}
			changed, err := a.store.UnmarkLearned(c.Context(), id)
			if err != nil {
				return err
			}
			if changed {
				fmt.Printf("word %d unlearned\n", id)
			} else {
				fmt.Printf("word %d was not learned\n", id)
			}
			return nil
		},
	}
}

func newPrefCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pref",
		Short: "Read and write preferences",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Show one preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			v, ok, err := a.store.GetPreference(c.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("unknown preference %q", args[0])
			}
			fmt.Printf("%s = %v\n", args[0], v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			if err := a.store.SetPreference(c.Context(), args[0], parseValue(args[1])); err != nil {
				return err
			}
			fmt.Printf("%s = %s\n", args[0], args[1])
			return nil
		},
	})

	return cmd
}

// parseValue guesses the wire type of a preference value given on the
// command line: bools and numbers first, everything else stays a string.
func parseValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func newExportCmd(a *app) *cobra.Command {
	var out string
	var asXLSX bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the full learning state to a file",
		RunE: func(c *cobra.Command, args []string) error {
			if asXLSX {
				user, ok := a.store.CurrentUser()
				if !ok {
					return fmt.Errorf("no user selected")
				}
				p, err := a.store.Get(c.Context())
				if err != nil {
					return err
				}
				total := 0
				if repo, err := vocab.NewRepository(a.cfg.Vocab.Path); err == nil {
					total = repo.Count()
				}
				if out == "" {
					out = "vocadrill-report.xlsx"
				}
				if err := report.WriteXLSX(out, user, p, total); err != nil {
					return err
				}
				fmt.Printf("report written to %s\n", out)
				return nil
			}

			data, err := a.store.Export(c.Context())
			if err != nil {
				return err
			}
			if out == "" {
				out = "vocadrill-export.json"
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Printf("progress exported to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	cmd.Flags().BoolVar(&asXLSX, "xlsx", false, "write a spreadsheet report instead of JSON")
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the current user's progress back to defaults",
		RunE: func(c *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			if err := a.store.Reset(c.Context()); err != nil {
				return err
			}
			fmt.Println("progress reset")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newImportVocabCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "import-vocab <file.xlsx>",
		Short: "Import vocabulary entries from a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			words, result, err := vocab.ImportXLSX(args[0])
			if err != nil {
				return err
			}
			for _, e := range result.Errors {
				fmt.Fprintln(os.Stderr, "skipped:", e)
			}
			if out == "" {
				out = a.cfg.Vocab.Path
			}
			if err := vocab.SaveJSON(out, words); err != nil {
				return err
			}
			fmt.Printf("imported %d/%d words to %s\n", result.Imported, result.TotalProcessed, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output dataset path (defaults to the configured vocab path)")
	return cmd
}
