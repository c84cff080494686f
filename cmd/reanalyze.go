package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	reanalyzeJuicio      bool
	reanalyzeConcurrency int
)

var reanalyzeCmd = &cobra.Command{
	Use:   "reanalyze <id>",
	Short: "Re-run AI analysis on a stored document",
	Long:  "Re-extracts the stored document's text and overwrites the update's category, title and summary with fresh Gemini output. With --juicio the argument is a proceeding id and every update with a stored document is re-analyzed.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if !reanalyzeJuicio {
			u, err := env.Manager.Reanalyze(ctx, args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(u, "", "  ")
			if err != nil {
				return eris.Wrap(err, "marshal update")
			}
			fmt.Println(string(out))
			return nil
		}

		list, err := env.Manager.List(ctx, args[0])
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(reanalyzeConcurrency)

		var done int
		for _, u := range list {
			if !u.HasDocument() {
				zap.L().Warn("skipping update without stored document", zap.String("id", u.ID))
				continue
			}
			g.Go(func() error {
				if _, err := env.Manager.Reanalyze(gctx, u.ID); err != nil {
					return eris.Wrapf(err, "reanalyze %s", u.ID)
				}
				return nil
			})
			done++
		}
		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Printf("Re-analyzed %d updates of juicio %s\n", done, args[0])
		return nil
	},
}

func init() {
	reanalyzeCmd.Flags().BoolVar(&reanalyzeJuicio, "juicio", false, "treat the argument as a juicio id and re-analyze all of its updates")
	reanalyzeCmd.Flags().IntVar(&reanalyzeConcurrency, "concurrency", 3, "max concurrent analyses with --juicio")
	rootCmd.AddCommand(reanalyzeCmd)
}
