package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lexdesk/expedientes-cli/internal/model"
	"github.com/lexdesk/expedientes-cli/internal/store"
)

var updatesCmd = &cobra.Command{
	Use:   "updates",
	Short: "Inspect and manage proceeding updates",
	Long:  "Commands for listing, viewing, editing, and deleting proceeding updates.",
}

// -- updates list --

var updatesListCmd = &cobra.Command{
	Use:   "list <juicio-id>",
	Short: "List the updates of a proceeding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		list, err := env.Manager.List(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "updates list")
		}

		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "No updates found.")
			return nil
		}

		formatUpdatesList(os.Stdout, list)
		return nil
	},
}

func formatUpdatesList(w io.Writer, list []model.Update) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFECHA\tTIPO\tTÍTULO\tIA")
	for _, u := range list {
		fecha := "-"
		if !u.DocumentDate.IsZero() {
			fecha = u.DocumentDate.Format("2006-01-02")
		}
		ia := ""
		if u.AIAnalyzed {
			ia = "sí"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, fecha, u.Category.Label(), u.Title, ia)
	}
	tw.Flush()
}

// -- updates show --

var updatesShowCmd = &cobra.Command{
	Use:   "show <update-id>",
	Short: "Show one update as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		u, err := env.Manager.Get(ctx, args[0])
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(u, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal update")
		}
		fmt.Println(string(out))
		return nil
	},
}

// -- updates edit --

var (
	editTipo     string
	editTitulo   string
	editSintesis string
	editFecha    string
)

var updatesEditCmd = &cobra.Command{
	Use:   "edit <update-id>",
	Short: "Edit the manual fields of an update",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var fields store.UpdateFields
		if cmd.Flags().Changed("tipo") {
			cat := model.Category(editTipo)
			fields.Category = &cat
		}
		if cmd.Flags().Changed("titulo") {
			fields.Title = &editTitulo
		}
		if cmd.Flags().Changed("sintesis") {
			fields.Summary = &editSintesis
		}
		if cmd.Flags().Changed("fecha") {
			d, err := time.Parse("2006-01-02", editFecha)
			if err != nil {
				return eris.Wrap(err, "parse --fecha (expected YYYY-MM-DD)")
			}
			fields.DocumentDate = &d
		}

		u, err := env.Manager.Edit(ctx, args[0], fields)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(u, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal update")
		}
		fmt.Println(string(out))
		return nil
	},
}

// -- updates delete --

var deleteJuicio bool

var updatesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an update (or all updates of a proceeding with --juicio)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if deleteJuicio {
			if err := env.Manager.DeleteByJuicio(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted all updates of juicio %s\n", args[0])
			return nil
		}

		if err := env.Manager.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted update %s\n", args[0])
		return nil
	},
}

func init() {
	updatesEditCmd.Flags().StringVar(&editTipo, "tipo", "", "document category (empty clears it)")
	updatesEditCmd.Flags().StringVar(&editTitulo, "titulo", "", "document title")
	updatesEditCmd.Flags().StringVar(&editSintesis, "sintesis", "", "summary")
	updatesEditCmd.Flags().StringVar(&editFecha, "fecha", "", "document date, YYYY-MM-DD")

	updatesDeleteCmd.Flags().BoolVar(&deleteJuicio, "juicio", false, "treat the argument as a juicio id and delete all of its updates")

	updatesCmd.AddCommand(updatesListCmd, updatesShowCmd, updatesEditCmd, updatesDeleteCmd)
	rootCmd.AddCommand(updatesCmd)
}
