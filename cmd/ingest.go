package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lexdesk/expedientes-cli/internal/model"
	"github.com/lexdesk/expedientes-cli/internal/updates"
)

var (
	ingestJuicio   string
	ingestTipo     string
	ingestTitulo   string
	ingestSintesis string
	ingestFecha    string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <documento.pdf>",
	Short: "Ingest a PDF document for a proceeding",
	Long:  "Stores the document, extracts its text, runs Gemini classification and summarization, and records the resulting update. Manually supplied fields take precedence over the AI output.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}

		in := updates.CreateInput{
			JuicioID: ingestJuicio,
			FileName: filepath.Base(args[0]),
			FileData: data,
		}
		if ingestTipo != "" {
			cat := model.Category(ingestTipo)
			in.Category = &cat
		}
		if ingestTitulo != "" {
			in.Title = &ingestTitulo
		}
		if ingestSintesis != "" {
			in.Summary = &ingestSintesis
		}
		if ingestFecha != "" {
			d, err := time.Parse("2006-01-02", ingestFecha)
			if err != nil {
				return eris.Wrap(err, "parse --fecha (expected YYYY-MM-DD)")
			}
			in.DocumentDate = &d
		}

		u, err := env.Manager.Create(ctx, in)
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

func init() {
	ingestCmd.Flags().StringVar(&ingestJuicio, "juicio", "", "proceeding id (required)")
	ingestCmd.Flags().StringVar(&ingestTipo, "tipo", "", "document category: auto, promotion, resolution, judgment")
	ingestCmd.Flags().StringVar(&ingestTitulo, "titulo", "", "document title (overrides the AI title)")
	ingestCmd.Flags().StringVar(&ingestSintesis, "sintesis", "", "summary (overrides the AI summary)")
	ingestCmd.Flags().StringVar(&ingestFecha, "fecha", "", "document date, YYYY-MM-DD (defaults to today)")
	_ = ingestCmd.MarkFlagRequired("juicio")
	rootCmd.AddCommand(ingestCmd)
}
