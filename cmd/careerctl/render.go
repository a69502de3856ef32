package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/garnizeh/careerprep/internal/apperr"
	"github.com/garnizeh/careerprep/internal/latex"
	"github.com/garnizeh/careerprep/pkg/models"
)

func newRenderCmd() *cobra.Command {
	var (
		in       string
		out      string
		template string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a resume content JSON file to LaTeX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			var content models.ResumeContent
			if err := json.Unmarshal(data, &content); err != nil {
				return fmt.Errorf("parse input: %w", err)
			}
			if err := apperr.Validate(content); err != nil {
				return err
			}

			src, err := latex.Render(content, template)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), src)
				return err
			}
			if err := os.WriteFile(out, []byte(src), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "LaTeX written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "", "Resume content JSON file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output .tex file (default stdout)")
	cmd.Flags().StringVarP(&template, "template", "t", latex.TemplateModern, "LaTeX template (modern or classic)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
