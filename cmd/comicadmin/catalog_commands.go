package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"comicadmin/internal/admin"
	"comicadmin/internal/catalog"
	"comicadmin/internal/reconcile"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the catalog and the site",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			report, err := svc.Status(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			fields := [][2]string{
				{"Catalog", report.ComicsPath},
				{"Status", string(report.Status)},
				{"Schema", fmt.Sprintf("v%d", report.SchemaVersion)},
				{"Revision", shortRevision(report.Revision)},
				{"Pages", fmt.Sprintf("%d", report.Entries)},
				{"Stored", fmt.Sprintf("%d", report.Stored)},
				{"Images", fmt.Sprintf("%d", report.Images)},
				{"Stubs", fmt.Sprintf("%d", report.Stubs)},
				{"Originals", fmt.Sprintf("%d", report.Originals)},
			}
			if report.StoreError != "" {
				fields = append(fields, [2]string{"Error", report.StoreError})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderFields(fields))
			return nil
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reconciled comic pages, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			view, err := svc.View(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(view.Entries) > limit {
				view.Entries = view.Entries[:limit]
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			if view.Status != catalog.StatusLoaded {
				fmt.Fprintf(out, "Catalog %s", view.Status)
				if view.StoreError != "" {
					fmt.Fprintf(out, ": %s", view.StoreError)
				}
				fmt.Fprintln(out)
			}
			if len(view.Entries) == 0 {
				fmt.Fprintln(out, "No comic pages found")
				return nil
			}
			rows := make([][]string, 0, len(view.Entries))
			for _, e := range view.Entries {
				rows = append(rows, []string{
					e.ID,
					string(e.Record.Type),
					e.Record.Name,
					e.Record.Chapter.String(),
					formatSources(e.Sources),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Type", "Name", "Chapter", "Sources"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many pages")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one reconciled comic page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			entry, err := svc.Entry(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, entry)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderFields(entryFields(entry)))
			return nil
		},
	}
}

func newDiffCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <file>",
		Short: "Show which pages saving a catalog file would add or remove",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			sub, err := readSubmissionFile(args[0])
			if err != nil {
				return err
			}
			plan, err := svc.PlanSave(cmd.Context(), sub)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, plan)
			}
			out := cmd.OutOrStdout()
			if plan.Delta.Empty() {
				fmt.Fprintln(out, "No pages added or removed")
			}
			for _, id := range plan.Delta.Created {
				fmt.Fprintf(out, "+ %s\n", id)
			}
			for _, id := range plan.Delta.Deleted {
				fmt.Fprintf(out, "- %s\n", id)
			}
			if plan.Stale {
				fmt.Fprintf(out, "warning: file revision is stale (catalog is at %s)\n", shortRevision(plan.Revision))
			}
			return nil
		},
	}
}

func newSaveCommand(ctx *commandContext) *cobra.Command {
	var revision string

	cmd := &cobra.Command{
		Use:   "save <file>",
		Short: "Replace the comic catalog with a file and sync stubs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			sub, err := readSubmissionFile(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("revision") {
				sub.Revision = strings.TrimSpace(revision)
			}
			report, err := svc.SaveData(cmd.Context(), sub)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.Message)
			if len(report.Stubs.FailedIDs) > 0 {
				fmt.Fprintf(out, "Stub failures: %s\n", strings.Join(report.Stubs.FailedIDs, ", "))
			}
			fmt.Fprintf(out, "Revision: %s\n", report.Revision)
			return nil
		},
	}
	cmd.Flags().StringVar(&revision, "revision", "", "Expected catalog revision (overrides the file)")
	return cmd
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var characters bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Rewrite a legacy catalog in the current schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			target := "comic catalog"
			var migrated bool
			if characters {
				target = "character catalog"
				migrated, err = svc.MigrateCharacters()
			} else {
				migrated, err = svc.MigrateComics(cmd.Context())
			}
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]bool{"migrated": migrated})
			}
			if migrated {
				fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s to schema v%d\n", target, catalog.CurrentSchemaVersion)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "The %s is already current\n", target)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&characters, "characters", false, "Migrate the character catalog instead")
	return cmd
}

func newCharactersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "characters",
		Short: "List the character catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			chars, err := svc.Characters()
			if err != nil {
				if errors.Is(err, catalog.ErrLegacySchema) {
					return fmt.Errorf("%w (run `comicadmin migrate --characters`)", err)
				}
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, chars)
			}
			out := cmd.OutOrStdout()
			if len(chars.Characters) == 0 {
				fmt.Fprintln(out, "No characters found")
				return nil
			}
			keys := sortedKeys(chars.Characters)
			rows := make([][]string, 0, len(keys))
			for _, key := range keys {
				c := chars.Characters[key]
				rows = append(rows, []string{key, c.Name, truncate(c.Description, 60)})
			}
			fmt.Fprintln(out, renderTable([]string{"Key", "Name", "Description"}, rows, nil))
			return nil
		},
	}
}

func readSubmissionFile(path string) (admin.Submission, error) {
	data, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return admin.Submission{}, fmt.Errorf("read catalog file: %w", err)
	}
	return admin.DecodeSubmission(data)
}

func entryFields(e reconcile.Entry) [][2]string {
	rec := e.Record
	chapter := rec.Chapter.String()
	if rec.Chapter.IsNull() {
		chapter = "(none)"
	}
	fields := [][2]string{
		{"ID", e.ID},
		{"Type", string(rec.Type)},
		{"Name", rec.Name},
		{"Chapter", chapter},
		{"Datum", rec.Datum},
		{"Original", rec.URLOriginalBild},
		{"Sketch", rec.URLOriginalSketch},
		{"Characters", strings.Join(rec.Characters, ", ")},
		{"Sources", formatSources(e.Sources)},
		{"Stored", yesNo(e.HasSource(catalog.SourceJSON))},
	}
	if rec.Transcript != "" {
		fields = append(fields, [2]string{"Transcript", truncate(rec.Transcript, 80)})
	}
	return fields
}
