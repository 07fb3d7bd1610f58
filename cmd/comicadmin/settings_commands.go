package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"comicadmin/internal/settings"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	var user string

	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change per-user admin preferences",
	}
	settingsCmd.PersistentFlags().StringVarP(&user, "user", "u", defaultUser(), "User the settings belong to")

	settingsCmd.AddCommand(newSettingsGetCommand(ctx, &user))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx, &user))

	return settingsCmd
}

func newSettingsGetCommand(ctx *commandContext, user *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show a user's settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			value, err := svc.Settings(*user)
			if err != nil {
				return err
			}
			return printSettings(cmd, ctx, value)
		},
	}
}

func newSettingsSetCommand(ctx *commandContext, user *string) *cobra.Command {
	var pageSize int
	var sortDescending bool
	var showTranscripts bool
	var lastOpened string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change a user's settings; unset flags keep their value",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			value, err := svc.Settings(*user)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("page-size") {
				value.PageSize = pageSize
			}
			if flags.Changed("sort-descending") {
				value.SortDescending = sortDescending
			}
			if flags.Changed("show-transcripts") {
				value.ShowTranscripts = showTranscripts
			}
			if flags.Changed("last-opened") {
				value.LastOpenedID = strings.TrimSpace(lastOpened)
			}
			if err := svc.PutSettings(*user, value); err != nil {
				return err
			}
			return printSettings(cmd, ctx, value)
		},
	}
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Pages per list page (1-1000)")
	cmd.Flags().BoolVar(&sortDescending, "sort-descending", true, "List newest pages first")
	cmd.Flags().BoolVar(&showTranscripts, "show-transcripts", false, "Show transcripts in the list")
	cmd.Flags().StringVar(&lastOpened, "last-opened", "", "Last opened page id")
	return cmd
}

func printSettings(cmd *cobra.Command, ctx *commandContext, value settings.Settings) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, value)
	}
	last := value.LastOpenedID
	if last == "" {
		last = "(none)"
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderFields([][2]string{
		{"Page size", fmt.Sprintf("%d", value.PageSize)},
		{"Newest first", yesNo(value.SortDescending)},
		{"Transcripts", yesNo(value.ShowTranscripts)},
		{"Last opened", last},
	}))
	return nil
}

func defaultUser() string {
	if user := strings.TrimSpace(os.Getenv("USER")); user != "" {
		return user
	}
	return "admin"
}
