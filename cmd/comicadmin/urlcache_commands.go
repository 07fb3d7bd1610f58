package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"comicadmin/internal/urlcache"
)

func newURLCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "urlcache",
		Short: "Inspect and maintain the external URL cache",
	}

	cacheCmd.AddCommand(newURLCacheShowCommand(ctx))
	cacheCmd.AddCommand(newURLCacheSetCommand(ctx))
	cacheCmd.AddCommand(newURLCacheResolveCommand(ctx))

	return cacheCmd
}

func newURLCacheShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show cached URLs for a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			entry, err := svc.CachedURLs(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, entry)
			}
			rows := make([][]string, 0, len(urlcache.Keys()))
			for _, key := range urlcache.Keys() {
				if value, ok := entry.Get(key); ok {
					rows = append(rows, []string{key, value})
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "URL"}, rows, nil))
			return nil
		},
	}
}

func newURLCacheSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <key> <url>",
		Short: "Store a URL in the cache with a fresh cache-busting suffix",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			id, key, url := strings.TrimSpace(args[0]), strings.TrimSpace(args[1]), strings.TrimSpace(args[2])
			stored, err := svc.UpdateExternalURLCache(cmd.Context(), id, url, key)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]string{"id": id, "key": key, "url": stored})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cached %s for %s: %s\n", key, id, stored)
			return nil
		},
	}
}

func newURLCacheResolveCommand(ctx *commandContext) *cobra.Command {
	var sketch bool

	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Find the external original of a page, probing if not cached",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			key := urlcache.KeyOriginalImage
			if sketch {
				key = urlcache.KeyOriginalSketch
			}
			id := strings.TrimSpace(args[0])
			res, err := svc.ResolveURL(cmd.Context(), id, key)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, res)
			}
			out := cmd.OutOrStdout()
			if !res.Found {
				fmt.Fprintf(out, "No original found for %s\n", id)
				return nil
			}
			source := "probed"
			if res.FromCache {
				source = "cached"
			}
			fmt.Fprintf(out, "%s (%s)\n", res.URL, source)
			if res.PersistErr != nil {
				fmt.Fprintf(out, "warning: url not cached: %v\n", res.PersistErr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sketch, "sketch", false, "Resolve the original sketch instead of the image")
	return cmd
}
