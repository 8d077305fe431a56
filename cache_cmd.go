package main

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the word image cache",
	Args:  cobra.NoArgs,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show word image cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c := openImageCache(cfg, false)
		defer c.Close() //nolint:errcheck

		st := c.Stats()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, heading("Word images"))
		fmt.Fprintf(out, "  %s %d of %d (%s)\n", faint("entries"), st.Count, st.Max, st.Storage)
		if !st.Oldest.IsZero() {
			fmt.Fprintf(out, "  %s %s\n", faint("oldest "), humanize.Time(st.Oldest))
		}
		if size, err := dirSize(cfg.Cache.DiskPath); err == nil {
			fmt.Fprintf(out, "  %s %s in %s\n", faint("on disk"), humanize.Bytes(uint64(size)), cfg.Cache.DiskPath) //nolint:gosec
		}
		fmt.Fprintf(out, "  %s %s, audio cache up to %s per process\n",
			faint("retain "), cfg.Cache.Retention, humanize.Bytes(uint64(cfg.TTS.CacheBytes))) //nolint:gosec
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached word image",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c := openImageCache(cfg, false)
		defer c.Close() //nolint:errcheck

		n := c.Stats().Count
		if err := c.Clear(); err != nil {
			return fmt.Errorf("unable to clear cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", humanize.Comma(int64(n))+" "+plural(n, "image", "images"))
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove word images older than the retention window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c := openImageCache(cfg, false)
		defer c.Close() //nolint:errcheck

		n := c.PurgeExpired()
		fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired %s.\n", n, plural(n, "image", "images"))
		return nil
	},
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cachePurgeCmd)
}
