package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkruijt/linkmap/pkg/cache"
	"github.com/mkruijt/linkmap/pkg/errors"
)

// newCacheCmd creates the cache management command. Only the file
// backend is managed locally; a Redis cache belongs to whoever runs the
// server.
func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the estimate cache",
	}
	cmd.AddCommand(newCacheClearCmd(a))
	cmd.AddCommand(newCachePathCmd(a))
	return cmd
}

func (a *app) fileCache() (*cache.FileCache, error) {
	dir := a.cfg.Cache.Dir
	if dir == "" {
		d, err := defaultCacheDir()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "resolving cache directory")
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

func newCacheClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached estimates",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.fileCache()
			if err != nil {
				return err
			}
			if err := c.Purge(); err != nil {
				return err
			}
			printSuccess("Cache cleared")
			printDetail("Directory: %s", c.Dir())
			return nil
		},
	}
}

func newCachePathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.fileCache()
			if err != nil {
				return err
			}
			fmt.Println(c.Dir())
			return nil
		},
	}
}
