package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mkruijt/linkmap/internal/config"
	"github.com/mkruijt/linkmap/pkg/cache"
	"github.com/mkruijt/linkmap/pkg/errors"
	"github.com/mkruijt/linkmap/pkg/session"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version,
// injected by main via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// app carries the settings shared by all commands, resolved once in the
// root PersistentPreRun.
type app struct {
	cfgPath string
	verbose bool
	cfg     config.Config
}

// Execute runs the linkmap CLI under ctx and returns the first command
// error.
func Execute(ctx context.Context) error {
	a := &app{}

	root := &cobra.Command{
		Use:          "linkmap",
		Short:        "linkmap builds genetic linkage maps for outcrossing populations",
		Long: `linkmap orders genetic markers into linkage maps from genotype data and a
precomputed two-point analysis. Long linkage groups are split into
overlapping batches that are mapped concurrently and stitched back
together; map orders can be refined by sliding-window search.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := charmlog.InfoLevel
			if a.verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))

			path, explicit := a.cfgPath, true
			if path == "" {
				p, err := config.DefaultPath()
				if err == nil {
					path, explicit = p, false
				}
			}
			cfg, err := config.Load(path, explicit)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("linkmap %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "path to a TOML config file")

	root.AddCommand(newBuildCmd(a))
	root.AddCommand(newBatchesCmd(a))
	root.AddCommand(newRippleCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newCacheCmd(a))

	return root.ExecuteContext(ctx)
}

// defaultCacheDir is used when the config names no directory.
func defaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "linkmap"), nil
}

// openCache builds the estimate cache named by the config.
func (a *app) openCache(ctx context.Context) (cache.Cache, error) {
	switch a.cfg.Cache.Backend {
	case "", "none":
		return cache.NewNullCache(), nil
	case "file":
		dir := a.cfg.Cache.Dir
		if dir == "" {
			d, err := defaultCacheDir()
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "resolving cache directory")
			}
			dir = d
		}
		return cache.NewFileCache(dir)
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     a.cfg.Cache.RedisAddr,
			Password: a.cfg.Cache.RedisPassword,
			DB:       a.cfg.Cache.RedisDB,
		})
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q", a.cfg.Cache.Backend)
}

// openStore builds the session store named by the config.
func (a *app) openStore(ctx context.Context) (session.Store, error) {
	switch a.cfg.Store.Backend {
	case "", "file":
		return session.NewFileStore(a.cfg.Store.Dir)
	case "mongo":
		return session.NewMongoStore(ctx, session.MongoConfig{
			URI:      a.cfg.Store.MongoURI,
			Database: a.cfg.Store.MongoDatabase,
		})
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown store backend %q", a.cfg.Store.Backend)
}
