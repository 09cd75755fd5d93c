package main

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/memebox/memebox/internal/blob"
	"github.com/memebox/memebox/internal/config"
	"github.com/memebox/memebox/internal/dispatch"
	"github.com/memebox/memebox/internal/registry"
	"github.com/memebox/memebox/internal/webhook"
	"github.com/memebox/memebox/pkg/platform"
)

type cliError struct {
	code int
	err  error
}

func (e cliError) Error() string { return e.err.Error() }

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		var ce cliError
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, ce.err)
			os.Exit(ce.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	configPath string
	dataDir    string
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "memebox",
		Short:         "Content-addressed image registry with alias resolution",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "memebox.yaml", "config file path")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override the data directory")
	root.AddCommand(newServeCommand())
	root.AddCommand(newAddCommand())
	root.AddCommand(newNameCommand())
	root.AddCommand(newShowCommand())
	root.AddCommand(newListCommand())
	root.AddCommand(newDelCommand())
	root.AddCommand(newReloadCommand())
	return root
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

func openRegistry(log *zap.Logger) (*registry.Registry, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	reg, err := registry.Open(registry.Options{
		DataDir:      cfg.DataDir,
		SessionTTL:   time.Duration(cfg.SessionTTLSeconds) * time.Second,
		FetchTimeout: time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
		Logger:       log,
	})
	return reg, cfg, err
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat event server",
		RunE: func(_ *cobra.Command, _ []string) error {
			log, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			reg, cfg, err := openRegistry(log)
			if err != nil {
				return err
			}
			h := dispatch.New(reg, log, dispatch.Options{
				CommandPrefix: cfg.CommandPrefix,
				ListCap:       cfg.ListCap,
			})
			return webhook.Serve(webhook.Config{
				Port:        cfg.Port,
				TLSCertPath: cfg.TLSCertPath,
				TLSKeyPath:  cfg.TLSKeyPath,
			}, h, log)
		},
	}
}

func newAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path|url>",
		Short: "Register an image from a local file or a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := openRegistry(zap.NewNop())
			if err != nil {
				return err
			}
			res, err := reg.Add(cmd.Context(), sourceForArg(args[0]))
			if err != nil {
				return cliError{code: 2, err: err}
			}
			if res.Alias != "" {
				fmt.Printf("%s (alias: %s)\n", res.Digest, res.Alias)
			} else {
				fmt.Println(res.Digest)
			}
			return nil
		},
	}
}

func sourceForArg(arg string) platform.ImageSource {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return platform.RemoteURL{URL: arg, FilenameHint: path.Base(arg)}
	}
	return platform.LocalPath{Path: arg}
}

func newNameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "name <KEY> <alias>",
		Short: "Bind an alias to a digest",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			reg, _, err := openRegistry(zap.NewNop())
			if err != nil {
				return err
			}
			d := blob.Digest(strings.ToUpper(args[0]))
			alias := strings.TrimSpace(strings.Join(args[1:], " "))
			if err := reg.Bind(d, alias); err != nil {
				return cliError{code: 2, err: err}
			}
			fmt.Printf("%s -> %s\n", alias, d)
			return nil
		},
	}
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <KEY|alias>",
		Short: "Show one entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			reg, _, err := openRegistry(zap.NewNop())
			if err != nil {
				return err
			}
			info, err := reg.Show(strings.Join(args, " "))
			if err != nil {
				return cliError{code: 2, err: err}
			}
			alias := info.Alias
			if alias == "" {
				alias = "(none)"
			}
			file := info.Filename
			if file == "" {
				file = "(missing)"
			}
			fmt.Printf("KEY: %s\nalias: %s\nfile: %s\n", info.Digest, alias, file)
			return nil
		},
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every entry",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			reg, _, err := openRegistry(zap.NewNop())
			if err != nil {
				return err
			}
			l := reg.List()
			for _, b := range l.Aliases {
				fmt.Printf("%s -> %s\n", b.Alias, b.Digest)
			}
			covered := make(map[blob.Digest]bool, len(l.Aliases))
			for _, b := range l.Aliases {
				covered[b.Digest] = true
			}
			for _, d := range l.Digests {
				if !covered[d] {
					fmt.Println(d)
				}
			}
			fmt.Printf("%d total\n", len(l.Digests))
			return nil
		},
	}
}

func newDelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "del <KEY|alias>",
		Short: "Delete an entry and its aliases",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			reg, _, err := openRegistry(zap.NewNop())
			if err != nil {
				return err
			}
			res, err := reg.Delete(strings.Join(args, " "))
			if err != nil {
				return cliError{code: 2, err: err}
			}
			fmt.Printf("deleted %s", res.Digest)
			if len(res.Aliases) > 0 {
				fmt.Printf(" (aliases: %s)", strings.Join(res.Aliases, ", "))
			}
			fmt.Println()
			return nil
		},
	}
}

func newReloadCommand() *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Rebuild the index from the blob directory",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			reg, _, err := openRegistry(zap.NewNop())
			if err != nil {
				return err
			}
			stats, err := reg.Reload(verify)
			if err != nil {
				return err
			}
			fmt.Printf("%d entries, %d aliases pruned", stats.Entries, stats.PrunedAliases)
			if verify {
				fmt.Printf(", %d mismatched files dropped", stats.DroppedBlobs)
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "re-hash file contents and drop mismatches")
	return cmd
}
