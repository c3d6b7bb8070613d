package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blobstore-go/blobstore"
	"github.com/blobstore-go/blobstore/fs"
	"github.com/blobstore-go/blobstore/internal/compression"
	"github.com/blobstore-go/blobstore/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "blobstore",
	Short: "Uniform blob storage CLI",
	Long:  "CLI for storing, listing, reading and deleting blobs in a filesystem or SQLite backend.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/blobstore/config.yaml)")
	rootCmd.PersistentFlags().String("backend", "", "storage backend: fs or sqlite (default: fs)")
	rootCmd.PersistentFlags().String("root", "", "fs backend root directory (default: ~/.local/share/blobstore)")
	rootCmd.PersistentFlags().String("db", "", "sqlite backend database file (default: <root>/blobs.db)")
	rootCmd.PersistentFlags().Bool("compress", false, "enable zstd at-rest compression (fs backend)")

	viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("compress", rootCmd.PersistentFlags().Lookup("compress"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("BLOBSTORE")
	viper.AutomaticEnv()
	viper.SetDefault("backend", "fs")
	viper.SetDefault("root", defaultDataDir())
	viper.SetDefault("db", filepath.Join(defaultDataDir(), "blobs.db"))

	viper.ReadInConfig()
}

// openStore builds the configured backend. The returned closer must be
// called once the command is done.
func openStore() (blobstore.Store, func() error, error) {
	switch backend := viper.GetString("backend"); backend {
	case "fs":
		var opts []fs.Option
		if viper.GetBool("compress") {
			opts = append(opts, fs.WithCompression(compression.Balanced))
		}
		s, err := fs.New(viper.GetString("root"), opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "sqlite":
		s, err := sqlite.Open(viper.GetString("db"))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (want fs or sqlite)", backend)
	}
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "blobstore")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "blobstore")
	}
	return ".blobstore"
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "blobstore")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "blobstore")
	}
	return ".blobstore"
}
