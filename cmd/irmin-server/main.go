// Command irmin-server is a thin CLI wrapper around package server,
// following the doProtoServer/RegisterProtoServer pattern in the
// teacher's storage/mkvs/urkel/interop/cmd/protocol_server.go: flags
// bound through spf13/pflag, read through spf13/viper, on a
// spf13/cobra root command. CLI wrapping, configuration loading, and
// logging setup are explicitly out of scope for the core (§1); this
// file is the thinnest possible glue around it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/icristescu/irmin-server/common/logging"
	"github.com/icristescu/irmin-server/common/tracing"
	"github.com/icristescu/irmin-server/model"
	"github.com/icristescu/irmin-server/server"
	"github.com/icristescu/irmin-server/store"
)

const (
	cfgURI            = "uri"
	cfgTLSCertPath    = "tls.cert_path"
	cfgTLSKeyPath     = "tls.key_path"
	cfgWithLowerLayer = "with_lower_layer"
	cfgDataDir        = "data_dir"
	cfgMaxConnections = "max_connections"
	cfgMetricsAddr    = "metrics_addr"
	cfgLogLevel       = "log_level"
	cfgDefaultBranch  = "default_branch"
)

var (
	rootFlags = flag.NewFlagSet("", flag.ContinueOnError)

	rootCmd = &cobra.Command{
		Use:   "irmin-server",
		Short: "serve a content-addressed versioned key-value store over the network",
		Run:   doServe,
	}
)

func doServe(cmd *cobra.Command, args []string) {
	logging.SetLevel(parseLevel(viper.GetString(cfgLogLevel)))
	logger := logging.GetLogger("cmd/irmin-server")

	if closer, err := tracing.InitTracer("irmin-server"); err != nil {
		logger.Warn("tracing disabled", "err", err)
	} else {
		defer closer.Close()
	}

	defaultBranch := model.BranchName(viper.GetString(cfgDefaultBranch))

	var repo *store.Repo
	if viper.GetBool(cfgWithLowerLayer) {
		dataDir := viper.GetString(cfgDataDir)
		r, err := store.NewPersistentRepo(dataDir, defaultBranch)
		if err != nil {
			logger.Error("failed to open persistent repo", "err", err, "data_dir", dataDir)
			os.Exit(1)
		}
		repo = r
	} else {
		repo = store.NewMemoryRepo(defaultBranch)
	}

	cfg := server.Config{
		URI:            viper.GetString(cfgURI),
		MaxConnections: viper.GetInt(cfgMaxConnections),
		MetricsAddr:    viper.GetString(cfgMetricsAddr),
	}
	if certPath := viper.GetString(cfgTLSCertPath); certPath != "" {
		cfg.TLS = &server.TLSConfig{
			CertPath: certPath,
			KeyPath:  viper.GetString(cfgTLSKeyPath),
		}
	}

	srv := server.New(cfg, repo)
	logger.Info("starting", "uri", cfg.URI)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func init() {
	rootFlags.String(cfgURI, "unix:///tmp/irmin-server.sock", "listen uri (unix://path or tcp://host:port)")
	rootFlags.String(cfgTLSCertPath, "", "TLS certificate path (enables TLS when set)")
	rootFlags.String(cfgTLSKeyPath, "", "TLS private key path")
	rootFlags.Bool(cfgWithLowerLayer, false, "back the repo with badger/bbolt instead of an in-memory store")
	rootFlags.String(cfgDataDir, "irmin-data", "data directory when with_lower_layer is set")
	rootFlags.Int(cfgMaxConnections, 0, "maximum concurrent sessions (0 = unbounded)")
	rootFlags.String(cfgMetricsAddr, "", "address to expose Prometheus /metrics on (empty disables it)")
	rootFlags.String(cfgLogLevel, "info", "log level: debug, info, warn, error")
	rootFlags.String(cfgDefaultBranch, "main", "the branch new sessions start on")

	rootCmd.Flags().AddFlagSet(rootFlags)
	_ = viper.BindPFlags(rootFlags)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
