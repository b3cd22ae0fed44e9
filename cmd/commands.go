package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ochestra-tech/tablescaler/internal/api"
	"github.com/ochestra-tech/tablescaler/internal/collector"
	"github.com/ochestra-tech/tablescaler/internal/config"
	"github.com/ochestra-tech/tablescaler/internal/kubernetes"
	"github.com/ochestra-tech/tablescaler/internal/optimization"
	"github.com/ochestra-tech/tablescaler/internal/providers"
	"github.com/ochestra-tech/tablescaler/internal/state"
)

// options holds the CLI flags shared by every command
type options struct {
	configPath         string
	configMapNamespace string
	configMapName      string
	configMapKey       string
	kubeconfig         string
	inCluster          bool
	logLevel           string
	checkCredentials   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "tablescaler",
		Short:         "Adjusts DynamoDB provisioned capacity from recent utilization",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flags.StringVar(&opts.configMapNamespace, "configmap-namespace", "", "Namespace of the ConfigMap holding the configuration")
	flags.StringVar(&opts.configMapName, "configmap-name", "", "Name of the ConfigMap holding the configuration")
	flags.StringVar(&opts.configMapKey, "configmap-key", config.DefaultConfigMapKey, "ConfigMap data key holding the YAML document")
	flags.StringVar(&opts.kubeconfig, "kubeconfig", "", "Path to kubeconfig, used with --configmap-name")
	flags.BoolVar(&opts.inCluster, "in-cluster", false, "Use the in-cluster Kubernetes config, used with --configmap-name")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(opts), newServeCmd(opts), newValidateCmd(opts))
	return root
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Evaluate the table once and apply the decision",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, opts)
			if err != nil {
				return err
			}

			optimizer, err := buildOptimizer(ctx, cfg)
			if err != nil {
				return err
			}

			report, err := optimizer.RunOnce(ctx)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(report.Output(cfg.Debug), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Evaluate the table every check interval and serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := loadConfig(ctx, opts)
			if err != nil {
				return err
			}

			optimizer, err := buildOptimizer(ctx, cfg)
			if err != nil {
				return err
			}

			if err := optimizer.Start(); err != nil {
				return fmt.Errorf("failed to start optimizer: %w", err)
			}

			var server *api.Server
			serverErr := make(chan error, 1)
			if cfg.API.Enabled {
				server = api.NewServer(cfg.API, optimizer, logrus.StandardLogger())
				go func() {
					serverErr <- server.Start()
				}()
				logrus.Infof("API server listening on :%d", cfg.API.Port)
			}

			select {
			case <-ctx.Done():
				logrus.Info("Received shutdown signal")
			case err := <-serverErr:
				if err != nil {
					logrus.WithError(err).Error("API server error")
				}
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()

			if server != nil {
				logrus.Info("Shutting down API server...")
				if err := server.Shutdown(shutdownCtx); err != nil {
					logrus.WithError(err).Warn("API server shutdown error")
				}
			}

			logrus.Info("Shutting down optimizer...")
			optimizer.Stop()

			logrus.Info("Shutdown complete")
			return nil
		},
	}
}

func newValidateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and optionally the AWS credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, opts)
			if err != nil {
				return err
			}

			if opts.checkCredentials {
				sess, err := providers.NewSession(cfg.AWS)
				if err != nil {
					return err
				}
				if err := providers.NewAWSProvider(sess).ValidateCredentials(ctx); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "configuration valid for table %s\n", cfg.TableName)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.checkCredentials, "check-credentials", false, "Also verify the AWS credentials")
	return cmd
}

// loadConfig reads the configuration from a ConfigMap when one is named,
// otherwise from the file flag, and then configures logging from it.
func loadConfig(ctx context.Context, opts *options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if opts.configMapName != "" {
		if opts.configMapNamespace == "" {
			return nil, errors.New("--configmap-namespace is required with --configmap-name")
		}
		client, kerr := kubernetes.NewClient(kubernetes.Config{
			Kubeconfig: opts.kubeconfig,
			InCluster:  opts.inCluster,
		})
		if kerr != nil {
			return nil, kerr
		}
		cfg, err = config.LoadFromConfigMap(ctx, client, opts.configMapNamespace, opts.configMapName, opts.configMapKey)
	} else {
		cfg, err = config.Load(opts.configPath)
	}
	if err != nil {
		return nil, err
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := setupLogging(cfg.Log); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setupLogging(cfg config.LogConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// buildOptimizer wires the AWS provider, collector and state store
func buildOptimizer(ctx context.Context, cfg *config.Config) (*optimization.Optimizer, error) {
	sess, err := providers.NewSession(cfg.AWS)
	if err != nil {
		return nil, err
	}
	provider := providers.NewAWSProvider(sess)

	logger := logrus.StandardLogger()
	col := collector.New(provider, provider, collector.WithLogger(logger))

	var store state.Store
	switch cfg.State.Backend {
	case "dynamodb":
		store = state.NewDynamoDBStore(provider.DynamoDB(), cfg.State.TableName)
	default:
		store = state.NewMemoryStore()
	}

	return optimization.NewOptimizer(ctx, *cfg, col, provider, store, optimization.WithLogger(logger)), nil
}
