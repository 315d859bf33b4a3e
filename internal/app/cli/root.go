// Package cli implements cineshelfctl, the operator command line. It talks
// to MongoDB directly and covers what has no action: admin flags, token
// issuing, schema setup and reading the audit trail.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Opener connects to the database named by uri and name. The returned
// func releases the connection.
type Opener func(ctx context.Context, uri, name string) (*mongo.Database, func(), error)

// Env is what every subcommand runs against.
type Env struct {
	DB  *mongo.Database
	Log *zap.Logger
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := NewRootCmd(ConnectMongo, nil)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCmd builds the command tree. A nil logger builds a production zap
// logger when a command runs.
func NewRootCmd(open Opener, logger *zap.Logger) *cobra.Command {
	var (
		mongoURI string
		database string
		output   string
		timeout  time.Duration
	)

	env := &Env{}
	var release func()

	rootCmd := &cobra.Command{
		Use:           "cineshelfctl",
		Short:         "CineShelf operator CLI",
		Long:          "Administrative commands for a CineShelf deployment, run against its MongoDB database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutputFormat(output); err != nil {
				return err
			}
			if env.Log == nil {
				if logger == nil {
					l, err := zap.NewProduction()
					if err != nil {
						return fmt.Errorf("build logger: %w", err)
					}
					logger = l
				}
				env.Log = logger
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			db, done, err := open(ctx, mongoURI, database)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", database, err)
			}
			env.DB = db
			release = done
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if release != nil {
				release()
			}
			if env.Log != nil {
				_ = env.Log.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongo-uri", envOr("CINESHELF_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	rootCmd.PersistentFlags().StringVar(&database, "mongo-database", envOr("CINESHELF_MONGO_DATABASE", "cineshelf"), "MongoDB database name")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "connect-timeout", 10*time.Second, "MongoDB connect timeout")

	rootCmd.AddCommand(
		newUserCmd(env),
		newTokenCmd(env),
		newIndexesCmd(env),
		newAuditCmd(env),
	)
	return rootCmd
}

// ConnectMongo is the production Opener.
func ConnectMongo(ctx context.Context, uri, name string) (*mongo.Database, func(), error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	done := func() { _ = client.Disconnect(context.Background()) }
	return client.Database(name), done, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
