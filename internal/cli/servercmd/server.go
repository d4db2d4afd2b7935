// Package servercmd provides the `gamerack server` command.
package servercmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/gamerack/gamerack/internal/auth/token"
	"github.com/gamerack/gamerack/internal/cli/common"
	"github.com/gamerack/gamerack/internal/db"
	"github.com/gamerack/gamerack/internal/events/mq"
	auditrepo "github.com/gamerack/gamerack/internal/repo/gorm/audit"
	catalogrepo "github.com/gamerack/gamerack/internal/repo/gorm/catalog"
	libraryrepo "github.com/gamerack/gamerack/internal/repo/gorm/library"
	"github.com/gamerack/gamerack/internal/repo/gorm/txn"
	httpserver "github.com/gamerack/gamerack/internal/server/http"
	librarysvc "github.com/gamerack/gamerack/internal/service/library"
	"github.com/gamerack/gamerack/internal/telemetry"
)

// New returns the `gamerack server` command.
func New() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the gamerack library service",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := common.LoadConfig(cfgFile, "server")
			if err != nil {
				return err
			}
			common.SetupLoggerFromViper(v)
			if err := common.ValidateServerConfig(v); err != nil {
				return fmt.Errorf("config invalid: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gdb, err := db.Open(v.GetString("db.driver"), v.GetString("db.dsn"))
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := migrate(gdb); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			provider, err := telemetry.NewProvider(ctx, telemetry.Config{
				ServiceName:    "gamerack",
				ServiceVersion: v.GetString("version"),
				Environment:    v.GetString("environment"),
				CollectorURL:   v.GetString("otel.collector_url"),
			})
			if err != nil {
				return fmt.Errorf("telemetry: %w", err)
			}
			defer func() {
				if err := provider.Shutdown(context.Background()); err != nil {
					slog.Warn("telemetry shutdown", "error", err)
				}
			}()

			queue := mq.New(mq.Config{
				Type:        v.GetString("events.type"),
				Brokers:     v.GetStringSlice("events.kafka_brokers"),
				Topic:       v.GetString("events.kafka_topic"),
				RedisURL:    v.GetString("events.redis_url"),
				RedisStream: v.GetString("events.redis_stream"),
				RedisMaxLen: v.GetInt64("events.redis_maxlen"),
				RedisApprox: true,
			})
			defer queue.Close()

			store := libraryrepo.NewStore(gdb)
			ledger := auditrepo.NewLedger(gdb)
			catalog := catalogrepo.NewRepo(gdb)
			opts := []librarysvc.Option{
				librarysvc.WithQueue(queue),
				librarysvc.WithMetrics(provider.LibraryMetrics),
			}
			if n := v.GetInt("max_retries"); n > 0 {
				opts = append(opts, librarysvc.WithMaxRetries(n))
			}
			svc := librarysvc.NewService(txn.New(gdb), store, ledger, catalog, opts...)
			query := librarysvc.NewQueryService(store, ledger)
			jwtMgr := token.NewManager(v.GetString("auth.jwt_secret"))

			srv := httpserver.New(svc, query, catalog, jwtMgr)
			return srv.Serve(ctx, v.GetString("http_addr"))
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file path")
	return cmd
}

func migrate(db *gorm.DB) error {
	if err := catalogrepo.AutoMigrate(db); err != nil {
		return err
	}
	if err := libraryrepo.AutoMigrate(db); err != nil {
		return err
	}
	return auditrepo.AutoMigrate(db)
}
