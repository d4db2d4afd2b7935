// Package synccmd provides the `gamerack sync` command: pull game metadata
// from IGDB into the local catalog.
package synccmd

import (
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gamerack/gamerack/internal/catalog/igdb"
	"github.com/gamerack/gamerack/internal/cli/common"
	"github.com/gamerack/gamerack/internal/db"
	catalogrepo "github.com/gamerack/gamerack/internal/repo/gorm/catalog"
)

// New returns the `gamerack sync` command.
func New() *cobra.Command {
	var cfgFile string
	var idsFlag string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync game metadata from IGDB into the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := common.LoadConfig(cfgFile, "sync")
			if err != nil {
				return err
			}
			common.SetupLoggerFromViper(v)
			if err := common.ValidateSyncConfig(v); err != nil {
				return fmt.Errorf("config invalid: %w", err)
			}

			ids, err := parseIDs(idsFlag)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return fmt.Errorf("--ids required (comma-separated IGDB ids)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gdb, err := db.Open(v.GetString("db.driver"), v.GetString("db.dsn"))
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := catalogrepo.AutoMigrate(gdb); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			client := igdb.NewClient(v.GetString("igdb.client_id"), v.GetString("igdb.client_secret"))
			syncer := igdb.NewSyncer(client, catalogrepo.NewRepo(gdb), v.GetInt("igdb.workers"))
			return syncer.Sync(ctx, ids)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.Flags().StringVar(&idsFlag, "ids", "", "comma-separated IGDB game ids to sync")
	return cmd
}

func parseIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id %q: %w", p, err)
		}
		out = append(out, id)
	}
	return out, nil
}
