// Package main contains the restadmin cli: an instant admin back office
// over a schema-describing REST API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/koustreak/restadmin/internal/admin"
	"github.com/koustreak/restadmin/internal/client"
	"github.com/koustreak/restadmin/internal/config"
	"github.com/koustreak/restadmin/internal/export"
	"github.com/koustreak/restadmin/internal/filestore/minio"
	"github.com/koustreak/restadmin/internal/logger"
	"github.com/koustreak/restadmin/internal/schema"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "restadmin",
		Short: "Schema-driven admin interface over a REST data API",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to yaml config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(schemaCmd(&configPath))
	rootCmd.AddCommand(exportCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// bootstrap connects the client and fetches the schema; failure here is
// fatal to the whole application.
func bootstrap(ctx context.Context, cfg *config.Config, log *logger.Logger) (*client.Client, *schema.Schema, error) {
	c, err := client.New(cfg.Host, client.NewAuthCell(cfg.Token()), log)
	if err != nil {
		return nil, nil, err
	}
	s, err := c.FetchSchema(ctx, cfg.Overrides())
	if err != nil {
		return nil, nil, err
	}
	return c, s, nil
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.LoggerConfig())

			c, s, err := bootstrap(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			log.Infof("schema loaded: %d tables", s.Len())

			var archiver *export.Archiver
			if storeCfg := cfg.StoreConfig(); storeCfg != nil {
				store, err := minio.New(cmd.Context(), storeCfg)
				if err != nil {
					return err
				}
				defer store.Close()
				archiver = export.NewArchiver(store, storeCfg.Bucket)
			}

			srv := admin.New(c, s, log, archiver)
			log.Infof("listening on %s", cfg.Listen)
			return http.ListenAndServe(cfg.Listen, srv)
		},
	}
}

func schemaCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Fetch and dump the decoded schema as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			_, s, err := bootstrap(cmd.Context(), cfg, logger.Nop())
			if err != nil {
				return err
			}

			dump := make(map[string][]map[string]any, s.Len())
			for _, table := range s.TableNames() {
				def, _ := s.Table(table)
				cols := make([]map[string]any, 0, def.Len())
				for _, col := range def.Columns() {
					entry := map[string]any{
						"name":       col.Name,
						"kind":       col.Value.Kind.String(),
						"required":   col.Required,
						"constraint": col.Constraint.String(),
					}
					if params := col.Value.FKParams; params != nil {
						entry["references"] = params.Table
					}
					cols = append(cols, entry)
				}
				dump[table] = cols
			}
			return json.NewEncoder(os.Stdout).Encode(dump)
		},
	}
}

func exportCmd(configPath *string) *cobra.Command {
	var format string
	var archive bool

	cmd := &cobra.Command{
		Use:   "export <table>",
		Short: "Export a table as CSV or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.LoggerConfig())

			c, s, err := bootstrap(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			def, ok := s.Table(args[0])
			if !ok {
				return fmt.Errorf("unknown table %q", args[0])
			}

			rows, err := c.FetchMany(cmd.Context(), def, client.ListParams{
				OrderBy: firstPK(def),
			})
			if err != nil {
				return err
			}

			var data []byte
			if format == "json" {
				data, err = export.JSON(def, rows)
			} else {
				data, err = export.CSV(def, rows)
			}
			if err != nil {
				return err
			}

			if archive {
				storeCfg := cfg.StoreConfig()
				if storeCfg == nil {
					return fmt.Errorf("export storage is not configured")
				}
				store, err := minio.New(cmd.Context(), storeCfg)
				if err != nil {
					return err
				}
				defer store.Close()
				url, err := export.NewArchiver(store, storeCfg.Bucket).
					Archive(cmd.Context(), def.Name, format, data)
				if err != nil {
					return err
				}
				fmt.Println(url)
				return nil
			}

			_, err = os.Stdout.Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format: csv or json")
	cmd.Flags().BoolVar(&archive, "archive", false, "upload to the configured object store and print a download url")
	return cmd
}

// firstPK returns the table's primary-key column for a stable export
// order, or "" for tables without one.
func firstPK(def *schema.TableDefinition) string {
	if name, ok := def.PrimaryKeyName(); ok {
		return name
	}
	return ""
}
