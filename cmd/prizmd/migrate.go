package prizmd

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/spf13/cobra"

	"github.com/prizm-dev/prizm/internal/config"
	"github.com/prizm-dev/prizm/internal/memory"
	"github.com/prizm-dev/prizm/internal/workflow"
)

// migrateCmd provides an up/version subcommand split for this module's
// embedded-sqlite-migration databases (internal/memory, internal/workflow).
// There is no external migrations directory or DSN to point at, since
// migrations ship baked into the binary and are applied automatically by
// Open.
func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration management",
	}
	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateVersionCmd())
	return cmd
}

func dbPaths(cfg *config.Config) (memDB, workflowDB string) {
	dataDir := cfg.DataDirPath()
	memDB = cfg.Database.Path
	if memDB == "" {
		memDB = filepath.Join(dataDir, "prizm.db")
	}
	workflowDB = filepath.Join(dataDir, "workflows.db")
	return
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			memDB, workflowDB := dbPaths(cfg)

			mem, err := memory.Open(memDB)
			if err != nil {
				return fmt.Errorf("migrate memory db: %w", err)
			}
			mem.Close()
			fmt.Printf("memory db up to date: %s\n", memDB)

			wf, err := workflow.Open(workflowDB)
			if err != nil {
				return fmt.Errorf("migrate workflow db: %w", err)
			}
			wf.Close()
			fmt.Printf("workflow db up to date: %s\n", workflowDB)

			return nil
		},
	}
}

func migrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show current migration version of each database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			memDB, workflowDB := dbPaths(cfg)

			printVersion("memory", memDB)
			printVersion("workflow", workflowDB)
			return nil
		},
	}
}

func printVersion(label, path string) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Printf("%s: open failed: %s\n", label, err)
		return
	}
	defer db.Close()

	var version int
	var dirty bool
	err = db.QueryRow(`SELECT version, dirty FROM schema_migrations`).Scan(&version, &dirty)
	if err != nil {
		fmt.Printf("%s: no migrations applied yet (%s)\n", label, path)
		return
	}
	fmt.Printf("%s: version %d, dirty=%v (%s)\n", label, version, dirty, path)
}
