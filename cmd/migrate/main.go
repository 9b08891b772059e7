package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/marketplace/backend/internal/infrastructure/logger"
	"github.com/marketplace/backend/internal/infrastructure/migration"
	"github.com/marketplace/backend/migrations"
	"go.uber.org/zap"
)

const usage = `Marketplace schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations, negative n rolls back
  goto <version>        Migrate up or down to a version
  version               Show the applied version
  force <version>       Mark a version applied after repairing a dirty schema
  create <name> [desc]  Write a new up/down pair into -path
  list                  List migrations

Flags:
  -path string          Migrations directory. Without it the migrations
                        compiled into the binary are used.
  -log-level string     debug, info, warn or error (default info)

The database is configured through MKT_DATABASE_HOST, MKT_DATABASE_PORT,
MKT_DATABASE_USER, MKT_DATABASE_PASSWORD, MKT_DATABASE_DBNAME and
MKT_DATABASE_SSLMODE.`

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "", "Migrations directory (default: embedded migrations)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	var source fs.FS = migrations.FS
	if migrationsPath != "" {
		source = os.DirFS(migrationsPath)
	}

	switch cmd := args[0]; cmd {
	case "create":
		if migrationsPath == "" {
			migrationsPath = "migrations"
		}
		name, description := arg(args, 1), arg(args, 2)
		if name == "" {
			log.Fatal("Migration name required: migrate create <name> [description]")
		}
		p, err := migration.Create(migrationsPath, name, description, time.Now())
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.String("version", p.Version),
			zap.String("up", p.Up),
			zap.String("down", p.Down),
		)

	case "list":
		names, err := migration.List(source)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		log.Info("Migrations", zap.Int("count", len(names)))
		for _, name := range names {
			fmt.Println("  -", name)
		}

	case "up", "down", "step", "goto", "version", "force":
		if err := migrateDatabase(log, source, cmd, arg(args, 1)); err != nil {
			log.Fatal("Migration failed", zap.String("command", cmd), zap.Error(err))
		}

	default:
		log.Error("Unknown command", zap.String("command", cmd))
		flag.Usage()
		os.Exit(2)
	}
}

func migrateDatabase(log *zap.Logger, source fs.FS, cmd, param string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	// the migrator owns db from here on
	m, err := migration.New(db, source, log)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() {
		_ = m.Close()
	}()

	switch cmd {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		n, err := strconv.Atoi(param)
		if err != nil {
			return fmt.Errorf("step count %q: %w", param, err)
		}
		return m.Steps(n)
	case "goto":
		version, err := strconv.ParseUint(param, 10, 64)
		if err != nil {
			return fmt.Errorf("version %q: %w", param, err)
		}
		return m.GoTo(uint(version))
	case "force":
		version, err := strconv.Atoi(param)
		if err != nil {
			return fmt.Errorf("version %q: %w", param, err)
		}
		return m.Force(version)
	default:
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	}
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
