// Command migrate applies the update journal schema outside the server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/config"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/migrate"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/logger"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate [up|down|status|version]")
		flag.PrintDefaults()
	}
	dsnFlag := flag.String("dsn", "", "Postgres DSN (defaults to DATABASE_URL or the POSTGRES_* variables)")
	flag.Parse()

	cmd := "up"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	log := logger.NewLogger()
	if err := run(context.Background(), cmd, *dsnFlag, log); err != nil {
		log.Error("migration failed", slog.String("command", cmd), logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd, dsn string, log *slog.Logger) error {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		dsn = cfg.Database.DSN()
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	defer sqldb.Close()

	m := migrate.NewSQLMigrator(sqldb, log)
	switch cmd {
	case "up":
		return m.Up(ctx)
	case "down":
		return m.Down(ctx)
	case "status":
		return m.Status(ctx)
	case "version":
		v, err := m.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}
