package db

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
)

// ErrUnknownMigrateAction is returned for an unrecognised migrate subcommand.
var ErrUnknownMigrateAction = errors.New("unknown migrate action")

// RunMigrateCommand handles the 'migrate' subcommand dispatching. Progress
// and status go to out.
func RunMigrateCommand(args []string, dbPath string, out io.Writer) error {
	if len(args) < 1 {
		PrintMigrateHelp(out)
		return fmt.Errorf("%w: none given", ErrUnknownMigrateAction)
	}
	action := args[0]
	if action == "help" {
		PrintMigrateHelp(out)
		return nil
	}

	migrations, err := getMigrationsFS()
	if err != nil {
		return err
	}

	// Open without schema initialisation; migrations manage the schema.
	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	switch action {
	case "up":
		fmt.Fprintln(out, "Running migrations...")
		if err := database.MigrateUp(migrations); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ All migrations applied successfully")
		return printVersion(out, database, migrations)

	case "down":
		fmt.Fprintln(out, "Rolling back one migration...")
		if err := database.MigrateDown(migrations); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ Migration rolled back successfully")
		return printVersion(out, database, migrations)

	case "status":
		return printStatus(out, database, migrations)

	case "version":
		v, err := versionArg(args)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Migrating to version %d...\n", v)
		if err := database.MigrateTo(migrations, uint(v)); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Migrated to version %d successfully\n", v)
		return nil

	case "force":
		v, err := versionArg(args)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "⚠️  Forcing migration version to %d\n", v)
		if err := database.MigrateForce(migrations, v); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Migration version forced to %d\n", v)
		return nil

	default:
		PrintMigrateHelp(out)
		return fmt.Errorf("%w: %s", ErrUnknownMigrateAction, action)
	}
}

func versionArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("usage: motion migrate %s <version_number>", args[0])
	}
	v, err := strconv.Atoi(args[1])
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid version number: %s", args[1])
	}
	return v, nil
}

func printVersion(out io.Writer, database *DB, migrations fs.FS) error {
	version, dirty, err := database.MigrateVersion(migrations)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", version, dirty)
	return nil
}

func printStatus(out io.Writer, database *DB, migrations fs.FS) error {
	version, dirty, err := database.MigrateVersion(migrations)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	latest, err := LatestMigrationVersion(migrations)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "=== Migration Status ===")
	fmt.Fprintf(out, "Current version: %d\n", version)
	fmt.Fprintf(out, "Latest available: %d\n", latest)
	fmt.Fprintf(out, "Dirty: %v\n", dirty)

	switch {
	case dirty:
		fmt.Fprintln(out, "\n⚠️  WARNING: Database is in a dirty state!")
		fmt.Fprintln(out, "A migration failed mid-execution. Inspect the database, then run:")
		fmt.Fprintln(out, "  motion migrate force <version>")
	case version < latest:
		fmt.Fprintf(out, "\n⚠️  Database is %d version(s) behind. Run 'motion migrate up' to update.\n", latest-version)
	default:
		fmt.Fprintln(out, "\n✓ Database is up to date!")
	}
	return nil
}

// PrintMigrateHelp displays the help message for the migrate command.
func PrintMigrateHelp(out io.Writer) {
	fmt.Fprint(out, `Database Migration Commands

Usage: motion migrate [options] <command>

Commands:
  up              Apply all pending migrations
  down            Rollback one migration
  status          Show current migration status and version
  version <N>     Migrate to specific version N
  force <N>       Force migration version to N (recovery only)
  help            Show this help message

Options:
  --db <path>         Path to database file (default: motion_data.db)
`)
}
