package db

import (
	"compress/gzip"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DevMode makes the migrate commands read migrations from
// internal/db/migrations on disk instead of the copy built into the binary.
var DevMode = false

// DefaultPath is the database file used when no path is given.
const DefaultPath = "motion_data.db"

type DB struct {
	*sql.DB
}

// getMigrationsFS returns the migrations directory as a filesystem rooted at
// the migration files themselves.
func getMigrationsFS() (fs.FS, error) {
	if DevMode {
		dir := filepath.Join("internal", "db", "migrations")
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("dev migrations directory: %w", err)
		}
		return os.DirFS(dir), nil
	}
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return sub, nil
}

// pragmas are applied to every pooled connection through the DSN, since
// busy_timeout and synchronous are per connection in sqlite. WAL lets the
// HTTP surface read while the recorder writes.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// OpenDB opens the database without touching the schema. The migrate
// command uses it so that migrations stay in control.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return &DB{sqlDB}, nil
}

// NewDB opens the database and brings its schema up to the latest version.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	migrations, err := getMigrationsFS()
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := db.MigrateUp(migrations); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	// create a tailSQL instance and point it to our DB
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://motion_data.db", db.DB, &tailsql.DBOptions{
		Label: "Motion DB",
	})

	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(db.serveBackup))
	return nil
}

// serveBackup writes a consistent copy of the database with VACUUM INTO and
// streams it gzipped to the client.
func (db *DB) serveBackup(w http.ResponseWriter, r *http.Request) {
	backupPath := filepath.Join(os.TempDir(), fmt.Sprintf("motion-backup-%d.db", time.Now().UnixNano()))
	if _, err := db.ExecContext(r.Context(), "VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(backupPath); err != nil {
			log.Printf("Failed to remove backup file: %v", err)
		}
	}()

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer backupFile.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", filepath.Base(backupPath)))
	w.Header().Set("Content-Type", "application/gzip")

	gzipWriter := gzip.NewWriter(w)
	defer gzipWriter.Close()
	if _, err := io.Copy(gzipWriter, backupFile); err != nil {
		log.Printf("Failed to stream backup: %v", err)
	}
}
