package preset

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	apperrors "go-nft-marker-gen/internal/errors"
	"go-nft-marker-gen/pkg/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Preset is a named generation-parameter bundle.
type Preset struct {
	Name      string                  `json:"name"`
	Config    models.GenerationConfig `json:"config"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// Store persists named generation presets in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the preset database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "presets.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
	}
	return nil
}

// List returns every preset ordered by name.
func (s *Store) List() ([]Preset, error) {
	rows, err := s.db.Query(`
		SELECT name, min_dpi, max_dpi, levels, feature_density, auto_enhance_contrast, contrast_factor, updated_at
		FROM presets ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presets []Preset
	for rows.Next() {
		p, err := scanPreset(rows.Scan)
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

// Get returns the preset with the given name, or a not-found error.
func (s *Store) Get(name string) (Preset, error) {
	row := s.db.QueryRow(`
		SELECT name, min_dpi, max_dpi, levels, feature_density, auto_enhance_contrast, contrast_factor, updated_at
		FROM presets WHERE name = ?`, name)

	p, err := scanPreset(row.Scan)
	if err == sql.ErrNoRows {
		return Preset{}, apperrors.NewNotFoundError(fmt.Sprintf("preset %q not found", name), nil)
	}
	if err != nil {
		return Preset{}, err
	}
	return p, nil
}

// Save validates and upserts a preset under the given name.
func (s *Store) Save(name string, cfg models.GenerationConfig) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.NewConfigError("preset name must not be empty", nil)
	}
	if err := cfg.Validate(); err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("invalid preset %q", name), err)
	}

	autoEnhance := 0
	if cfg.AutoEnhanceContrast {
		autoEnhance = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO presets (name, min_dpi, max_dpi, levels, feature_density, auto_enhance_contrast, contrast_factor, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			min_dpi = excluded.min_dpi,
			max_dpi = excluded.max_dpi,
			levels = excluded.levels,
			feature_density = excluded.feature_density,
			auto_enhance_contrast = excluded.auto_enhance_contrast,
			contrast_factor = excluded.contrast_factor,
			updated_at = excluded.updated_at`,
		name, cfg.MinDpi, cfg.MaxDpi, cfg.Levels, string(cfg.FeatureDensity),
		autoEnhance, cfg.ContrastFactor, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Delete removes a preset, failing with a not-found error when absent.
func (s *Store) Delete(name string) error {
	res, err := s.db.Exec(`DELETE FROM presets WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("preset %q not found", name), nil)
	}
	return nil
}

func scanPreset(scan func(dest ...any) error) (Preset, error) {
	var p Preset
	var density string
	var autoEnhance int
	var updatedAt string

	err := scan(&p.Name, &p.Config.MinDpi, &p.Config.MaxDpi, &p.Config.Levels,
		&density, &autoEnhance, &p.Config.ContrastFactor, &updatedAt)
	if err != nil {
		return Preset{}, err
	}

	p.Config.FeatureDensity = models.FeatureDensity(density)
	p.Config.AutoEnhanceContrast = autoEnhance != 0
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		p.UpdatedAt = t
	}
	return p, nil
}
