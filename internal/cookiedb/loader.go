package cookiedb

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// openCookieDatabaseClasses maps Open Cookie Database category names to ICC
// classes. The vendor uses its own vocabulary; notably its "Functional"
// means strictly necessary, not ICC Functionality.
var openCookieDatabaseClasses = map[string]Class{
	"Functional":  StrictlyNecessary,
	"Preferences": Functionality,
	"Analytics":   Performance,
	"Marketing":   Targeting,
}

// Open Cookie Database CSV column indexes.
// See https://github.com/jkwakman/Open-Cookie-Database
const (
	openCookieDatabaseClassColumn = 2
	openCookieDatabaseKeyColumn   = 3
)

// LoadOpenCookieDatabase loads a Store from an Open Cookie Database CSV
// export. The first row is a header and is skipped.
func LoadOpenCookieDatabase(path string) (*Store, error) {
	file, err := os.Open(path) //nolint:gosec // User-provided database path is intentional
	if err != nil {
		return nil, fmt.Errorf("open cookie database: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // vendor rows vary in trailing columns

	classes := make(map[string]Class)
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("open cookie database %s: %w", path, err)
		}

		row++
		if row == 1 {
			continue // header
		}
		if len(record) <= openCookieDatabaseKeyColumn {
			return nil, fmt.Errorf("%w: %s row %d has %d columns", ErrMalformedSource, path, row, len(record))
		}

		class, ok := openCookieDatabaseClasses[record[openCookieDatabaseClassColumn]]
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s row %d", ErrUnknownClass, record[openCookieDatabaseClassColumn], path, row)
		}
		classes[record[openCookieDatabaseKeyColumn]] = class
	}

	return &Store{classes: classes}, nil
}

// cookieScriptRecord is one JSON line of a Cookie-Script export.
type cookieScriptRecord struct {
	Website string `json:"website"`
	Cookies []struct {
		CookieKey string `json:"cookieKey"`
		Class     string `json:"class"`
	} `json:"cookies"`
}

// LoadCookieScript loads a Store from a Cookie-Script JSON-lines export.
// Each line holds one website object with its classified cookies; class
// names are the canonical ICC display names.
func LoadCookieScript(path string) (*Store, error) {
	file, err := os.Open(path) //nolint:gosec // User-provided database path is intentional
	if err != nil {
		return nil, fmt.Errorf("cookie script database: %w", err)
	}
	defer file.Close()

	classes := make(map[string]Class)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024) // website records can be large

	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var record cookieScriptRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrMalformedSource, path, line, err)
		}

		for _, cookie := range record.Cookies {
			class, err := ParseClass(cookie.Class)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, line, err)
			}
			classes[cookie.CookieKey] = class
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cookie script database %s: %w", path, err)
	}

	return &Store{classes: classes}, nil
}

// LoadSQLite loads a Store from a prepared SQLite database.
// The database must contain a "cookies" table with "name" and "class"
// columns, class holding the canonical ICC display name.
//
// Design decision: SQLite is offered alongside the flat-file formats because
// curated classification databases grow to hundreds of thousands of rows;
// preparing them once into SQLite keeps process start fast and lets several
// crawl runs share one read-only file.
func LoadSQLite(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("sqlite cookie database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT name, class FROM cookies")
	if err != nil {
		return nil, fmt.Errorf("sqlite cookie database %s: %w", path, err)
	}
	defer rows.Close()

	classes := make(map[string]Class)
	for rows.Next() {
		var name, className string
		if err := rows.Scan(&name, &className); err != nil {
			return nil, fmt.Errorf("sqlite cookie database %s: %w", path, err)
		}

		class, err := ParseClass(className)
		if err != nil {
			return nil, fmt.Errorf("sqlite cookie database %s: %w", path, err)
		}
		classes[name] = class
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite cookie database %s: %w", path, err)
	}

	return &Store{classes: classes}, nil
}

// Load opens a classification data source, picking the loader by file
// extension: .csv for an Open Cookie Database export, .json for a
// CookieScript dump, .db or .sqlite for a prepared SQLite database.
// An empty path yields an empty store, so a crawl without a database still
// runs and simply classifies everything as Unclassified.
func Load(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return NewStore(nil), nil
	}
	switch filepath.Ext(path) {
	case ".csv":
		return LoadOpenCookieDatabase(path)
	case ".json":
		return LoadCookieScript(path)
	case ".db", ".sqlite":
		return LoadSQLite(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}
