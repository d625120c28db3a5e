package cookiedb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestStoreLookup tests the total lookup contract.
func TestStoreLookup(t *testing.T) {
	t.Parallel()

	store := NewStore(map[string]Class{
		"_ga":         Performance,
		"session_id":  StrictlyNecessary,
		"lang_pref":   Functionality,
		"_fbp":        Targeting,
		"mystery_key": Unclassified,
	})

	tests := []struct {
		name   string
		cookie string
		want   Class
	}{
		{"performance cookie", "_ga", Performance},
		{"necessary cookie", "session_id", StrictlyNecessary},
		{"functionality cookie", "lang_pref", Functionality},
		{"targeting cookie", "_fbp", Targeting},
		{"known unclassified", "mystery_key", Unclassified},
		{"unknown key", "never_seen_before", Unclassified},
		{"empty key", "", Unclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := store.Lookup(tt.cookie); got != tt.want {
				t.Errorf("Lookup(%q) = %v, want %v", tt.cookie, got, tt.want)
			}
		})
	}

	t.Run("IsNecessary", func(t *testing.T) {
		t.Parallel()

		if !store.IsNecessary("session_id") {
			t.Error("expected session_id to be necessary")
		}
		if store.IsNecessary("_ga") {
			t.Error("expected _ga to not be necessary")
		}
	})

	t.Run("immutable against caller mutation", func(t *testing.T) {
		t.Parallel()

		source := map[string]Class{"a": Targeting}
		s := NewStore(source)
		source["a"] = Performance
		if got := s.Lookup("a"); got != Targeting {
			t.Errorf("expected Targeting after source mutation, got %v", got)
		}
	})
}

// TestMerge tests multi-source precedence.
func TestMerge(t *testing.T) {
	t.Parallel()

	first := NewStore(map[string]Class{"_ga": Performance, "only_first": Targeting})
	second := NewStore(map[string]Class{"_ga": Targeting})

	merged := Merge(first, second)

	// Last-loaded source wins on disagreement.
	if got := merged.Lookup("_ga"); got != Targeting {
		t.Errorf("expected last source to win, got %v", got)
	}
	if got := merged.Lookup("only_first"); got != Targeting {
		t.Errorf("expected entry unique to first source to survive, got %v", got)
	}
}

// TestParseClass tests display-name round trips.
func TestParseClass(t *testing.T) {
	t.Parallel()

	for _, class := range []Class{Unclassified, StrictlyNecessary, Performance, Functionality, Targeting} {
		parsed, err := ParseClass(class.String())
		if err != nil {
			t.Fatalf("ParseClass(%q): %v", class.String(), err)
		}
		if parsed != class {
			t.Errorf("round trip of %v gave %v", class, parsed)
		}
	}

	if _, err := ParseClass("Advertising"); !errors.Is(err, ErrUnknownClass) {
		t.Errorf("expected ErrUnknownClass, got %v", err)
	}
}

// TestLoadOpenCookieDatabase tests the CSV loader.
func TestLoadOpenCookieDatabase(t *testing.T) {
	t.Parallel()

	t.Run("loads and maps vendor classes", func(t *testing.T) {
		t.Parallel()

		csvData := `ID,Platform,Category,Cookie / Data Key name,Domain,Description
1,Google Analytics,Analytics,_ga,google.com,Used to distinguish users
2,Generic,Functional,PHPSESSID,,PHP session cookie
3,Generic,Preferences,lang,,Language preference
4,Facebook,Marketing,_fbp,facebook.com,Advertising
`
		path := filepath.Join(t.TempDir(), "open_cookie_database.csv")
		if err := os.WriteFile(path, []byte(csvData), 0600); err != nil {
			t.Fatal(err)
		}

		store, err := LoadOpenCookieDatabase(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tests := []struct {
			cookie string
			want   Class
		}{
			{"_ga", Performance},
			{"PHPSESSID", StrictlyNecessary},
			{"lang", Functionality},
			{"_fbp", Targeting},
			{"unknown", Unclassified},
		}
		for _, tt := range tests {
			if got := store.Lookup(tt.cookie); got != tt.want {
				t.Errorf("Lookup(%q) = %v, want %v", tt.cookie, got, tt.want)
			}
		}
	})

	t.Run("rejects unknown vendor class", func(t *testing.T) {
		t.Parallel()

		csvData := "ID,Platform,Category,Key\n1,X,Nonsense,cookie_name\n"
		path := filepath.Join(t.TempDir(), "bad.csv")
		if err := os.WriteFile(path, []byte(csvData), 0600); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadOpenCookieDatabase(path); !errors.Is(err, ErrUnknownClass) {
			t.Errorf("expected ErrUnknownClass, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadOpenCookieDatabase(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

// TestLoadCookieScript tests the JSON-lines loader.
func TestLoadCookieScript(t *testing.T) {
	t.Parallel()

	t.Run("loads classified cookies", func(t *testing.T) {
		t.Parallel()

		jsonl := `{"website":"example.com","cookies":[{"cookieKey":"_ga","class":"Performance"},{"cookieKey":"sid","class":"Strictly Necessary"}]}
{"website":"example.org","cookies":[{"cookieKey":"_fbp","class":"Targeting"}]}
`
		path := filepath.Join(t.TempDir(), "cookie_script.json")
		if err := os.WriteFile(path, []byte(jsonl), 0600); err != nil {
			t.Fatal(err)
		}

		store, err := LoadCookieScript(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := store.Lookup("_ga"); got != Performance {
			t.Errorf("Lookup(_ga) = %v, want Performance", got)
		}
		if got := store.Lookup("sid"); got != StrictlyNecessary {
			t.Errorf("Lookup(sid) = %v, want StrictlyNecessary", got)
		}
		if got := store.Lookup("_fbp"); got != Targeting {
			t.Errorf("Lookup(_fbp) = %v, want Targeting", got)
		}
	})

	t.Run("rejects malformed line", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(path, []byte("{not json}\n"), 0600); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadCookieScript(path); !errors.Is(err, ErrMalformedSource) {
			t.Errorf("expected ErrMalformedSource, got %v", err)
		}
	})
}

// TestLoadSQLite tests the SQLite loader.
func TestLoadSQLite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cookies.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`CREATE TABLE cookies (name TEXT PRIMARY KEY, class TEXT NOT NULL)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO cookies (name, class) VALUES ('_ga', 'Performance'), ('sid', 'Strictly Necessary')`); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	store, err := LoadSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.Lookup("_ga"); got != Performance {
		t.Errorf("Lookup(_ga) = %v, want Performance", got)
	}
	if got := store.Lookup("absent"); got != Unclassified {
		t.Errorf("Lookup(absent) = %v, want Unclassified", got)
	}
}
