package binimage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// HistoryDB records completed conversions in a SQLite database.
type HistoryDB struct {
	db *sql.DB
}

// Conversion is a single recorded conversion.
type Conversion struct {
	ID      int64
	SHA1    string
	Input   string
	Output  string
	Format  string
	Width   uint32
	Height  uint32
	Length  uint64
	Padding uint64
	Created time.Time
}

// NewHistoryDB opens or creates the database in file.
func NewHistoryDB(file string) (*HistoryDB, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, err
	}
	// Batch conversions record concurrently, SQLite only has the one writer
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS conversion (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL, input TEXT NOT NULL, output TEXT NOT NULL, format TEXT NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, length INTEGER NOT NULL, padding INTEGER NOT NULL, created DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE INDEX IF NOT EXISTS conversion_sha1 ON conversion (sha1)"); err != nil {
		db.Close()
		return nil, err
	}

	return &HistoryDB{
		db: db,
	}, nil
}

// Close closes the database.
func (db *HistoryDB) Close() error {
	return db.db.Close()
}

// Record stores c and returns its ID. Recording the same conversion of the
// same input to the same output again returns the existing ID.
func (db *HistoryDB) Record(c Conversion) (int64, error) {
	var id int64
	switch err := db.db.QueryRow("SELECT id FROM conversion WHERE sha1 = ? AND output = ? AND format = ? AND width = ? AND height = ?", c.SHA1, c.Output, c.Format, c.Width, c.Height).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := db.db.Exec("INSERT INTO conversion (sha1, input, output, format, width, height, length, padding) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", c.SHA1, c.Input, c.Output, c.Format, c.Width, c.Height, c.Length, c.Padding)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

func (db *HistoryDB) query(query string, args ...interface{}) ([]Conversion, error) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversions []Conversion
	for rows.Next() {
		var c Conversion
		if err := rows.Scan(&c.ID, &c.SHA1, &c.Input, &c.Output, &c.Format, &c.Width, &c.Height, &c.Length, &c.Padding, &c.Created); err != nil {
			return nil, err
		}
		conversions = append(conversions, c)
	}

	return conversions, rows.Err()
}

const selectConversion = "SELECT id, sha1, input, output, format, width, height, length, padding, created FROM conversion"

// List returns every recorded conversion, oldest first.
func (db *HistoryDB) List() ([]Conversion, error) {
	return db.query(selectConversion + " ORDER BY id")
}

// FindBySHA1 returns the conversions of any input with the given SHA-1.
func (db *HistoryDB) FindBySHA1(sha string) ([]Conversion, error) {
	return db.query(selectConversion+" WHERE sha1 = ? ORDER BY id", sha)
}
