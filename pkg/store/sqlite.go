package store

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/gridseam/gridseam/pkg/errors"
	"github.com/gridseam/gridseam/pkg/grid"
)

const profileAttr = "grid_profile"

// SQLiteStore is the file-backed store: one sqlite file holding the grid
// profile, global attributes, and named layer blobs.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens an existing store file. The file must have been created
// with CreateSQLite; opening a path with no store is an error.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "store %s does not exist", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "open store %s", path)
	}
	s := &SQLiteStore{db: db, path: path}
	if _, err := s.Profile(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// CreateSQLite creates a new store file, copying the grid profile, global
// attributes, and per-cell coordinate arrays from the template store, and
// seeding a constant region layer. Creation is expensive and destructive,
// so an existing file is a STORE_EXISTS error unless overwrite is set.
// The caller must let creation run to completion before writing layers.
func CreateSQLite(path string, template Store, overwrite bool) (*SQLiteStore, error) {
	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return nil, errors.New(errors.ErrCodeStoreExists, "store %s exists", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "remove store %s", path)
		}
	}

	profile, err := template.Profile()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "create store %s", path)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.init(profile, template); err != nil {
		db.Close()
		os.Remove(path)
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(profile grid.Profile, template Store) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS attrs (
			key               TEXT PRIMARY KEY,
			value             TEXT
		);
		CREATE TABLE IF NOT EXISTS layers (
			name              TEXT PRIMARY KEY,
			rows              BIGINT,
			cols              BIGINT,
			data              BLOB,
			written_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "initialize store %s", s.path)
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "encode profile")
	}
	if err := s.SetAttr(profileAttr, string(profileJSON)); err != nil {
		return err
	}

	attrs, err := template.Attrs()
	if err != nil {
		return err
	}
	for k, v := range attrs {
		if k == profileAttr {
			continue
		}
		if err := s.SetAttr(k, v); err != nil {
			return err
		}
	}

	for _, name := range []string{LayerLatitude, LayerLongitude} {
		coords, err := template.ReadLayer(name)
		if err != nil {
			return errors.Wrap(errors.ErrCodeStore, err,
				"template store is missing coordinate layer %q", name)
		}
		if err := s.WriteLayer(name, coords); err != nil {
			return err
		}
	}

	regions := grid.NewFloat64Layer(profile.Rows, profile.Cols)
	regions.Fill(1)
	return s.WriteLayer(LayerRegions, regions)
}

// Profile implements Store.
func (s *SQLiteStore) Profile() (grid.Profile, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM attrs WHERE key = ?`, profileAttr).Scan(&raw)
	if err != nil {
		return grid.Profile{}, errors.Wrap(errors.ErrCodeStore, err,
			"store %s has no grid profile", s.path)
	}
	var p grid.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return grid.Profile{}, errors.Wrap(errors.ErrCodeStore, err,
			"store %s has a corrupt grid profile", s.path)
	}
	return p, nil
}

// WriteLayer implements Store. The write runs in a transaction so the named
// dataset is fully replaced or untouched.
func (s *SQLiteStore) WriteLayer(name string, layer *grid.Float64Layer) error {
	p, err := s.Profile()
	if err != nil {
		return err
	}
	if layer.Rows != p.Rows || layer.Cols != p.Cols {
		return errors.New(errors.ErrCodeShapeMismatch,
			"layer %q shape (%d, %d) does not match store shape (%d, %d)",
			name, layer.Rows, layer.Cols, p.Rows, p.Cols)
	}

	blob, err := encodeCells(layer.Data)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "encode layer %q", name)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "write layer %q", name)
	}
	_, err = tx.Exec(`
		INSERT INTO layers (name, rows, cols, data) VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE
		SET rows = excluded.rows, cols = excluded.cols,
		    data = excluded.data, written_at = CURRENT_TIMESTAMP`,
		name, layer.Rows, layer.Cols, blob)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(errors.ErrCodeStore, err, "write layer %q", name)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "write layer %q", name)
	}
	return nil
}

// ReadLayer implements Store.
func (s *SQLiteStore) ReadLayer(name string) (*grid.Float64Layer, error) {
	var rows, cols int
	var blob []byte
	err := s.db.QueryRow(`SELECT rows, cols, data FROM layers WHERE name = ?`, name).
		Scan(&rows, &cols, &blob)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeLayerNotFound,
			"store %s has no layer %q", s.path, name)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "read layer %q", name)
	}

	data, err := decodeCells(blob, rows*cols)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode layer %q", name)
	}
	return &grid.Float64Layer{Rows: rows, Cols: cols, Data: data}, nil
}

// Layers implements Store.
func (s *SQLiteStore) Layers() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM layers ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list layers")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "list layers")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Attrs implements Store.
func (s *SQLiteStore) Attrs() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM attrs`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "read attrs")
	}
	defer rows.Close()

	attrs := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "read attrs")
		}
		attrs[k] = v
	}
	return attrs, rows.Err()
}

// SetAttr implements Store.
func (s *SQLiteStore) SetAttr(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO attrs (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "set attr %q", key)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Cell blobs are little-endian float64, row-major.
func encodeCells(data []float64) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data) * 8)
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeCells(blob []byte, cells int) ([]float64, error) {
	if len(blob) != cells*8 {
		return nil, fmt.Errorf("blob is %d bytes, expected %d", len(blob), cells*8)
	}
	data := make([]float64, cells)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, data); err != nil {
		return nil, err
	}
	return data, nil
}

var _ Store = (*SQLiteStore)(nil)
