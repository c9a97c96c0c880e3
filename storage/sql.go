package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/thisisjab/sieve/entity"
	"github.com/thisisjab/sieve/fieldmap"
	"github.com/thisisjab/sieve/querier"
)

// SQLStorageConfig configures a database/sql backed storage.
type SQLStorageConfig struct {
	// Driver is one of postgres, sqlite3 or duckdb.
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	TableConfig  `yaml:",inline"`
}

var driverDialects = map[string]querier.Dialect{
	"postgres": querier.DialectPostgres,
	"sqlite3":  querier.DialectSQLite,
	"duckdb":   querier.DialectDuckDB,
}

// SQLStorage runs criteria through sqlx against Postgres, SQLite or DuckDB.
type SQLStorage struct {
	planner
	db  *sqlx.DB
	cfg SQLStorageConfig
}

func NewSQLStorage(cfg SQLStorageConfig, fields fieldmap.Provider) (*SQLStorage, error) {
	dialect, ok := driverDialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}
	if err := cfg.TableConfig.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Driver, err)
	}

	return &SQLStorage{
		planner: newPlanner(dialect, cfg.TableConfig, fields),
		cfg:     cfg,
	}, nil
}

// NewSQLStorageWithDB returns a storage using an already open database.
// Connect does not need to be called.
func NewSQLStorageWithDB(db *sqlx.DB, cfg SQLStorageConfig, fields fieldmap.Provider) (*SQLStorage, error) {
	if cfg.Driver == "" {
		cfg.Driver = db.DriverName()
	}

	s, err := NewSQLStorage(cfg, fields)
	if err != nil {
		return nil, err
	}
	s.db = db

	return s, nil
}

func (s *SQLStorage) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, s.cfg.Driver, s.cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	if s.cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	}

	s.db = db

	return nil
}

func (s *SQLStorage) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStorage) Query(ctx context.Context, req querier.QueryRequest) (querier.QueryResponse, error) {
	if s.db == nil {
		return querier.QueryResponse{}, errors.New(s.cfg.Driver + ": not connected")
	}

	res, err := s.Explain(req)
	if err != nil {
		return querier.QueryResponse{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	rows, err := s.db.QueryxContext(ctx, res.Query, res.Args...)
	if err != nil {
		return querier.QueryResponse{}, fmt.Errorf("couldn't run query: %w", err)
	}
	defer rows.Close()

	records, err := scanSQLRows(rows)
	if err != nil {
		return querier.QueryResponse{}, err
	}

	return querier.QueryResponse{Records: records, SQL: res.Query}, nil
}

func scanSQLRows(rows *sqlx.Rows) ([]entity.Record, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("couldn't read column types: %w", err)
	}

	binary := make(map[string]bool, len(types))
	for _, ct := range types {
		binary[ct.Name()] = isBinaryType(ct.DatabaseTypeName())
	}

	var records []entity.Record
	for rows.Next() {
		record := entity.Record{}
		if err := rows.MapScan(record); err != nil {
			return nil, fmt.Errorf("couldn't scan row: %w", err)
		}

		// Drivers hand text back as []byte in places; only binary columns keep it.
		for name, v := range record {
			if b, ok := v.([]byte); ok && !binary[name] {
				record[name] = string(b)
			}
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("couldn't read rows: %w", err)
	}

	return records, nil
}

func isBinaryType(name string) bool {
	name = strings.ToUpper(name)
	return strings.Contains(name, "BLOB") || name == "BYTEA"
}
