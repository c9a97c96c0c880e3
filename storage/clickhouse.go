package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/thisisjab/sieve/entity"
	"github.com/thisisjab/sieve/fieldmap"
	"github.com/thisisjab/sieve/querier"
)

type ClickHouseStorageConfig struct {
	Addr        []string `yaml:"addr"`
	Database    string   `yaml:"database"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	TableConfig `yaml:",inline"`
}

type ClickHouseStorage struct {
	planner
	conn driver.Conn
	cfg  ClickHouseStorageConfig
}

func NewClickHouseStorage(cfg ClickHouseStorageConfig, fields fieldmap.Provider) (*ClickHouseStorage, error) {
	if len(cfg.Addr) == 0 {
		return nil, errors.New("clickhouse: at least one address is required")
	}
	if err := cfg.TableConfig.validate(); err != nil {
		return nil, fmt.Errorf("clickhouse: %w", err)
	}

	return &ClickHouseStorage{
		planner: newPlanner(querier.DialectClickHouse, cfg.TableConfig, fields),
		cfg:     cfg,
	}, nil
}

func (s *ClickHouseStorage) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: s.cfg.Addr,
		Auth: clickhouse.Auth{
			Database: s.cfg.Database,
			Username: s.cfg.Username,
			Password: s.cfg.Password,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return fmt.Errorf("failed to connect: %v", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping the database: %w", err)
	}

	s.conn = conn

	return nil
}

func (s *ClickHouseStorage) Close(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *ClickHouseStorage) Query(ctx context.Context, req querier.QueryRequest) (querier.QueryResponse, error) {
	if s.conn == nil {
		return querier.QueryResponse{}, errors.New("clickhouse: not connected")
	}

	res, err := s.Explain(req)
	if err != nil {
		return querier.QueryResponse{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	rows, err := s.conn.Query(ctx, res.Query, res.Args...)
	if err != nil {
		return querier.QueryResponse{}, fmt.Errorf("couldn't run query: %w", err)
	}
	defer rows.Close()

	records, err := scanClickHouseRows(rows)
	if err != nil {
		return querier.QueryResponse{}, err
	}

	return querier.QueryResponse{Records: records, SQL: res.Query}, nil
}

// scanClickHouseRows scans every row into a Record, allocating each value
// with the Go type the driver reports for its column.
func scanClickHouseRows(rows driver.Rows) ([]entity.Record, error) {
	columns := rows.Columns()
	types := rows.ColumnTypes()

	var records []entity.Record
	for rows.Next() {
		dest := make([]any, len(types))
		for i, ct := range types {
			dest[i] = reflect.New(ct.ScanType()).Interface()
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("couldn't scan row: %w", err)
		}

		record := make(entity.Record, len(columns))
		for i, name := range columns {
			record[name] = reflect.ValueOf(dest[i]).Elem().Interface()
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("couldn't read rows: %w", err)
	}

	return records, nil
}
