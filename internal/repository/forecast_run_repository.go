package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"TravelFX/internal/domain/models"
	"TravelFX/internal/domain/repository"
	pkgkafka "TravelFX/pkg/kafka"
)

// rowColumns is the column order of one forecast day; a run is stored as one row per day.
const rowColumns = "run_id, created_at, base, quote, path, model, horizon_days, date, p10, p50, p90"

// ForecastRunSchema creates the forecast run table. ReplacingMergeTree keyed on
// (run_id, date) makes replays after a failed batch idempotent.
func ForecastRunSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    run_id       String,
    created_at   DateTime64(3, 'UTC'),
    base         LowCardinality(String),
    quote        LowCardinality(String),
    path         LowCardinality(String),
    model        LowCardinality(String),
    horizon_days UInt16,
    date         Date,
    p10          Float64,
    p50          Float64,
    p90          Float64
) ENGINE = ReplacingMergeTree
PARTITION BY toYYYYMM(created_at)
ORDER BY (base, quote, run_id, date)`, database, table),
	}
}

// ClickHouseStorage implements Storage for ClickHouse.
type ClickHouseStorage struct {
	db       *sql.DB
	database string
	table    string
}

// NewClickHouseStorage creates ClickHouse storage for database.table.
func NewClickHouseStorage(db *sql.DB, database, table string) repository.Storage {
	return &ClickHouseStorage{db: db, database: database, table: table}
}

func (s *ClickHouseStorage) Init(ctx context.Context) error {
	for _, stmt := range ForecastRunSchema(s.database, s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init forecast run schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseStorage) Store(ctx context.Context, run *models.ForecastRun) error {
	return s.StoreBatch(ctx, []*models.ForecastRun{run})
}

// StoreBatch inserts every day of every run with multi-row VALUES, chunked to keep
// statements bounded.
func (s *ClickHouseStorage) StoreBatch(ctx context.Context, runs []*models.ForecastRun) error {
	const chunkSize = 2000

	values := make([]string, 0, chunkSize)
	args := make([]interface{}, 0, chunkSize*11)
	flush := func() error {
		if len(values) == 0 {
			return nil
		}
		q := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES %s", s.database, s.table, rowColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert forecast runs: %w", err)
		}
		values, args = values[:0], args[:0]
		return nil
	}

	for _, run := range runs {
		for _, row := range runRows(run) {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, row...)
			if len(values) == chunkSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	return flush()
}

// runRows flattens a run into insert arguments in rowColumns order.
func runRows(run *models.ForecastRun) [][]interface{} {
	if run == nil || run.ID == "" {
		return nil
	}
	rows := make([][]interface{}, 0, len(run.Daily))
	for _, d := range run.Daily {
		rows = append(rows, []interface{}{
			run.ID,
			run.CreatedAt,
			run.Pair.Base,
			run.Pair.Quote,
			run.Path,
			run.Model,
			uint16(run.HorizonDays),
			d.Date,
			d.P10,
			d.P50,
			d.P90,
		})
	}
	return rows
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

// KafkaPublisher implements Publisher for Kafka. Runs are keyed by pair so one
// pair's runs stay ordered within a partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, run *models.ForecastRun) error {
	return p.producer.Publish(ctx, p.topic, []byte(run.Pair.Key()), run)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, runs []*models.ForecastRun) error {
	if len(runs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(runs))
	for i, run := range runs {
		msgs[i] = pkgkafka.Message{Key: []byte(run.Pair.Key()), Value: run}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op: the producer is shared with the log collector and closed by the app.
func (p *KafkaPublisher) Close() error {
	return nil
}
