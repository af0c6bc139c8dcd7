package storage

import (
	"context"
	"fmt"
	"time"

	"AirQuality/src/config"
	"AirQuality/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const observationsDDL = `CREATE TABLE IF NOT EXISTS observations (
    family    TEXT NOT NULL,
    station   TEXT NOT NULL,
    parameter TEXT NOT NULL,
    ts        TIMESTAMP NOT NULL,
    value     DOUBLE PRECISION,
    raw       TEXT,
    PRIMARY KEY (family, station, parameter, ts)
)`

const upsertObservation = `INSERT INTO observations (family, station, parameter, ts, value, raw)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (family, station, parameter, ts) DO UPDATE
SET value = EXCLUDED.value,
    raw = EXCLUDED.raw`

// batchSize bounds a single SendBatch round trip.
const batchSize = 5000

// Observation is one melted cell. Value is nil when Raw is missing or not
// numeric.
type Observation struct {
	Family    config.Family
	Station   string
	Parameter string
	TS        time.Time
	Value     *float64
	Raw       string
}

// Observations converts a long table (date, parameter, station, value) into
// rows for the sink.
func Observations(long dataframe.DataFrame, family config.Family) ([]Observation, error) {
	for _, name := range []string{"date", "parameter", "station", "value"} {
		if !utils.HasColumn(long, name) {
			return nil, fmt.Errorf("observations: missing column %q", name)
		}
	}
	dates := long.Col("date")
	params := long.Col("parameter").Records()
	stations := long.Col("station").Records()
	values := long.Col("value")

	rows := make([]Observation, 0, long.Nrow())
	for i := 0; i < long.Nrow(); i++ {
		ts, err := utils.ParseTimeElem(dates.Elem(i))
		if err != nil {
			return nil, fmt.Errorf("observations row %d: %w", i, err)
		}
		obs := Observation{
			Family:    family,
			Station:   stations[i],
			Parameter: params[i],
			TS:        ts,
		}
		if e := values.Elem(i); !utils.IsBlank(e) {
			obs.Raw = e.String()
			if v, ok := utils.ToFloat(e); ok {
				obs.Value = &v
			}
		}
		rows = append(rows, obs)
	}
	return rows, nil
}

// PGStore writes observations to PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// OpenPGStore connects to url and creates the observations table if needed.
func OpenPGStore(ctx context.Context, url string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, observationsDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create observations table: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Close() { s.pool.Close() }

// SaveObservations upserts rows in batches and returns the number written.
func (s *PGStore) SaveObservations(ctx context.Context, rows []Observation) (int, error) {
	written := 0
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		chunk := rows[start:end]

		batch := &pgx.Batch{}
		for _, o := range chunk {
			var raw *string
			if o.Raw != "" {
				r := o.Raw
				raw = &r
			}
			batch.Queue(upsertObservation, string(o.Family), o.Station, o.Parameter, o.TS, o.Value, raw)
		}

		res := s.pool.SendBatch(ctx, batch)
		for range chunk {
			if _, err := res.Exec(); err != nil {
				res.Close()
				return written, fmt.Errorf("upsert observation: %w", err)
			}
			written++
		}
		if err := res.Close(); err != nil {
			return written, err
		}
	}
	return written, nil
}

// SaveFrame converts and stores a long table.
func (s *PGStore) SaveFrame(ctx context.Context, long dataframe.DataFrame, family config.Family) (int, error) {
	rows, err := Observations(long, family)
	if err != nil {
		return 0, err
	}
	return s.SaveObservations(ctx, rows)
}
