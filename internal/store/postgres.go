package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AngelCh415/mmm-planner/internal/models"
)

//go:embed sql/*.sql
var queries embed.FS

func query(name string) string {
	b, err := queries.ReadFile("sql/" + name + ".sql")
	if err != nil {
		panic(fmt.Sprintf("missing query %s: %v", name, err))
	}
	return string(b)
}

// Postgres is a ResultStore backed by a pgx pool.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres connects and makes sure the results table exists.
func NewPostgres(ctx context.Context, connectionString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("parsing pgx connection string: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 2
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating pgx pool: %w", err)
	}
	pg := &Postgres{db: pool}
	if _, err := pool.Exec(ctx, query("schema")); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating results table: %w", err)
	}
	return pg, nil
}

func (pg *Postgres) Ping(ctx context.Context) error { return pg.db.Ping(ctx) }

func (pg *Postgres) Close() { pg.db.Close() }

type resultRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Type       string    `db:"type"`
	ModelID    int32     `db:"model_id"`
	TimePeriod string    `db:"time_period"`
	Tags       []string  `db:"tags"`
	Channels   []byte    `db:"channels"`
	Totals     []byte    `db:"totals"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r resultRow) scenario() (models.Scenario, error) {
	sc := models.Scenario{
		ID:         r.ID,
		Name:       r.Name,
		Type:       models.ScenarioType(r.Type),
		ModelID:    int(r.ModelID),
		TimePeriod: r.TimePeriod,
		Tags:       r.Tags,
		CreatedAt:  r.CreatedAt,
	}
	if err := json.Unmarshal(r.Channels, &sc.Channels); err != nil {
		return models.Scenario{}, fmt.Errorf("decoding channels of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.Totals, &sc.Totals); err != nil {
		return models.Scenario{}, fmt.Errorf("decoding totals of %s: %w", r.ID, err)
	}
	return sc, nil
}

func (pg *Postgres) Save(ctx context.Context, sc models.Scenario) error {
	if sc.ID == "" {
		return &models.ParamError{Param: "id", Value: sc.ID}
	}
	channels, err := json.Marshal(sc.Channels)
	if err != nil {
		return fmt.Errorf("encoding channels: %w", err)
	}
	totals, err := json.Marshal(sc.Totals)
	if err != nil {
		return fmt.Errorf("encoding totals: %w", err)
	}
	args := pgx.NamedArgs{
		"id":          sc.ID,
		"name":        sc.Name,
		"type":        string(sc.Type),
		"model_id":    sc.ModelID,
		"time_period": sc.TimePeriod,
		"tags":        NormalizeTags(sc.Tags),
		"channels":    channels,
		"totals":      totals,
		"created_at":  sc.CreatedAt,
	}
	if _, err := pg.db.Exec(ctx, query("insert_result"), args); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("result %s already saved: %w", sc.ID, models.ErrInvalidParameter)
		}
		return fmt.Errorf("inserting result: %w", err)
	}
	scenariosSaved.WithLabelValues(string(sc.Type)).Inc()
	return nil
}

func (pg *Postgres) Get(ctx context.Context, id string) (models.Scenario, error) {
	rows, err := pg.db.Query(ctx, query("select_result"), pgx.NamedArgs{"id": id})
	if err != nil {
		return models.Scenario{}, fmt.Errorf("querying result: %w", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[resultRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Scenario{}, fmt.Errorf("result %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Scenario{}, fmt.Errorf("collecting result: %w", err)
	}
	return row.scenario()
}

func (pg *Postgres) List(ctx context.Context) ([]models.Scenario, error) {
	rows, err := pg.db.Query(ctx, query("select_results"))
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	res, err := pgx.CollectRows(rows, pgx.RowToStructByName[resultRow])
	if err != nil {
		return nil, fmt.Errorf("collecting results: %w", err)
	}
	out := make([]models.Scenario, 0, len(res))
	for _, r := range res {
		sc, err := r.scenario()
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func (pg *Postgres) Rename(ctx context.Context, id, name string) (models.Scenario, error) {
	if name == "" {
		return models.Scenario{}, &models.ParamError{Param: "name", Value: name}
	}
	return pg.update(ctx, id, query("update_name"), pgx.NamedArgs{"id": id, "name": name})
}

func (pg *Postgres) Tag(ctx context.Context, id string, tags []string) (models.Scenario, error) {
	return pg.update(ctx, id, query("update_tags"), pgx.NamedArgs{"id": id, "tags": NormalizeTags(tags)})
}

func (pg *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := pg.db.Exec(ctx, query("delete_result"), pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("deleting result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("result %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (pg *Postgres) update(ctx context.Context, id, sql string, args pgx.NamedArgs) (models.Scenario, error) {
	tag, err := pg.db.Exec(ctx, sql, args)
	if err != nil {
		return models.Scenario{}, fmt.Errorf("updating result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Scenario{}, fmt.Errorf("result %s: %w", id, models.ErrNotFound)
	}
	return pg.Get(ctx, id)
}
