package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charbel-alt28/aura-retail-ai/internal/store"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"github.com/jackc/pgx/v5"
)

func (s *Store) UpsertProducts(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	now := store.ToMillis(time.Now())
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(`INSERT INTO products(id, name, category, stock, reorder_level, demand_forecast, base_price, current_price, demand_level, updated_at)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, category=EXCLUDED.category, stock=EXCLUDED.stock,
  reorder_level=EXCLUDED.reorder_level, demand_forecast=EXCLUDED.demand_forecast, base_price=EXCLUDED.base_price,
  current_price=EXCLUDED.current_price, demand_level=EXCLUDED.demand_level, updated_at=EXCLUDED.updated_at`,
			p.ID, p.Name, p.Category, p.Stock, p.ReorderLevel, p.DemandForecast, p.BasePrice, p.CurrentPrice, p.DemandLevel, now)
	}
	br := s.Pool.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()
	for _, p := range products {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, name, category, stock, reorder_level, demand_forecast, base_price, current_price, demand_level FROM products ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Stock, &p.ReorderLevel, &p.DemandForecast,
			&p.BasePrice, &p.CurrentPrice, &p.DemandLevel); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) InsertAgentLog(ctx context.Context, l models.AgentLog) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO agent_logs(id, created_at, agent, action, details, status) VALUES($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
		l.ID, store.ToMillis(l.Timestamp), l.Agent, l.Action, l.Details, l.Status)
	return err
}

func (s *Store) ListAgentLogs(ctx context.Context, limit int) ([]models.AgentLog, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, created_at, agent, action, details, status FROM agent_logs ORDER BY created_at DESC, seq DESC LIMIT $1`,
		store.ClampLimit(limit, models.DefaultLogCapacity))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.AgentLog
	for rows.Next() {
		var l models.AgentLog
		var ts int64
		if err := rows.Scan(&l.ID, &ts, &l.Agent, &l.Action, &l.Details, &l.Status); err != nil {
			return nil, err
		}
		l.Timestamp = store.FromMillis(ts)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) UpsertQuery(ctx context.Context, q models.CustomerQuery) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO customer_queries(id, created_at, customer_name, query_type, query, response, status)
VALUES($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET customer_name=EXCLUDED.customer_name, query_type=EXCLUDED.query_type,
  query=EXCLUDED.query, response=EXCLUDED.response, status=EXCLUDED.status`,
		q.ID, store.ToMillis(q.Timestamp), q.CustomerName, q.QueryType, q.Query, q.Response, q.Status)
	return err
}

func (s *Store) ListQueries(ctx context.Context, limit int) ([]models.CustomerQuery, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, created_at, customer_name, query_type, query, response, status FROM customer_queries ORDER BY created_at DESC, seq DESC LIMIT $1`,
		store.ClampLimit(limit, models.DefaultQueryListLimit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.CustomerQuery
	for rows.Next() {
		var q models.CustomerQuery
		var ts int64
		if err := rows.Scan(&q.ID, &ts, &q.CustomerName, &q.QueryType, &q.Query, &q.Response, &q.Status); err != nil {
			return nil, err
		}
		q.Timestamp = store.FromMillis(ts)
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) SaveBackup(ctx context.Context, b models.Backup, snap models.Snapshot) error {
	raw, err := store.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `INSERT INTO backups(id, created_at, product_count, query_count, log_count, snapshot) VALUES($1, $2, $3, $4, $5, $6::jsonb)`,
		b.ID, store.ToMillis(b.CreatedAt), b.ProductCount, b.QueryCount, b.LogCount, raw)
	return err
}

func (s *Store) ListBackups(ctx context.Context, limit int) ([]models.Backup, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, created_at, product_count, query_count, log_count FROM backups ORDER BY created_at DESC LIMIT $1`,
		store.ClampLimit(limit, models.DefaultBackupListLimit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Backup
	for rows.Next() {
		var b models.Backup
		var ts int64
		if err := rows.Scan(&b.ID, &ts, &b.ProductCount, &b.QueryCount, &b.LogCount); err != nil {
			return nil, err
		}
		b.CreatedAt = store.FromMillis(ts)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) GetBackup(ctx context.Context, id string) (models.Backup, models.Snapshot, error) {
	var b models.Backup
	var ts int64
	var raw []byte
	err := s.Pool.QueryRow(ctx, `SELECT id, created_at, product_count, query_count, log_count, snapshot::text FROM backups WHERE id = $1`, id).
		Scan(&b.ID, &ts, &b.ProductCount, &b.QueryCount, &b.LogCount, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Backup{}, models.Snapshot{}, fmt.Errorf("backup %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return models.Backup{}, models.Snapshot{}, err
	}
	b.CreatedAt = store.FromMillis(ts)
	snap, err := store.DecodeSnapshot(raw)
	return b, snap, err
}

var _ store.Store = (*Store)(nil)
