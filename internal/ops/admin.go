package ops

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

// ToggleSimulation flips the simulation flag and returns the new value.
// The flag stays set while a scenario run holds it.
func (s *Service) ToggleSimulation() (bool, error) {
	next, err := s.store.ToggleSimulating()
	if err != nil {
		return next, err
	}
	if next {
		s.log(models.AgentInventory, "SIM_MODE", "Simulation mode enabled", models.LogWarning)
	} else {
		s.log(models.AgentInventory, "SIM_MODE", "Simulation mode disabled", models.LogInfo)
	}
	return next, nil
}

// Backup writes the full market state as one snapshot row.
func (s *Service) Backup(ctx context.Context) (models.Backup, error) {
	s.log(models.AgentInventory, "BACKUP", "Initiating database snapshot...", models.LogInfo)
	if s.repo == nil {
		s.log(models.AgentInventory, "BACKUP_FAILED", "Database snapshot failed: "+ErrNoRepository.Error(), models.LogError)
		return models.Backup{}, ErrNoRepository
	}
	snap := s.store.Snapshot()
	b := models.Backup{
		ID:           s.newID(),
		CreatedAt:    s.clock.Now().UTC(),
		ProductCount: len(snap.Products),
		QueryCount:   len(snap.Queries),
		LogCount:     len(snap.Logs),
	}
	if err := s.repo.SaveBackup(ctx, b, snap); err != nil {
		slog.Error("backup failed", "err", err)
		s.log(models.AgentInventory, "BACKUP_FAILED", "Database snapshot failed: "+err.Error(), models.LogError)
		return models.Backup{}, fmt.Errorf("save backup: %w", err)
	}
	s.log(models.AgentInventory, "BACKUP_DONE", "Database snapshot completed successfully", models.LogSuccess)
	return b, nil
}

// Backups lists the newest snapshots.
func (s *Service) Backups(ctx context.Context, limit int) ([]models.Backup, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	if limit <= 0 {
		limit = models.DefaultBackupListLimit
	}
	return s.repo.ListBackups(ctx, limit)
}

// Sync upserts every product, query and log entry into the repository.
func (s *Service) Sync(ctx context.Context) error {
	s.log(models.AgentInventory, "SYNC", "Syncing local state with the database...", models.LogInfo)
	if err := s.sync(ctx); err != nil {
		slog.Error("sync failed", "err", err)
		s.log(models.AgentInventory, "SYNC_FAILED", "Database sync failed: "+err.Error(), models.LogError)
		return err
	}
	s.log(models.AgentInventory, "SYNC_DONE", "Database sync complete, all data up to date", models.LogSuccess)
	return nil
}

func (s *Service) sync(ctx context.Context) error {
	if s.repo == nil {
		return ErrNoRepository
	}
	snap := s.store.Snapshot()
	if err := s.repo.UpsertProducts(ctx, snap.Products); err != nil {
		return fmt.Errorf("sync products: %w", err)
	}
	for _, q := range snap.Queries {
		if err := s.repo.UpsertQuery(ctx, q); err != nil {
			return fmt.Errorf("sync query %s: %w", q.ID, err)
		}
	}
	// Oldest first so insertion order matches the tape.
	for i := len(snap.Logs) - 1; i >= 0; i-- {
		if err := s.repo.InsertAgentLog(ctx, snap.Logs[i]); err != nil {
			return fmt.Errorf("sync log %s: %w", snap.Logs[i].ID, err)
		}
	}
	return nil
}
