package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/loansync/internal/client/models"
)

// entity is one reconciliation pass plus the conflict-resolution hooks of
// an entity type.
type entity interface {
	kind() models.EntityType
	run(ctx context.Context, s *Service, opts SyncOptions, res *SyncResult)
	applyRemote(ctx context.Context, data json.RawMessage) error
	pushLocal(ctx context.Context, data json.RawMessage) error
}

type fetcher[T any] func(ctx context.Context) ([]T, error)

// pass reconciles local records of type L with remote rows of type R.
type pass[L, R any] struct {
	entityType models.EntityType
	label      string

	fetchLocal  fetcher[L]
	fetchRemote fetcher[R]

	// scoped, when set, replaces both fetchers with a pair bound to one
	// instant taken at the start of the run.
	scoped func(now time.Time) (fetcher[L], fetcher[R])

	localID  func(L) string
	remoteID func(R) string

	toLocal  func(R) (L, error)
	toRemote func(L) (R, error)

	saveLocal    func(ctx context.Context, v L) error
	insertRemote func(ctx context.Context, v R) error
	upsertRemote func(ctx context.Context, v R) error

	conflicts func(local, remote L) []string
}

func (p *pass[L, R]) kind() models.EntityType { return p.entityType }

func (p *pass[L, R]) fail(res *SyncResult, err error) {
	res.addError(fmt.Errorf("%s sync error: %w", p.label, err))
}

func (p *pass[L, R]) run(ctx context.Context, s *Service, opts SyncOptions, res *SyncResult) {
	log := s.log.With("entity", string(p.entityType))

	fetchLocal, fetchRemote := p.fetchLocal, p.fetchRemote
	if p.scoped != nil {
		fetchLocal, fetchRemote = p.scoped(s.now())
	}

	locals, err := fetchLocal(ctx)
	if err != nil {
		p.fail(res, err)
		return
	}
	remotes, err := fetchRemote(ctx)
	if err != nil {
		p.fail(res, &RemoteFetchError{Entity: p.entityType, Err: err})
		return
	}

	localByID := make(map[string]L, len(locals))
	for _, l := range locals {
		localByID[p.localID(l)] = l
	}
	remoteIDs := make(map[string]struct{}, len(remotes))

	for _, r := range remotes {
		id := p.remoteID(r)
		remoteIDs[id] = struct{}{}

		incoming, err := p.toLocal(r)
		if err != nil {
			p.fail(res, err)
			continue
		}

		current, ok := localByID[id]
		if !ok {
			if err := p.store(ctx, s, id, incoming); err != nil {
				p.fail(res, err)
				continue
			}
			res.SyncedCount++
			continue
		}

		fields := p.conflicts(current, incoming)
		if len(fields) == 0 {
			continue
		}

		switch {
		case !opts.ResolveConflicts:
			c, err := p.recordConflict(ctx, s, id, current, r, fields)
			if err != nil {
				p.fail(res, err)
				continue
			}
			res.addConflict(c)
		case opts.ConflictResolution == ResolutionRemote:
			if err := p.store(ctx, s, id, incoming); err != nil {
				p.fail(res, err)
				continue
			}
			res.SyncedCount++
		}
	}

	for _, l := range locals {
		id := p.localID(l)
		if _, ok := remoteIDs[id]; ok {
			continue
		}

		row, err := p.toRemote(l)
		if err != nil {
			p.fail(res, err)
			continue
		}
		if err := p.insertRemote(ctx, row); err != nil {
			p.fail(res, &RemoteWriteError{Entity: p.entityType, ID: id, Err: err})
			continue
		}
		if err := s.local.UpdateSyncStatus(ctx, p.entityType, id, models.SyncStatusSynced, nil, nil); err != nil {
			p.fail(res, err)
			continue
		}
		res.SyncedCount++
	}

	log.Debug(ctx, "pass finished", "local", len(locals), "remote", len(remotes))
}

// store writes v locally and marks it synced.
func (p *pass[L, R]) store(ctx context.Context, s *Service, id string, v L) error {
	if err := p.saveLocal(ctx, v); err != nil {
		return err
	}
	return s.local.UpdateSyncStatus(ctx, p.entityType, id, models.SyncStatusSynced, nil, nil)
}

func (p *pass[L, R]) recordConflict(ctx context.Context, s *Service, id string, local L, remote R, fields []string) (SyncConflict, error) {
	localData, err := json.Marshal(local)
	if err != nil {
		return SyncConflict{}, fmt.Errorf("encode local %s %s: %w", p.entityType, id, err)
	}
	remoteData, err := json.Marshal(remote)
	if err != nil {
		return SyncConflict{}, fmt.Errorf("encode remote %s %s: %w", p.entityType, id, err)
	}

	if err := s.local.UpdateConflict(ctx, p.entityType, id, localData, remoteData, fields); err != nil {
		return SyncConflict{}, err
	}

	return SyncConflict{
		ID:             models.SyncRecordID(p.entityType, id),
		EntityType:     p.entityType,
		EntityID:       id,
		LocalData:      localData,
		RemoteData:     remoteData,
		ConflictFields: fields,
		Timestamp:      s.now(),
	}, nil
}

// applyRemote decodes a captured remote snapshot and writes it locally.
func (p *pass[L, R]) applyRemote(ctx context.Context, data json.RawMessage) error {
	var row R
	if err := json.Unmarshal(data, &row); err != nil {
		return fmt.Errorf("decode remote %s snapshot: %w", p.entityType, err)
	}
	v, err := p.toLocal(row)
	if err != nil {
		return err
	}
	return p.saveLocal(ctx, v)
}

// pushLocal decodes a captured local snapshot and upserts it remotely.
func (p *pass[L, R]) pushLocal(ctx context.Context, data json.RawMessage) error {
	var v L
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode local %s snapshot: %w", p.entityType, err)
	}
	row, err := p.toRemote(v)
	if err != nil {
		return err
	}
	if err := p.upsertRemote(ctx, row); err != nil {
		return &RemoteWriteError{Entity: p.entityType, ID: p.localID(v), Err: err}
	}
	return nil
}
