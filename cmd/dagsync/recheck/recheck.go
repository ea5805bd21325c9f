// Package recheck periodically revisits dags whose files were written but
// which the scheduler had not registered at apply time, and aligns their
// paused flag once they show up.
package recheck

import (
	"context"
	"time"

	"dagsync/cmd/dagsync/cache"
	"dagsync/cmd/dagsync/shared"
	"dagsync/cmd/dagsync/worker"

	"go.uber.org/zap"
)

type Rechecker struct {
	unregistered *cache.UnregisteredDagCache
	meta         worker.MetadataStore
}

func NewRechecker(unregistered *cache.UnregisteredDagCache, meta worker.MetadataStore) *Rechecker {
	return &Rechecker{unregistered: unregistered, meta: meta}
}

// Run rechecks pending dags on every tick. It runs for the process lifetime.
func (r *Rechecker) Run(interval time.Duration) {
	zap.S().Debugf("Starting unregistered dag recheck loop, interval %s", interval)
	ticker := time.NewTicker(interval)
	for {
		<-ticker.C
		r.RecheckAll()
	}
}

// RecheckAll walks a snapshot of the unregistered cache once.
func (r *Rechecker) RecheckAll() {
	pending := r.unregistered.List()
	if len(pending) == 0 {
		return
	}
	zap.S().Debugf("Rechecking %d unregistered dags", len(pending))
	for _, u := range pending {
		r.recheck(u)
	}
}

func (r *Rechecker) recheck(u *shared.UnregisteredDag) {
	ctx := context.Background()

	dag, err := r.meta.GetDag(ctx, u.DagID)
	if err != nil {
		zap.S().Errorf("Failed to look up dag %s in the scheduler database: %s", u.DagID, err)
		return
	}

	if dag != nil {
		if dag.Paused != u.Paused {
			zap.S().Infof("Dag %s got registered, setting paused to %t", u.DagID, u.Paused)
			err = r.meta.SetPaused(ctx, u.DagID, u.Paused)
			if err != nil {
				zap.S().Errorf("Failed to set dag %s paused to %t: %s", u.DagID, u.Paused, err)
				return
			}
		}
		r.unregistered.Remove(u.DagID)
		return
	}

	hasError, err := r.meta.HasImportError(ctx, u.FilePath)
	if err != nil {
		zap.S().Errorf("Failed to check import errors for dag %s: %s", u.DagID, err)
		return
	}
	if hasError {
		// The scheduler refuses the file, rechecking won't change that.
		zap.S().Warnf("Dag %s has an import error in path %s, giving up on recheck", u.DagID, u.FilePath)
		r.unregistered.Remove(u.DagID)
		return
	}
	zap.S().Debugf("Dag %s is still not registered, keeping it queued", u.DagID)
}
