package worker

import (
	"context"
	"path/filepath"

	"dagsync/cmd/dagsync/shared"

	"go.uber.org/zap"
)

// upsert applies a task. It returns the full path written this cycle
// (emptyPath when no physical write happened) and whether the task was
// applied at all: a stale reject or a content-resolution failure returns
// false, and no further action may be taken for that task.
func (p *Pool) upsert(task *shared.DagTask) (string, bool) {
	name := task.Name
	if !p.dags.Contains(name) {
		zap.S().Debugf("Creating %s %s", task.Spec.Kind, name)
		return p.create(task)
	}

	last, _ := p.dags.Get(name)
	if task.Version < last.Version {
		staleTasks.Inc()
		zap.S().Warnf("Cannot apply dag %s, task version %d, cache version %d", name, task.Version, last.Version)
		return emptyPath, false
	}
	zap.S().Debugf("Updating %s %s", task.Spec.Kind, name)
	return p.update(task, last)
}

func (p *Pool) create(task *shared.DagTask) (string, bool) {
	dir, fileName := p.files.FilePath(task)
	content, err := p.files.FileContent(task)
	if err != nil {
		taskFailures.Inc()
		zap.S().Errorf("Failed to resolve content for dag %s: %s", task.Name, err)
		return emptyPath, false
	}

	di := &shared.DagInstance{
		Name:     task.Name,
		Version:  task.Version,
		Kind:     task.Spec.Kind,
		Path:     dir,
		FileName: fileName,
		Content:  content,
	}

	fullPath := p.write(dir, fileName, content)

	// Cache the desired state even when the write failed, so the next apply
	// sees the file missing on disk and heals it.
	zap.S().Debugf("Saving to cache %+v", di)
	p.dags.Put(task.Name, di)
	return fullPath, true
}

func (p *Pool) update(task *shared.DagTask, last *shared.DagInstance) (string, bool) {
	dir, fileName := p.files.FilePath(task)
	newContent, err := p.files.FileContent(task)
	if err != nil {
		taskFailures.Inc()
		zap.S().Errorf("Failed to resolve content for dag %s: %s", task.Name, err)
		return emptyPath, false
	}

	di := &shared.DagInstance{
		Name:     task.Name,
		Version:  task.Version,
		Kind:     task.Spec.Kind,
		Path:     dir,
		FileName: fileName,
		Content:  newContent,
	}

	fullPath := emptyPath
	oldPath := last.FilePath()
	newPath := di.FilePath()
	switch {
	case oldPath != newPath:
		// Path or file name changed, the old file has to go.
		zap.S().Infof("Need to delete old dag %s in path %s", task.Name, oldPath)
		err = p.files.DeleteFile(oldPath)
		if err != nil {
			zap.S().Warnf("Failed to delete old dag file %s: %s", oldPath, err)
		} else {
			fileDeletes.Inc()
		}
		fullPath = p.write(dir, fileName, newContent)
	case !p.files.Exists(newPath):
		// Someone removed the file behind our back, recreate it.
		zap.S().Infof("Cannot find existing dag file %s, creating it", newPath)
		fullPath = p.write(dir, fileName, newContent)
	case newContent != last.Content:
		zap.S().Infof("Contents of dag %s differ, rewriting %s", task.Name, newPath)
		fullPath = p.write(dir, fileName, newContent)
	default:
		zap.S().Debugf("There is no difference between old and new contents of dag %s", task.Name)
	}

	zap.S().Debugf("Saving to cache %+v", di)
	p.dags.Put(task.Name, di)
	return fullPath, true
}

func (p *Pool) write(dir string, fileName string, content string) string {
	fullPath, err := p.files.WriteFile(dir, fileName, content)
	if err != nil {
		zap.S().Errorf("Failed to write dag file: %s", err)
		return emptyPath
	}
	fileWrites.Inc()
	return fullPath
}

// delete removes a dag's file. When the dag is cached, the stored version must
// match the task's exactly, otherwise a stale delete could race a newer apply.
// The cache entry itself is kept; the name+version space only moves forward.
func (p *Pool) delete(task *shared.DagTask) {
	name := task.Name
	var fullPath string

	if p.dags.Contains(name) {
		di, ok := p.dags.GetVersion(name, task.Version)
		if !ok {
			last, _ := p.dags.Get(name)
			zap.S().Warnf("Cannot delete dag %s, task version %d, cache version %d", name, task.Version, last.Version)
			return
		}
		fullPath = di.FilePath()
	} else {
		// Not cached (e.g. after a restart): recompute the canonical location.
		dir, fileName := p.files.FilePath(task)
		fullPath = filepath.Join(dir, fileName)
	}

	if fullPath == emptyPath {
		return
	}
	zap.S().Infof("Deleting dag %s in path %s", name, fullPath)
	err := p.files.DeleteFile(fullPath)
	if err != nil {
		zap.S().Errorf("Failed to delete dag %s: %s", name, err)
		return
	}
	fileDeletes.Inc()
}

// reconcilePause aligns the scheduler's paused flag with the task's desired
// state. Failures are logged and abandoned for this cycle; the recheck loop
// or the next apply picks the dag up again.
func (p *Pool) reconcilePause(task *shared.DagTask, fullPath string) {
	dagID := task.Spec.DagID
	ctx := context.Background()

	dag, err := p.meta.GetDag(ctx, dagID)
	if err != nil {
		zap.S().Errorf("Failed to look up dag %s in the scheduler database: %s", dagID, err)
		return
	}

	if dag != nil {
		if dag.Paused != task.Spec.Paused {
			zap.S().Infof("Need to set dag %s paused to %t", dagID, task.Spec.Paused)
			err = p.meta.SetPaused(ctx, dagID, task.Spec.Paused)
			if err != nil {
				zap.S().Errorf("Failed to set dag %s paused to %t: %s", dagID, task.Spec.Paused, err)
				return
			}
			pauseCommands.Inc()
		}
		return
	}

	// The scheduler has not generated the dag yet, which is normal right after
	// the file was written. Only queue a recheck when this cycle actually
	// produced a file.
	if fullPath == emptyPath {
		return
	}
	zap.S().Debugf("Checking if dag %s has an import error in path %s", dagID, fullPath)
	hasError, err := p.meta.HasImportError(ctx, fullPath)
	if err != nil {
		zap.S().Errorf("Failed to check import errors for dag %s: %s", dagID, err)
		return
	}
	if hasError {
		// Known broken file, requeueing it would loop forever.
		return
	}

	zap.S().Infof("Dag %s is not registered yet, queueing it for an asynchronous recheck", dagID)
	p.unregistered.Put(dagID, &shared.UnregisteredDag{
		DagID:     dagID,
		FilePath:  fullPath,
		Namespace: task.Namespace,
		Name:      task.Name,
		Paused:    task.Spec.Paused,
	})
}
