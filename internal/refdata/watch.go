package refdata

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"marketmind/internal/logger"
)

// Watch 监听参考表文件变更并热加载，直到 ctx 结束。
// 未配置文件路径时直接返回。写入事件做 500ms 去抖，避免编辑器多次触发。
func (t *Table) Watch(ctx context.Context) error {
	if t.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		return err
	}

	var timer *time.Timer
	reload := func() {
		if err := t.Reload(); err != nil {
			logger.Warnf("refdata reload failed: %v", err)
		}
	}
	target := filepath.Clean(t.path)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(500*time.Millisecond, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("refdata watcher error: %v", err)
		}
	}
}
