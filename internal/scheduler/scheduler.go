package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"marketmind/internal/logger"
)

// 中文说明：
// 基于 cron 表达式的周期性批量分析调度。任务本身由 app 层注入，
// 这里只负责注册与生命周期管理。

// Scheduler 管理周期任务。
type Scheduler struct {
	cron *cron.Cron
}

// New 构造 Scheduler（标准 5 段 cron 表达式）。
func New() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Register 注册一个周期任务。
func (s *Scheduler) Register(spec string, task func()) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if _, err := s.cron.AddFunc(spec, task); err != nil {
		return fmt.Errorf("registering cron task (%s): %w", spec, err)
	}
	return nil
}

// Run 启动调度并阻塞到 ctx 取消。
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	logger.Infof("scheduler started")
	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	logger.Infof("scheduler stopped")
	return nil
}
