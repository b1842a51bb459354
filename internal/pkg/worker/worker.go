package worker

import (
	"context"
	"sync"

	"paychecked_admin/internal/domain/chargestatus/model"
	"paychecked_admin/pkg/logger"

	"go.uber.org/zap"
)

// QueryTask 单笔订单反查任务
type QueryTask struct {
	Index   int // 在输入中的位置
	OrderID string
}

// QueryFunc 执行一次反查，不可返回 nil
type QueryFunc func(ctx context.Context, orderID string) *model.QueryResult

// WorkerPool 并发执行互相独立的反查，结果按输入顺序返回
type WorkerPool struct {
	WorkerNum int
	query     QueryFunc
}

func NewWorkerPool(query QueryFunc, workerNum int) *WorkerPool {
	if workerNum < 1 {
		workerNum = 1
	}
	return &WorkerPool{WorkerNum: workerNum, query: query}
}

// Run 阻塞直到所有任务完成
func (p *WorkerPool) Run(ctx context.Context, orderIDs []string) []*model.QueryResult {
	results := make([]*model.QueryResult, len(orderIDs))
	if len(orderIDs) == 0 {
		return results
	}

	taskQueue := make(chan QueryTask, len(orderIDs))
	for i, id := range orderIDs {
		taskQueue <- QueryTask{Index: i, OrderID: id}
	}
	close(taskQueue)

	workers := p.WorkerNum
	if workers > len(orderIDs) {
		workers = len(orderIDs)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id, taskQueue, results)
		}(i)
	}
	wg.Wait()

	logger.Log.Debug("Worker pool finished", zap.Int("tasks", len(orderIDs)), zap.Int("workers", workers))
	return results
}

// worker 每个任务只写入自己的下标，无需加锁
func (p *WorkerPool) worker(ctx context.Context, id int, tasks <-chan QueryTask, results []*model.QueryResult) {
	for task := range tasks {
		results[task.Index] = p.query(ctx, task.OrderID)
		logger.Log.Debug("Task done",
			zap.Int("worker", id),
			zap.String("order_id", task.OrderID),
			zap.Bool("success", results[task.Index].Success),
		)
	}
}
