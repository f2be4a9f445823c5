// Package seed 在启动时把目录中的文件导入默认索引。
package seed

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"diof-search/internal/encoder"
	"diof-search/internal/service"
	"diof-search/pkg/log"

	"github.com/panjf2000/ants/v2"
)

// Result 汇总一次导入的结果。
type Result struct {
	Imported int64
	Failed   int64
	Skipped  bool
}

// Import 并发导入 dir 下的所有文件。目标索引的台账非空时整体跳过，保证重启幂等。
func Import(ctx context.Context, dir, indexName string, workers int, ingest service.IngestService) (Result, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Infof("[Seed] 目录 '%s' 不存在或不可用，跳过初始化导入", dir)
		return Result{Skipped: true}, nil
	}
	if _, total, err := ingest.ListDocuments(indexName, 1, 1); err == nil && total > 0 {
		log.Infof("[Seed] 索引 '%s' 已有 %d 篇文档，跳过初始化导入", indexName, total)
		return Result{Skipped: true}, nil
	}

	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return Result{}, err
	}
	defer pool.Release()

	var (
		wg     sync.WaitGroup
		result Result
	)
	walkErr := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Warnf("[Seed] 遍历 '%s' 出错: %v", path, err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := importFile(ctx, path, indexName, ingest); err != nil {
				log.Warnf("[Seed] 导入失败: %s, err=%v", path, err)
				atomic.AddInt64(&result.Failed, 1)
				return
			}
			atomic.AddInt64(&result.Imported, 1)
		})
		if submitErr != nil {
			wg.Done()
			return submitErr
		}
		return nil
	})
	wg.Wait()

	log.Infof("[Seed] 初始化导入结束, 成功: %d, 失败: %d", result.Imported, result.Failed)
	return result, walkErr
}

func importFile(ctx context.Context, path, indexName string, ingest service.IngestService) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	req, err := encoder.ReadUpload(f, filepath.Base(path))
	if err != nil {
		return err
	}
	if len(req.Raw) == 0 {
		log.Infof("[Seed] 空文件跳过: %s", path)
		return nil
	}
	id, err := ingest.IngestUpload(ctx, req, indexName)
	if err != nil {
		return err
	}
	log.Infof("[Seed] 导入完成: %s -> %s", req.Filename, id)
	return nil
}
