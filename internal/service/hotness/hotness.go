// Package hotness 聚合应用使用热度，Redis 可用时用有序集合，
// 否则退化为进程内计数
package hotness

import (
	"context"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

// hotAppsKey 热度榜有序集合的键
const hotAppsKey = "appserve:hot_apps"

// Entry 热度榜单条目
type Entry struct {
	AppCode string `json:"app_code"`
	Sz      int    `json:"sz"`
}

// Service 应用热度聚合服务
type Service struct {
	mu     sync.Mutex
	counts map[string]int
	redis  *redis.Client
}

// New 创建热度服务，redisClient 为 nil 时走内存计数
func New(redisClient *redis.Client) *Service {
	return &Service{
		counts: make(map[string]int),
		redis:  redisClient,
	}
}

// RecordUse 记录一次应用使用
func (s *Service) RecordUse(ctx context.Context, appCode string) error {
	if appCode == "" {
		return nil
	}
	if s.redis != nil {
		return s.redis.ZIncrBy(ctx, hotAppsKey, 1, appCode).Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[appCode]++
	return nil
}

// HotAppMap 返回热度榜单的一页，按使用次数降序。
// page 从 0 开始计
func (s *Service) HotAppMap(ctx context.Context, page, pageSize int) ([]Entry, error) {
	start := page * pageSize
	if s.redis != nil {
		stop := int64(start + pageSize - 1)
		members, err := s.redis.ZRevRangeWithScores(ctx, hotAppsKey, int64(start), stop).Result()
		if err != nil {
			return nil, err
		}
		entries := make([]Entry, 0, len(members))
		for _, member := range members {
			appCode, ok := member.Member.(string)
			if !ok {
				continue
			}
			entries = append(entries, Entry{AppCode: appCode, Sz: int(member.Score)})
		}
		return entries, nil
	}

	s.mu.Lock()
	snapshot := make([]Entry, 0, len(s.counts))
	for appCode, count := range s.counts {
		snapshot = append(snapshot, Entry{AppCode: appCode, Sz: count})
	}
	s.mu.Unlock()
	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].Sz != snapshot[j].Sz {
			return snapshot[i].Sz > snapshot[j].Sz
		}
		return snapshot[i].AppCode < snapshot[j].AppCode
	})
	if start >= len(snapshot) {
		return []Entry{}, nil
	}
	end := start + pageSize
	if end > len(snapshot) {
		end = len(snapshot)
	}
	return snapshot[start:end], nil
}
