package repository

import (
	stderrors "errors"
	"sync"

	"gorm.io/gorm"

	"github.com/derisk-ai/appserve/internal/model"
)

// KnowledgeRepository 知识空间数据访问。
// 按名称的查询走进程级缓存：先查缓存，加锁后复查再回填，条目不淘汰
type KnowledgeRepository struct {
	db     *gorm.DB
	mu     sync.RWMutex
	byName map[string][]*model.KnowledgeSpace
}

// NewKnowledgeRepository 创建知识空间仓库
func NewKnowledgeRepository(db *gorm.DB) *KnowledgeRepository {
	return &KnowledgeRepository{
		db:     db,
		byName: make(map[string][]*model.KnowledgeSpace),
	}
}

// ListByName 按名称精确查询知识空间
func (r *KnowledgeRepository) ListByName(name string) ([]*model.KnowledgeSpace, error) {
	r.mu.RLock()
	spaces, ok := r.byName[name]
	r.mu.RUnlock()
	if ok {
		return spaces, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if spaces, ok := r.byName[name]; ok {
		return spaces, nil
	}
	var result []*model.KnowledgeSpace
	if err := r.db.Where("name = ?", name).Find(&result).Error; err != nil {
		return nil, err
	}
	// 空结果不进缓存，空间可能稍后才创建
	if len(result) > 0 {
		r.byName[name] = result
	}
	return result, nil
}

// GetByKnowledgeID 按知识空间标识查询单行，未命中返回 nil
func (r *KnowledgeRepository) GetByKnowledgeID(knowledgeID string) (*model.KnowledgeSpace, error) {
	var space model.KnowledgeSpace
	err := r.db.Where("knowledge_id = ?", knowledgeID).First(&space).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &space, nil
}

// Create 新增知识空间
func (r *KnowledgeRepository) Create(space *model.KnowledgeSpace) error {
	return r.db.Create(space).Error
}
