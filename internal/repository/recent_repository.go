package repository

import (
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/derisk-ai/appserve/internal/model"
)

// RecentRepository 最近使用记录数据访问
type RecentRepository struct {
	db *gorm.DB
}

// NewRecentRepository 创建最近使用仓库
func NewRecentRepository(db *gorm.DB) *RecentRepository {
	return &RecentRepository{db: db}
}

// Query 按等值条件查询最近使用记录，最近访问的排在前面
func (r *RecentRepository) Query(userCode, sysCode, appCode string) ([]*model.UserRecentApp, error) {
	query := r.db.Model(&model.UserRecentApp{})
	if userCode != "" {
		query = query.Where("user_code = ?", userCode)
	}
	if sysCode != "" {
		query = query.Where("sys_code = ?", sysCode)
	}
	if appCode != "" {
		query = query.Where("app_code = ?", appCode)
	}
	var apps []*model.UserRecentApp
	err := query.Order("last_accessed DESC").Find(&apps).Error
	return apps, err
}

// Upsert 存在则刷新访问时间，不存在则插入
func (r *RecentRepository) Upsert(userCode, sysCode, appCode string) (*model.UserRecentApp, error) {
	var existing model.UserRecentApp
	err := r.db.Where("user_code = ?", userCode).
		Where("sys_code = ?", sysCode).
		Where("app_code = ?", appCode).
		First(&existing).Error

	now := time.Now()
	if err == nil {
		existing.LastAccessed = now
		if err := r.db.Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	record := &model.UserRecentApp{
		AppCode:      appCode,
		UserCode:     userCode,
		SysCode:      sysCode,
		LastAccessed: now,
	}
	if err := r.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}
