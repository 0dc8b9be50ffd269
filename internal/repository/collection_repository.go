package repository

import (
	stderrors "errors"

	"gorm.io/gorm"

	apperrors "github.com/derisk-ai/appserve/internal/errors"
	"github.com/derisk-ai/appserve/internal/model"
)

// CollectionRepository 用户收藏关系数据访问
type CollectionRepository struct {
	db *gorm.DB
}

// NewCollectionRepository 创建收藏仓库
func NewCollectionRepository(db *gorm.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// Collect 新增收藏，重复收藏返回已存在错误
func (r *CollectionRepository) Collect(appCode, userCode, sysCode string) error {
	var existing model.GptsAppCollection
	err := r.collectionQuery(appCode, userCode, sysCode).First(&existing).Error
	if err == nil {
		return apperrors.ErrAppCollected
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.Create(&model.GptsAppCollection{
		AppCode:  appCode,
		UserCode: userCode,
		SysCode:  sysCode,
	}).Error
}

// Uncollect 取消收藏，未收藏时为空操作
func (r *CollectionRepository) Uncollect(appCode, userCode, sysCode string) error {
	return r.collectionQuery(appCode, userCode, sysCode).
		Delete(&model.GptsAppCollection{}).Error
}

// List 按等值条件查询收藏行
func (r *CollectionRepository) List(appCode, userCode, sysCode string) ([]*model.GptsAppCollection, error) {
	var collections []*model.GptsAppCollection
	err := r.collectionQuery(appCode, userCode, sysCode).Find(&collections).Error
	return collections, err
}

func (r *CollectionRepository) collectionQuery(appCode, userCode, sysCode string) *gorm.DB {
	query := r.db.Model(&model.GptsAppCollection{})
	if userCode != "" {
		query = query.Where("user_code = ?", userCode)
	}
	if sysCode != "" {
		query = query.Where("sys_code = ?", sysCode)
	}
	if appCode != "" {
		query = query.Where("app_code = ?", appCode)
	}
	return query
}
