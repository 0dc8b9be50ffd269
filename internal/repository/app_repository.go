package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/derisk-ai/appserve/internal/model"
)

// AppRepository 应用主表与成员子表数据访问
type AppRepository struct {
	db *gorm.DB
}

// NewAppRepository 创建应用仓库
func NewAppRepository(db *gorm.DB) *AppRepository {
	return &AppRepository{db: db}
}

// AppFilter 应用列表查询条件，各字段未设置时不参与过滤
type AppFilter struct {
	AppName  string // app_name 子串匹配
	UserCode string // 与 admins 子串匹配取并集，IgnoreUser 时跳过
	SysCode  string
	TeamMode string
	Published string // "true"/"false" 精确匹配

	IgnoreUser bool

	// FilterCollected 置位时按 CollectedCodes 做 IN 过滤，空集即无结果
	FilterCollected bool
	CollectedCodes  []string

	FilterRecent bool
	RecentCodes  []string

	AppCodes []string

	Page     int
	PageSize int
}

// Search 按条件过滤并分页，返回当页行与过滤后的总数。
// 计数发生在分页之前，排序固定为 id 倒序
func (r *AppRepository) Search(f *AppFilter) ([]*model.GptsApp, int64, error) {
	query := r.db.Model(&model.GptsApp{})
	if f.AppName != "" {
		query = query.Where("app_name LIKE ?", "%"+f.AppName+"%")
	}
	if !f.IgnoreUser {
		if f.UserCode != "" {
			query = query.Where("user_code = ? OR admins LIKE ?", f.UserCode, "%"+f.UserCode+"%")
		}
		if f.SysCode != "" {
			query = query.Where("sys_code = ?", f.SysCode)
		}
	}
	if f.TeamMode != "" {
		query = query.Where("team_mode = ?", f.TeamMode)
	}
	if f.FilterCollected {
		query = query.Where("app_code IN ?", emptySafe(f.CollectedCodes))
	}
	if f.FilterRecent {
		query = query.Where("app_code IN ?", emptySafe(f.RecentCodes))
	}
	if f.Published != "" {
		query = query.Where("published = ?", f.Published)
	}
	if len(f.AppCodes) > 0 {
		query = query.Where("app_code IN ?", f.AppCodes)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var apps []*model.GptsApp
	err := query.Order("id DESC").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&apps).Error
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

// emptySafe 空集过滤仍需生成不命中的 IN 条件
func emptySafe(codes []string) []string {
	if len(codes) == 0 {
		return []string{""}
	}
	return codes
}

// GetByCode 按 app_code 查询单行，未命中返回 nil
func (r *AppRepository) GetByCode(appCode string) (*model.GptsApp, error) {
	var app model.GptsApp
	err := r.db.Where("app_code = ?", appCode).First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

// GetNativeByName 按名称查询内置应用，未命中返回 nil
func (r *AppRepository) GetNativeByName(appName string) (*model.GptsApp, error) {
	var app model.GptsApp
	err := r.db.Where("app_name = ?", appName).
		Where("team_mode = ?", model.TeamModeNativeApp).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

// ListAll 查询全部应用主表行
func (r *AppRepository) ListAll() ([]*model.GptsApp, error) {
	var apps []*model.GptsApp
	err := r.db.Find(&apps).Error
	return apps, err
}

// ListByKnowledgeID 在未解码的 team_context 文本上做子串扫描，id 升序
func (r *AppRepository) ListByKnowledgeID(knowledgeID string) ([]*model.GptsApp, error) {
	var apps []*model.GptsApp
	query := r.db.Model(&model.GptsApp{})
	if knowledgeID != "" {
		query = query.Where("team_context LIKE ?", "%"+knowledgeID+"%")
	}
	err := query.Order("id ASC").Find(&apps).Error
	return apps, err
}

// CreateWithDetails 在一个事务内写入主表行和全部成员行
func (r *AppRepository) CreateWithDetails(app *model.GptsApp, details []*model.GptsAppDetail) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(app).Error; err != nil {
			return err
		}
		if len(details) > 0 {
			if err := tx.Create(details).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceWithDetails 覆盖主表行，删除旧成员行后重建。
// 编辑始终是删旧插新而非增量对比，并发编辑的丢失更新是已接受的限制
func (r *AppRepository) ReplaceWithDetails(app *model.GptsApp, details []*model.GptsAppDetail) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(app).Error; err != nil {
			return err
		}
		if err := tx.Where("app_code = ?", app.AppCode).Delete(&model.GptsAppDetail{}).Error; err != nil {
			return err
		}
		if len(details) > 0 {
			if err := tx.Create(details).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteCascade 删除主表行及其成员行、收藏行
func (r *AppRepository) DeleteCascade(appCode string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("app_code = ?", appCode).Delete(&model.GptsApp{}).Error; err != nil {
			return err
		}
		if err := tx.Where("app_code = ?", appCode).Delete(&model.GptsAppDetail{}).Error; err != nil {
			return err
		}
		return tx.Where("app_code = ?", appCode).Delete(&model.GptsAppCollection{}).Error
	})
}

// RemoveNative 删除指定内置应用行，只命中 native_app 模式
func (r *AppRepository) RemoveNative(appCode string) error {
	return r.db.Where("team_mode = ?", model.TeamModeNativeApp).
		Where("app_code = ?", appCode).
		Delete(&model.GptsApp{}).Error
}

// SetPublished 更新发布状态并清空该应用的全部收藏行。
// 应用不存在时静默跳过
func (r *AppRepository) SetPublished(appCode string, published string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.GptsApp{}).
			Where("app_code = ?", appCode).
			Update("published", published)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		return tx.Where("app_code = ?", appCode).Delete(&model.GptsAppCollection{}).Error
	})
}

// UpdateAdmins 更新管理员列表，应用不存在时返回 gorm.ErrRecordNotFound
func (r *AppRepository) UpdateAdmins(appCode string, admins model.StringList) error {
	var app model.GptsApp
	if err := r.db.Where("app_code = ?", appCode).First(&app).Error; err != nil {
		return err
	}
	app.Admins = admins
	return r.db.Save(&app).Error
}

// GetAdmins 查询管理员列表，应用不存在时返回 gorm.ErrRecordNotFound
func (r *AppRepository) GetAdmins(appCode string) (model.StringList, error) {
	var app model.GptsApp
	if err := r.db.Where("app_code = ?", appCode).First(&app).Error; err != nil {
		return nil, err
	}
	return app.Admins, nil
}

// DetailsByAppCode 查询单个应用的成员行
func (r *AppRepository) DetailsByAppCode(appCode string) ([]*model.GptsAppDetail, error) {
	var details []*model.GptsAppDetail
	err := r.db.Where("app_code = ?", appCode).Find(&details).Error
	return details, err
}

// DetailsByAppCodes 批量查询成员行，按 app_code 排序保证分组确定性
func (r *AppRepository) DetailsByAppCodes(appCodes []string) ([]*model.GptsAppDetail, error) {
	if len(appCodes) == 0 {
		return nil, nil
	}
	var details []*model.GptsAppDetail
	err := r.db.Where("app_code IN ?", appCodes).
		Order("app_code ASC").
		Find(&details).Error
	return details, err
}
