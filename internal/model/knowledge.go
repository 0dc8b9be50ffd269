package model

import "time"

// KnowledgeSpace 知识空间注册表，内置知识问答场景按名称解析用
type KnowledgeSpace struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	KnowledgeID string    `gorm:"size:255;index" json:"knowledge_id"`
	Name        string    `gorm:"size:100;not null;index" json:"name"`
	StorageType string    `gorm:"size:50" json:"storage_type"`
	Desc        string    `gorm:"column:description;size:500" json:"desc"`
	Owner       string    `gorm:"size:100" json:"owner"`
	Context     string    `gorm:"type:text" json:"context"`
	CreatedAt   time.Time `gorm:"column:gmt_create;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:gmt_modified;autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (KnowledgeSpace) TableName() string {
	return "knowledge_space"
}
