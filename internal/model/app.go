package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// 团队协作模式常量
const (
	TeamModeSingleAgent = "single_agent" // 单 Agent 直接对话
	TeamModeAwelLayout  = "awel_layout"  // 编排流程驱动
	TeamModeAutoPlan    = "auto_plan"    // 多 Agent 自动规划
	TeamModeNativeApp   = "native_app"   // 内置场景应用
)

// 内置场景 app_code 常量，内置应用的 app_code 与场景标识一致
const (
	SceneChatNormal        = "chat_normal"
	SceneChatKnowledge     = "chat_knowledge"
	SceneChatWithDBQA      = "chat_with_db_qa"
	SceneChatWithDBExecute = "chat_with_db_execute"
	SceneChatDashboard     = "chat_dashboard"
	SceneChatExcel         = "chat_excel"
)

// 内置场景列表
var NativeScenes = []string{
	SceneChatNormal,
	SceneChatKnowledge,
	SceneChatWithDBQA,
	SceneChatWithDBExecute,
	SceneChatDashboard,
	SceneChatExcel,
}

// IsNativeScene 检查是否是内置场景标识
func IsNativeScene(scene string) bool {
	for _, s := range NativeScenes {
		if scene == s {
			return true
		}
	}
	return false
}

// 应用参数类型常量，对应 param_need 条目的 type 字段
const (
	ParamTypeResource       = "resource"
	ParamTypeModel          = "model"
	ParamTypeTemperature    = "temperature"
	ParamTypeMaxNewTokens   = "max_new_tokens"
	ParamTypePromptTemplate = "prompt_template"
)

// 资源类型常量，内置场景声明的外部资源依赖
const (
	ResourceTypeKnowledge = "knowledge"
	ResourceTypeDB        = "database"
	ResourceTypeExcelFile = "excel_file"
	ResourceTypeMCPSSE    = "tool(mcp(sse))"
)

// ReasoningPlannerName 保留的推理规划器 Agent 标识，
// 应用只含一个该名称的 detail 时其状态只存在父级 team_context 中
const ReasoningPlannerName = "ReasoningPlanner"

// AppParamNeed 应用参数声明
type AppParamNeed struct {
	Type      string  `json:"type"`
	Value     *string `json:"value"`
	BindValue string  `json:"bind_value,omitempty"`
}

// StringList 以 JSON 数组文本存储的字符串列表，
// 保持列内容可被 LIKE 子串匹配（管理员过滤依赖该特性）
type StringList []string

// Value 实现 driver.Valuer 接口
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner 接口
func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return nil
	}
	if len(b) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(b, s)
}

// GptsApp 应用主表
type GptsApp struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	AppCode     string     `gorm:"size:255;not null;index" json:"app_code"`
	AppName     string     `gorm:"size:255;not null;uniqueIndex:uk_gpts_app" json:"app_name"`
	Icon        string     `gorm:"size:1024" json:"icon"`
	AppDescribe string     `gorm:"size:2255;not null" json:"app_describe"`
	Language    string     `gorm:"size:100;not null" json:"language"`
	TeamMode    string     `gorm:"size:255;not null" json:"team_mode"`
	TeamContext string     `gorm:"type:text" json:"team_context"` // 原始序列化形态，按 team_mode 解码
	UserCode    string     `gorm:"size:255" json:"user_code"`
	SysCode     string     `gorm:"size:255" json:"sys_code"`
	Published   string     `gorm:"size:64" json:"published"`
	ParamNeed   *string    `gorm:"type:text" json:"param_need"`
	Admins      StringList `gorm:"type:text" json:"admins"`
	CreatedAt   time.Time  `gorm:"column:gmt_create;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:gmt_modified;autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (GptsApp) TableName() string {
	return "gpts_app"
}

// GptsAppDetail 应用成员子表，每行一个 Agent 绑定
type GptsAppDetail struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AppCode          string    `gorm:"size:255;not null;index" json:"app_code"`
	AppName          string    `gorm:"size:255;not null;uniqueIndex:uk_gpts_app_agent_node" json:"app_name"`
	Type             string    `gorm:"size:255" json:"type"` // 'app' 或 'agent'
	AgentName        string    `gorm:"size:255;not null;uniqueIndex:uk_gpts_app_agent_node" json:"agent_name"`
	AgentRole        string    `gorm:"size:255;not null" json:"agent_role"`
	AgentDescribe    string    `gorm:"type:text" json:"agent_describe"`
	NodeID           string    `gorm:"column:node_id;size:255;not null;uniqueIndex:uk_gpts_app_agent_node" json:"node_id"`
	Resources        *string   `gorm:"type:text" json:"resources"` // JSON 数组文本
	PromptTemplate   string    `gorm:"type:text" json:"prompt_template"`
	LLMStrategy      string    `gorm:"column:llm_strategy;size:25" json:"llm_strategy"`
	LLMStrategyValue *string   `gorm:"column:llm_strategy_value;type:text" json:"llm_strategy_value"` // JSON 数组文本
	CreatedAt        time.Time `gorm:"column:gmt_create;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"column:gmt_modified;autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (GptsAppDetail) TableName() string {
	return "gpts_app_detail"
}

// GptsAppCollection 用户收藏关系表
type GptsAppCollection struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AppCode   string    `gorm:"size:255;not null;index" json:"app_code"`
	UserCode  string    `gorm:"size:255" json:"user_code"`
	SysCode   string    `gorm:"size:255" json:"sys_code"`
	CreatedAt time.Time `gorm:"column:gmt_create;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:gmt_modified;autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (GptsAppCollection) TableName() string {
	return "gpts_app_collection"
}

// UserRecentApp 用户最近使用记录表
type UserRecentApp struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AppCode      string    `gorm:"size:255;not null;index:idx_user_r_app_code" json:"app_code"`
	UserCode     string    `gorm:"size:255;index:idx_user_code" json:"user_code"`
	SysCode      string    `gorm:"size:255" json:"sys_code"`
	GmtCreate    time.Time `gorm:"autoCreateTime" json:"gmt_create"`
	GmtModified  time.Time `gorm:"autoUpdateTime" json:"gmt_modified"`
	LastAccessed time.Time `gorm:"index:idx_last_accessed" json:"last_accessed"`
}

// TableName 指定表名
func (UserRecentApp) TableName() string {
	return "user_recent_apps"
}
