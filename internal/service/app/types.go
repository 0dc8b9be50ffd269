// Package app 实现应用聚合的持久化映射、查询引擎与内置应用注册
package app

import (
	"time"

	"github.com/derisk-ai/appserve/internal/model"
)

// GptsApp 应用聚合视图对象，team_context 为解码后的变体或原始字符串
type GptsApp struct {
	AppCode     string      `json:"app_code"`
	AppName     string      `json:"app_name"`
	AppDescribe string      `json:"app_describe"`
	TeamMode    string      `json:"team_mode"`
	Language    string      `json:"language"`
	TeamContext interface{} `json:"team_context"`
	UserCode    string      `json:"user_code"`
	SysCode     string      `json:"sys_code"`
	IsCollected string      `json:"is_collected"`
	Icon        string      `json:"icon"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	Details   []*GptsAppDetail     `json:"details"`
	Published string               `json:"published"`
	HotValue  *int                 `json:"hot_value"`
	ParamNeed []model.AppParamNeed `json:"param_need"`
	OwnerName string               `json:"owner_name"`

	RecommendQuestions []string `json:"recommend_questions"`
	Admins             []string `json:"admins"`

	// 默认保留最近两轮会话记录作为上下文
	KeepStartRounds int `json:"keep_start_rounds"`
	KeepEndRounds   int `json:"keep_end_rounds"`
}

// GptsAppDetail 应用成员视图对象。
// llm_strategy_value 在写入路径上是逗号拼接的字符串，存储为 JSON 数组；
// 读取路径默认携带存储形态，parseLLMStrategy 时还原为逗号拼接形态
type GptsAppDetail struct {
	AppCode          string                 `json:"app_code"`
	AppName          string                 `json:"app_name"`
	Type             string                 `json:"type"`
	AgentName        string                 `json:"agent_name"`
	AgentRole        string                 `json:"agent_role"`
	AgentDescribe    string                 `json:"agent_describe"`
	NodeID           string                 `json:"node_id"`
	Resources        []*model.AgentResource `json:"resources"`
	PromptTemplate   string                 `json:"prompt_template"`
	LLMStrategy      string                 `json:"llm_strategy"`
	LLMStrategyValue *string                `json:"llm_strategy_value"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// GptsAppQuery 应用列表查询条件
type GptsAppQuery struct {
	AppName  string `json:"app_name"`
	AppCode  string `json:"app_code"`
	UserCode string `json:"user_code"`
	SysCode  string `json:"sys_code"`
	TeamMode string `json:"team_mode"`

	Page     int `json:"page"`
	PageSize int `json:"page_size"`

	IsCollected  string `json:"is_collected"`
	IsRecentUsed string `json:"is_recent_used"`
	Published    string `json:"published"`
	IgnoreUser   string `json:"ignore_user"`

	AppCodes []string        `json:"app_codes"`
	HotMap   map[string]*int `json:"hot_map"`
}

// GptsAppResponse 应用列表分页响应
type GptsAppResponse struct {
	TotalCount  int64      `json:"total_count"`
	TotalPage   int        `json:"total_page"`
	CurrentPage int        `json:"current_page"`
	AppList     []*GptsApp `json:"app_list"`
}

// BindAppRequest 应用绑定请求
type BindAppRequest struct {
	TeamAppCode  string   `json:"team_app_code"`
	BindAppCodes []string `json:"bin_app_codes"`
}

// TransferSSERequest MCP 资源地址批量迁移请求
type TransferSSERequest struct {
	All             bool     `json:"all"`
	AppCodeList     []string `json:"app_code_list"`
	Source          string   `json:"source"`
	FaasFunctionPre string   `json:"faas_function_pre"`
	URI             string   `json:"uri"`
}

// AllowToolsRequest MCP 工具白名单设置请求
type AllowToolsRequest struct {
	AppCode    string   `json:"app_code"`
	MCPServer  string   `json:"mcp_server"`
	AllowTools []string `json:"allow_tools"`
}
