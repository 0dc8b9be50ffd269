package model

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/derisk-ai/appserve/internal/logger"
)

var ctxLog = logger.New("team_context")

// SingleAgentContext 单 Agent 模式上下文
type SingleAgentContext struct {
	AgentName        string           `json:"agent_name,omitempty"`
	AgentRole        string           `json:"agent_role,omitempty"`
	PromptTemplate   string           `json:"prompt_template,omitempty"`
	LLMStrategy      string           `json:"llm_strategy,omitempty"`
	LLMStrategyValue []string         `json:"llm_strategy_value,omitempty"`
	Resources        []*AgentResource `json:"resources,omitempty"`
}

// AWELTeamContext 编排流程模式上下文，引用外部工作流
type AWELTeamContext struct {
	DAGID        string `json:"dag_id,omitempty"`
	UID          string `json:"uid,omitempty"`
	Name         string `json:"name,omitempty"`
	Label        string `json:"label,omitempty"`
	Version      string `json:"version,omitempty"`
	FlowCategory string `json:"flow_category,omitempty"`
}

// AutoTeamContext 多 Agent 自动规划模式上下文
type AutoTeamContext struct {
	CanAskUser       bool             `json:"can_ask_user"`
	LLMStrategy      string           `json:"llm_strategy"`
	LLMStrategyValue []string         `json:"llm_strategy_value"`
	PromptTemplate   *string          `json:"prompt_template"`
	Resources        []*AgentResource `json:"resources"`
	TeamLeader       string           `json:"teamleader"`
}

// UnmarshalJSON 兼容 resources 字段的双重编码：
// 历史数据中该字段可能是 JSON 数组，也可能是再次编码过的 JSON 字符串
func (c *AutoTeamContext) UnmarshalJSON(data []byte) error {
	type alias AutoTeamContext
	aux := struct {
		*alias
		Resources json.RawMessage `json:"resources"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	raw := aux.Resources
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return err
		}
		raw = []byte(inner)
	}
	return json.Unmarshal(raw, &c.Resources)
}

// NativeTeamContext 内置场景模式上下文，不可编辑
type NativeTeamContext struct {
	ChatScene     string `json:"chat_scene"`
	SceneName     string `json:"scene_name"`
	SceneDescribe string `json:"scene_describe"`
	ParamTitle    string `json:"param_title"`
	ShowDisable   bool   `json:"show_disable"`
}

// AgentResource Agent 绑定的资源声明
type AgentResource struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Value     string `json:"value"`
	IsDynamic bool   `json:"is_dynamic,omitempty"`
}

// AgentResourcesFromJSON 从 JSON 数组文本解析资源列表，空值返回 nil
func AgentResourcesFromJSON(raw string) ([]*AgentResource, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var resources []*AgentResource
	if err := json.Unmarshal([]byte(raw), &resources); err != nil {
		return nil, err
	}
	return resources, nil
}

// AgentResourcesToJSON 将资源列表序列化为 JSON 数组文本
func AgentResourcesToJSON(resources []*AgentResource) (string, error) {
	if resources == nil {
		resources = []*AgentResource{}
	}
	b, err := json.Marshal(resources)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EncodeTeamContext 将团队上下文编码为存储文本。
// 类型化变体序列化为 JSON，字符串原样透传（兼容历史存量数据）
func EncodeTeamContext(teamContext interface{}) string {
	switch v := teamContext.(type) {
	case nil:
		return ""
	case string:
		return v
	case *SingleAgentContext, *AWELTeamContext, *AutoTeamContext, *NativeTeamContext:
		b, err := json.Marshal(v)
		if err != nil {
			ctxLog.WithError(err).Warn("encode team context failed")
			return ""
		}
		return string(b)
	default:
		ctxLog.WithField("type", teamContext).Warn("encode unsupported team context type")
		return ""
	}
}

// DecodeTeamContext 按 team_mode 解码存储文本，派发只看模式、不探测内容形状。
// 已知模式解析失败时记录日志并返回 nil（单条脏数据不能中断列表查询）；
// 未知模式原样返回，保留向前兼容
func DecodeTeamContext(teamMode string, teamContext string) interface{} {
	switch teamMode {
	case TeamModeSingleAgent:
		if teamContext == "" {
			return nil
		}
		ctx := &SingleAgentContext{}
		if err := unmarshalContext(teamContext, ctx); err != nil {
			warnDecode(teamMode, teamContext, err)
			return nil
		}
		return ctx
	case TeamModeAwelLayout:
		if teamContext == "" {
			return nil
		}
		ctx := &AWELTeamContext{}
		if err := unmarshalContext(teamContext, ctx); err != nil {
			warnDecode(teamMode, teamContext, err)
			return nil
		}
		return ctx
	case TeamModeAutoPlan:
		if teamContext == "" {
			return nil
		}
		ctx := &AutoTeamContext{}
		if err := unmarshalContext(teamContext, ctx); err != nil {
			warnDecode(teamMode, teamContext, err)
			return nil
		}
		return ctx
	case TeamModeNativeApp:
		if teamContext == "" {
			return nil
		}
		ctx := &NativeTeamContext{}
		if err := unmarshalContext(teamContext, ctx); err != nil {
			warnDecode(teamMode, teamContext, err)
			return nil
		}
		return ctx
	default:
		return teamContext
	}
}

// unmarshalContext 严格解析失败后，对疑似 JSON 的文本尝试一次修复再解析
func unmarshalContext(raw string, out interface{}) error {
	err := json.Unmarshal([]byte(raw), out)
	if err == nil {
		return nil
	}
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return err
	}
	repaired, rerr := jsonrepair.JSONRepair(raw)
	if rerr != nil {
		return err
	}
	return json.Unmarshal([]byte(repaired), out)
}

func warnDecode(teamMode, teamContext string, err error) {
	ctxLog.WithFields(map[string]interface{}{
		"team_mode":    teamMode,
		"team_context": teamContext,
	}).WithError(err).Warn("decode team context failed")
}
