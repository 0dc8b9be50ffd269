package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/derisk-ai/appserve/internal/errors"
	"github.com/derisk-ai/appserve/internal/model"
)

// MCPServerAddress MCP 服务的 SSE 接入地址
type MCPServerAddress struct {
	Name       string `json:"name"`
	MCPServers string `json:"mcp_servers"`
	Headers    string `json:"headers,omitempty"`
}

// MCPAddress 按来源平台推导 MCP 服务的新接入地址，无法推导时返回 nil
func MCPAddress(source, mcpServer, uri, faasFunctionPre string) *MCPServerAddress {
	if mcpServer == "mcp-linglongcopilot" {
		return nil
	}
	switch strings.ToLower(source) {
	case "df":
		return &MCPServerAddress{
			Name:       mcpServer,
			MCPServers: fmt.Sprintf("%s/mcp/sse?server_name=%s", uri, mcpServer),
		}
	case "faas":
		headers, _ := json.Marshal(map[string]string{
			"x-mcp-server-code": fmt.Sprintf("%s.%s", faasFunctionPre, toCamelCase(mcpServer)),
		})
		return &MCPServerAddress{
			Name:       mcpServer,
			MCPServers: fmt.Sprintf("%s/sse", uri),
			Headers:    string(headers),
		}
	default:
		return nil
	}
}

// toCamelCase 把 - / _ 分隔的名称转驼峰，首段保持原样
func toCamelCase(text string) string {
	normalized := strings.NewReplacer("-", " ", "_", " ").Replace(text)
	words := strings.Fields(normalized)
	if len(words) == 0 {
		return ""
	}
	var builder strings.Builder
	builder.WriteString(words[0])
	for _, word := range words[1:] {
		builder.WriteString(strings.ToUpper(word[:1]))
		builder.WriteString(strings.ToLower(word[1:]))
	}
	return builder.String()
}

// TransferSSE 批量把 auto_plan 应用里的 MCP SSE 资源地址迁移到新来源。
// all 为 true 时遍历全量应用，否则只处理指定的应用编码
func (s *Service) TransferSSE(req *TransferSSERequest) error {
	var apps []*GptsApp
	if req.All {
		allApps, err := s.ListAll()
		if err != nil {
			return err
		}
		apps = allApps
	} else {
		response, err := s.AppList(&GptsAppQuery{AppCodes: req.AppCodeList}, true)
		if err != nil {
			return err
		}
		apps = response.AppList
	}

	for _, appInfo := range apps {
		if appInfo.TeamMode != model.TeamModeAutoPlan || appInfo.TeamContext == nil {
			continue
		}
		teamContext, raw, err := coerceAutoTeamContext(appInfo.TeamContext)
		if err != nil {
			s.log.WithField("app_code", appInfo.AppCode).WithError(err).Error("transfer sse: decode team context failed")
			continue
		}
		if teamContext == nil || len(teamContext.Resources) == 0 {
			continue
		}
		needEdit := false
		for _, resource := range teamContext.Resources {
			if resource.Type != model.ResourceTypeMCPSSE {
				continue
			}
			needEdit = true
			var value MCPServerAddress
			if err := json.Unmarshal([]byte(resource.Value), &value); err != nil {
				return err
			}
			address := MCPAddress(req.Source, value.Name, req.URI, req.FaasFunctionPre)
			if address == nil {
				continue
			}
			encoded, err := json.Marshal(address)
			if err != nil {
				return err
			}
			resource.Value = string(encoded)
		}
		if !needEdit {
			continue
		}
		if raw {
			encoded, err := json.Marshal(teamContext)
			if err != nil {
				return err
			}
			appInfo.TeamContext = string(encoded)
		} else {
			appInfo.TeamContext = teamContext
		}
		if err := s.Edit(appInfo); err != nil {
			return err
		}
	}
	return nil
}

// AllowTools 设置 auto_plan 应用里指定 MCP 服务的工具白名单
func (s *Service) AllowTools(req *AllowToolsRequest) error {
	appInfo, err := s.loadApp(req.AppCode, true)
	if err != nil {
		return err
	}
	if appInfo == nil {
		return &errors.ValidationError{Field: "app_code", Message: fmt.Sprintf("app %s not exist", req.AppCode)}
	}
	if appInfo.TeamMode != model.TeamModeAutoPlan || appInfo.TeamContext == nil {
		return &errors.ValidationError{Field: "team_mode", Message: fmt.Sprintf("app %s not auto plan", req.AppCode)}
	}
	teamContext, raw, err := coerceAutoTeamContext(appInfo.TeamContext)
	if err != nil {
		return &errors.ValidationError{Field: "team_context", Message: err.Error()}
	}
	needEdit := false
	for _, resource := range teamContext.Resources {
		if resource.Type != model.ResourceTypeMCPSSE {
			continue
		}
		value := make(map[string]interface{})
		if err := json.Unmarshal([]byte(resource.Value), &value); err != nil {
			return err
		}
		if name, _ := value["name"].(string); name != req.MCPServer {
			continue
		}
		needEdit = true
		value["allow_tools"] = req.AllowTools
		encoded, err := json.Marshal(value)
		if err != nil {
			return err
		}
		resource.Value = string(encoded)
	}
	if !needEdit {
		return nil
	}
	if raw {
		encoded, err := json.Marshal(teamContext)
		if err != nil {
			return err
		}
		appInfo.TeamContext = string(encoded)
	} else {
		appInfo.TeamContext = teamContext
	}
	return s.Edit(appInfo)
}

// coerceAutoTeamContext 把视图对象里的 team_context 规整为 AutoTeamContext。
// raw 标记原始形态是否为字符串，写回时需要保持同一形态
func coerceAutoTeamContext(teamContext interface{}) (*model.AutoTeamContext, bool, error) {
	switch value := teamContext.(type) {
	case *model.AutoTeamContext:
		return value, false, nil
	case string:
		var decoded model.AutoTeamContext
		if err := json.Unmarshal([]byte(value), &decoded); err != nil {
			return nil, true, err
		}
		return &decoded, true, nil
	default:
		return nil, false, fmt.Errorf("unexpected team context type %T", teamContext)
	}
}
