package app

import (
	"github.com/spf13/cast"

	"github.com/derisk-ai/appserve/internal/model"
)

// NativeAppParam 内置场景的参数模板声明
type NativeAppParam struct {
	ChatScene string               `json:"chat_scene"`
	SceneName string               `json:"scene_name"`
	ParamNeed []model.AppParamNeed `json:"param_need"`
}

// Dialogue 入站会话请求的适配视图
type Dialogue struct {
	ChatMode    string `json:"chat_mode"`
	AppCode     string `json:"app_code"`
	SelectParam string `json:"select_param"`
	PromptCode  string `json:"prompt_code"`
	ModelName   string `json:"model_name"`
	UserName    string `json:"user_name"`
	SysCode     string `json:"sys_code"`
}

// nativeScene 内置场景目录项
type nativeScene struct {
	context   model.NativeTeamContext
	paramNeed []model.AppParamNeed
}

func nativeSceneCatalog() []nativeScene {
	modelParams := []model.AppParamNeed{
		{Type: model.ParamTypeModel, Value: nil},
		{Type: model.ParamTypeTemperature, Value: nil},
		{Type: model.ParamTypeMaxNewTokens, Value: nil},
	}
	withResource := func(resourceType string) []model.AppParamNeed {
		params := []model.AppParamNeed{
			{Type: model.ParamTypeResource, Value: strPtr(resourceType)},
		}
		return append(params, modelParams...)
	}

	return []nativeScene{
		{
			context: model.NativeTeamContext{
				ChatScene:     model.SceneChatKnowledge,
				SceneName:     "Chat Knowledge",
				SceneDescribe: "Private knowledge base Q&A",
			},
			paramNeed: withResource(model.ResourceTypeKnowledge),
		},
		{
			context: model.NativeTeamContext{
				ChatScene:     model.SceneChatNormal,
				SceneName:     "Chat Normal",
				SceneDescribe: "Native LLM dialogue",
			},
			paramNeed: modelParams,
		},
		{
			context: model.NativeTeamContext{
				ChatScene:     model.SceneChatWithDBQA,
				SceneName:     "Chat DB",
				SceneDescribe: "Database Metadata Q&A",
			},
			paramNeed: withResource(model.ResourceTypeDB),
		},
		{
			context: model.NativeTeamContext{
				ChatScene:     model.SceneChatWithDBExecute,
				SceneName:     "Chat Data",
				SceneDescribe: "Have a conversation with your private data through natural language",
			},
			paramNeed: withResource(model.ResourceTypeDB),
		},
		{
			context: model.NativeTeamContext{
				ChatScene:     model.SceneChatDashboard,
				SceneName:     "Chat Dashboard",
				SceneDescribe: "Provide you with professional data analysis reports through natural language",
			},
			paramNeed: withResource(model.ResourceTypeDB),
		},
		{
			context: model.NativeTeamContext{
				ChatScene:     model.SceneChatExcel,
				SceneName:     "Chat Excel",
				SceneDescribe: "Excel analysis through natural language",
			},
			paramNeed: withResource(model.ResourceTypeExcelFile),
		},
	}
}

// InitNativeApps 初始化内置应用，每个场景删旧重建。
// 单个场景失败只记日志，不阻塞其余场景
func (s *Service) InitNativeApps(userCode string) {
	for _, scene := range nativeSceneCatalog() {
		context := scene.context
		nativeApp := &GptsApp{
			AppCode:     context.ChatScene,
			AppName:     context.SceneName,
			Language:    s.language,
			TeamMode:    model.TeamModeNativeApp,
			Details:     []*GptsAppDetail{},
			AppDescribe: context.SceneDescribe,
			TeamContext: &context,
			ParamNeed:   scene.paramNeed,
			UserCode:    userCode,
			Published:   "true",
		}
		if err := s.RemoveNativeApp(nativeApp.AppCode); err != nil {
			s.log.WithField("chat_scene", context.ChatScene).WithError(err).Error("remove native app error")
			continue
		}
		if _, err := s.Create(nativeApp); err != nil {
			s.log.WithField("chat_scene", context.ChatScene).WithError(err).Error("create native app error")
		}
	}
}

// RemoveNativeApp 删除指定内置应用行
func (s *Service) RemoveNativeApp(appCode string) error {
	return s.apps.RemoveNative(appCode)
}

// NativeAppParams 返回内置场景的参数模板列表
func NativeAppParams() []NativeAppParam {
	scenes := nativeSceneCatalog()
	byScene := make(map[string]nativeScene, len(scenes))
	for _, scene := range scenes {
		byScene[scene.context.ChatScene] = scene
	}
	order := []string{
		model.SceneChatExcel,
		model.SceneChatWithDBQA,
		model.SceneChatWithDBExecute,
		model.SceneChatKnowledge,
		model.SceneChatDashboard,
		model.SceneChatNormal,
	}
	params := make([]NativeAppParam, 0, len(order))
	for _, chatScene := range order {
		scene := byScene[chatScene]
		params = append(params, NativeAppParam{
			ChatScene: scene.context.ChatScene,
			SceneName: scene.context.SceneName,
			ParamNeed: scene.paramNeed,
		})
	}
	return params
}

// AdaptNativeAppModel 把命中内置场景的会话请求改写到对应内置应用：
// 应用声明了唯一一个已绑定的资源参数时，改写选中参数和生效场景；
// 知识场景下非数字的选中参数按名称解析到知识空间。
// 适配是尽力而为，任何失败都吞掉并原样返回请求
func (s *Service) AdaptNativeAppModel(dialogue *Dialogue) *Dialogue {
	if !model.IsNativeScene(dialogue.ChatMode) {
		return dialogue
	}
	appInfo, err := s.loadApp(dialogue.AppCode, false)
	if err != nil || appInfo == nil {
		s.log.WithField("app_code", dialogue.AppCode).WithError(err).Info("adapt native app model: app not loaded")
		return dialogue
	}
	if appInfo.TeamMode != model.TeamModeNativeApp || len(appInfo.ParamNeed) == 0 {
		return dialogue
	}

	var resourceParams []model.AppParamNeed
	var promptParams []model.AppParamNeed
	for _, param := range appInfo.ParamNeed {
		switch param.Type {
		case model.ParamTypeResource:
			resourceParams = append(resourceParams, param)
		case model.ParamTypePromptTemplate:
			promptParams = append(promptParams, param)
		}
	}
	dialogue.PromptCode = ""
	if len(promptParams) > 0 && promptParams[0].Value != nil {
		dialogue.PromptCode = *promptParams[0].Value
	}

	if len(resourceParams) != 1 {
		return dialogue
	}
	resourceParam := resourceParams[0]
	if resourceParam.BindValue != "" {
		teamContext, ok := appInfo.TeamContext.(*model.NativeTeamContext)
		if !ok {
			s.log.WithField("app_code", appInfo.AppCode).Info("adapt native app model: team context is not native")
			return dialogue
		}
		dialogue.SelectParam = parseSelectParam(teamContext.ChatScene, resourceParam.BindValue)
		dialogue.ChatMode = teamContext.ChatScene
	} else if appInfo.AppCode == model.SceneChatKnowledge && !isNumeric(dialogue.SelectParam) {
		spaces, err := s.knowledge.ListByName(dialogue.SelectParam)
		if err != nil {
			s.log.WithError(err).Info("adapt native app model: resolve knowledge space failed")
			return dialogue
		}
		if len(spaces) == 1 {
			dialogue.SelectParam = spaces[0].Name
		}
	}
	return dialogue
}

// parseSelectParam 预留场景级的绑定值改写，目前全部原样返回
func parseSelectParam(chatScene string, bindValue string) string {
	switch chatScene {
	default:
		return bindValue
	}
}

func isNumeric(value string) bool {
	_, err := cast.ToIntE(value)
	return err == nil
}

func strPtr(v string) *string {
	return &v
}
