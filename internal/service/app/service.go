package app

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/derisk-ai/appserve/internal/errors"
	"github.com/derisk-ai/appserve/internal/logger"
	"github.com/derisk-ai/appserve/internal/model"
	"github.com/derisk-ai/appserve/internal/repository"
	"github.com/derisk-ai/appserve/internal/service/hotness"
)

// UsageAggregator 会话历史用量聚合器，提供热度应用榜单
type UsageAggregator interface {
	RecordUse(ctx context.Context, appCode string) error
	HotAppMap(ctx context.Context, page, pageSize int) ([]hotness.Entry, error)
}

// Service 应用聚合服务，持久化接口全部通过构造注入
type Service struct {
	apps        *repository.AppRepository
	collections *repository.CollectionRepository
	recents     *repository.RecentRepository
	knowledge   *repository.KnowledgeRepository
	usage       UsageAggregator
	language    string
	log         *logger.Logger
}

// NewService 创建应用服务，language 为内置应用初始化语言，空值取 zh
func NewService(repos *repository.Repositories, usage UsageAggregator, language string) *Service {
	if language == "" {
		language = "zh"
	}
	return &Service{
		apps:        repos.App,
		collections: repos.Collection,
		recents:     repos.Recent,
		knowledge:   repos.Knowledge,
		usage:       usage,
		language:    language,
		log:         logger.New("gpts_app"),
	}
}

// Create 创建应用。app_code 缺省时生成 UUID，
// 主表行和全部成员行在一个事务内写入
func (s *Service) Create(gptsApp *GptsApp) (*GptsApp, error) {
	appCode := gptsApp.AppCode
	if appCode == "" {
		appCode = uuid.NewString()
	}
	published := "false"
	if gptsApp.Published != "" {
		published = "true"
	}
	paramNeed, err := marshalParamNeed(gptsApp.ParamNeed, false)
	if err != nil {
		return nil, err
	}

	entity := &model.GptsApp{
		AppCode:     appCode,
		AppName:     gptsApp.AppName,
		AppDescribe: gptsApp.AppDescribe,
		TeamMode:    gptsApp.TeamMode,
		TeamContext: model.EncodeTeamContext(gptsApp.TeamContext),
		Language:    gptsApp.Language,
		UserCode:    gptsApp.UserCode,
		SysCode:     gptsApp.SysCode,
		Icon:        gptsApp.Icon,
		Published:   published,
		ParamNeed:   paramNeed,
	}

	details := make([]*model.GptsAppDetail, 0, len(gptsApp.Details))
	for _, item := range gptsApp.Details {
		if item.AgentName == "" {
			return nil, &errors.ValidationError{Field: "agent_name", Message: "agent name cannot be empty"}
		}
		resources, err := encodeResources(item.Resources)
		if err != nil {
			return nil, err
		}
		strategyValue, err := encodeStrategyValue(item.LLMStrategyValue)
		if err != nil {
			return nil, err
		}
		details = append(details, &model.GptsAppDetail{
			AppCode:          entity.AppCode,
			AppName:          entity.AppName,
			AgentName:        item.AgentName,
			AgentRole:        fallback(item.AgentRole, item.AgentName),
			NodeID:           uuid.NewString(),
			Resources:        resources,
			PromptTemplate:   item.PromptTemplate,
			LLMStrategy:      item.LLMStrategy,
			LLMStrategyValue: strategyValue,
		})
	}

	if err := s.apps.CreateWithDetails(entity, details); err != nil {
		return nil, fmt.Errorf("create app failed: %w", err)
	}
	gptsApp.AppCode = entity.AppCode
	return gptsApp, nil
}

// Edit 编辑应用，标量字段覆盖，成员行整体删旧插新。
// 例外是推理规划应用：唯一成员名为 ReasoningPlanner 时，
// 其策略与资源直接合成为父级 auto_plan 上下文，成员表保持为空
func (s *Service) Edit(gptsApp *GptsApp) error {
	if gptsApp.AppCode == "" {
		return &errors.ValidationError{Field: "app_code", Message: "app_code is empty, don't allow to edit"}
	}
	entity, err := s.apps.GetByCode(gptsApp.AppCode)
	if err != nil {
		return err
	}
	if entity == nil {
		return errors.ErrAppNotFound
	}

	isReasoningAgent := len(gptsApp.Details) == 1 &&
		gptsApp.Details[0].AgentName == model.ReasoningPlannerName
	if isReasoningAgent {
		planner := gptsApp.Details[0]
		var strategyValues []string
		if planner.LLMStrategyValue != nil {
			strategyValues = strings.Split(*planner.LLMStrategyValue, ",")
		}
		entity.TeamContext = model.EncodeTeamContext(&model.AutoTeamContext{
			CanAskUser:       true,
			LLMStrategy:      planner.LLMStrategy,
			LLMStrategyValue: strategyValues,
			PromptTemplate:   nil,
			Resources:        planner.Resources,
			TeamLeader:       model.ReasoningPlannerName,
		})
	} else {
		entity.TeamContext = model.EncodeTeamContext(gptsApp.TeamContext)
	}
	entity.AppName = gptsApp.AppName
	entity.AppDescribe = gptsApp.AppDescribe
	entity.Language = gptsApp.Language
	entity.TeamMode = gptsApp.TeamMode
	entity.Icon = gptsApp.Icon
	paramNeed, err := marshalParamNeed(gptsApp.ParamNeed, true)
	if err != nil {
		return err
	}
	entity.ParamNeed = paramNeed

	var details []*model.GptsAppDetail
	if !isReasoningAgent {
		for _, item := range gptsApp.Details {
			resources, err := encodeResources(item.Resources)
			if err != nil {
				return err
			}
			strategyValue, err := encodeStrategyValue(item.LLMStrategyValue)
			if err != nil {
				return err
			}
			details = append(details, &model.GptsAppDetail{
				AppCode:          gptsApp.AppCode,
				AppName:          gptsApp.AppName,
				Type:             item.Type,
				AgentName:        item.AgentName,
				AgentRole:        fallback(item.AgentRole, item.AgentName),
				AgentDescribe:    item.AgentDescribe,
				NodeID:           uuid.NewString(),
				Resources:        resources,
				PromptTemplate:   item.PromptTemplate,
				LLMStrategy:      item.LLMStrategy,
				LLMStrategyValue: strategyValue,
			})
		}
	}

	if err := s.apps.ReplaceWithDetails(entity, details); err != nil {
		return fmt.Errorf("edit app failed: %w", err)
	}
	return nil
}

// AppDetail 按 app_code 查询持久化实体形态，未解码。
// 需要完整解码聚合的调用方走查询引擎
func (s *Service) AppDetail(appCode string) (*model.GptsApp, error) {
	return s.apps.GetByCode(appCode)
}

// Delete 删除应用及其成员行、收藏行
func (s *Service) Delete(appCode string) error {
	if appCode == "" {
		return &errors.ValidationError{Field: "app_code", Message: "cannot delete app when app_code is empty"}
	}
	return s.apps.DeleteCascade(appCode)
}

// Publish 发布应用并清空全部收藏标记，应用不存在时为空操作
func (s *Service) Publish(appCode string) error {
	if appCode == "" {
		return &errors.ValidationError{Field: "app_code", Message: "cannot publish app when app_code is empty"}
	}
	return s.apps.SetPublished(appCode, "true")
}

// Unpublish 取消发布并清空全部收藏标记，应用不存在时为空操作
func (s *Service) Unpublish(appCode string) error {
	if appCode == "" {
		return &errors.ValidationError{Field: "app_code", Message: "cannot unpublish app when app_code is empty"}
	}
	return s.apps.SetPublished(appCode, "false")
}

// UpdateAdmins 更新管理员列表
func (s *Service) UpdateAdmins(appCode string, admins []string) error {
	if err := s.apps.UpdateAdmins(appCode, model.StringList(admins)); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrAppNotFound
		}
		return err
	}
	return nil
}

// GetAdmins 查询管理员列表
func (s *Service) GetAdmins(appCode string) ([]string, error) {
	admins, err := s.apps.GetAdmins(appCode)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrAppNotFound
		}
		return nil, err
	}
	return admins, nil
}

// BindAutoTeamApps 把一批应用转换为目标 auto_plan 团队的子 Agent。
// 所有绑定码先行解析，任何一个不存在则整体失败并列出全部问题码；
// 暂时只支持单 Agent 应用，其他团队模式静默跳过
func (s *Service) BindAutoTeamApps(teamAppCode string, bindAppCodes []string) error {
	s.log.WithFields(map[string]interface{}{
		"team_app_code": teamAppCode,
		"bind_apps":     bindAppCodes,
	}).Info("bind auto team apps")

	// 团队自身的存量成员要带逗号拼接形态进入 Edit，否则存储形态会被再次编码
	teamApp, err := s.loadApp(teamAppCode, true)
	if err != nil {
		return err
	}
	if teamApp == nil {
		return &errors.ValidationError{Field: "team_app_code", Message: fmt.Sprintf("%s is not a app", teamAppCode)}
	}
	if teamApp.TeamMode != model.TeamModeAutoPlan {
		return &errors.ValidationError{Field: "team_mode", Message: fmt.Sprintf("%s is not a multi agents app", teamApp.AppName)}
	}

	gptApps := make([]*GptsApp, 0, len(bindAppCodes))
	var errAppCodes []string
	for _, bindCode := range bindAppCodes {
		gptApp, err := s.loadApp(bindCode, false)
		if err != nil {
			return err
		}
		if gptApp == nil {
			errAppCodes = append(errAppCodes, bindCode)
			continue
		}
		gptApps = append(gptApps, gptApp)
	}
	if len(errAppCodes) > 0 {
		return &errors.ValidationError{
			Field:   "bin_app_codes",
			Message: fmt.Sprintf("there is a problem with the app codes to be bound [%s]", strings.Join(errAppCodes, ",")),
		}
	}

	for _, gptApp := range gptApps {
		// 多 Agent 应用绑定需要把子 Agent 资源提升到团队层，方案待定，先只转换单 Agent 应用
		if gptApp.TeamMode != model.TeamModeSingleAgent {
			continue
		}
		if len(gptApp.Details) == 0 {
			s.log.WithField("app_code", gptApp.AppCode).Warn("bind app has no details, skipped")
			continue
		}
		newDetail := *gptApp.Details[0]
		newDetail.AppName = teamApp.AppName
		newDetail.AppCode = teamApp.AppCode
		if newDetail.LLMStrategyValue != nil {
			var strategyValues []string
			if err := json.Unmarshal([]byte(*newDetail.LLMStrategyValue), &strategyValues); err != nil {
				return fmt.Errorf("parse llm_strategy_value of %s failed: %w", gptApp.AppCode, err)
			}
			// 还原为前端形态的逗号拼接值
			joined := strings.Join(strategyValues, ",")
			newDetail.LLMStrategyValue = &joined
		}
		newDetail.AgentDescribe = gptApp.AppDescribe
		newDetail.AgentRole = fallback(newDetail.AgentRole, newDetail.AgentName)
		newDetail.AgentName = gptApp.AppName
		teamApp.Details = append(teamApp.Details, &newDetail)
		if err := s.Edit(teamApp); err != nil {
			return err
		}
	}
	return nil
}

// Collect 收藏应用
func (s *Service) Collect(appCode, userCode, sysCode string) error {
	return s.collections.Collect(appCode, userCode, sysCode)
}

// Uncollect 取消收藏
func (s *Service) Uncollect(appCode, userCode, sysCode string) error {
	return s.collections.Uncollect(appCode, userCode, sysCode)
}

// CollectionList 查询收藏关系
func (s *Service) CollectionList(appCode, userCode, sysCode string) ([]*model.GptsAppCollection, error) {
	return s.collections.List(appCode, userCode, sysCode)
}

// RecordAppUse 记录一次应用使用：刷新最近使用并累计热度。
// 两者都是尽力而为，失败只记日志，不影响会话主流程
func (s *Service) RecordAppUse(ctx context.Context, userCode, sysCode, appCode string) {
	if _, err := s.recents.Upsert(userCode, sysCode, appCode); err != nil {
		s.log.WithError(err).Error("recent use app upsert error")
	}
	if s.usage != nil {
		if err := s.usage.RecordUse(ctx, appCode); err != nil {
			s.log.WithError(err).Warn("record hot app use error")
		}
	}
}

// loadApp 加载解码后的完整聚合，含成员行。未命中返回 nil
func (s *Service) loadApp(appCode string, parseLLMStrategy bool) (*GptsApp, error) {
	if appCode == "" {
		return nil, nil
	}
	entity, err := s.apps.GetByCode(appCode)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}
	details, err := s.apps.DetailsByAppCode(appCode)
	if err != nil {
		return nil, err
	}
	return s.assembleApp(entity, details, nil, nil, parseLLMStrategy)
}

// encodeResources 资源列表编码为 JSON 文本，nil 列表存 NULL
func encodeResources(resources []*model.AgentResource) (*string, error) {
	if resources == nil {
		return nil, nil
	}
	encoded, err := model.AgentResourcesToJSON(resources)
	if err != nil {
		return nil, err
	}
	return &encoded, nil
}

// encodeStrategyValue 逗号拼接的内存形态编码为 JSON 数组文本
func encodeStrategyValue(value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	b, err := json.Marshal(strings.Split(*value, ","))
	if err != nil {
		return nil, err
	}
	encoded := string(b)
	return &encoded, nil
}

// marshalParamNeed 编辑路径无条件序列化（nil 存为 "null" 文本），
// 创建路径空值存 NULL
func marshalParamNeed(paramNeed []model.AppParamNeed, always bool) (*string, error) {
	if !always && len(paramNeed) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(paramNeed)
	if err != nil {
		return nil, err
	}
	encoded := string(b)
	return &encoded, nil
}

func fallback(value, def string) string {
	if value != "" {
		return value
	}
	return def
}
