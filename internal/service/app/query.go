package app

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/derisk-ai/appserve/internal/model"
	"github.com/derisk-ai/appserve/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 100
)

// AppList 构建过滤、分页、归属感知的应用列表。
// 过滤条件全部 AND 组合，未设置的条件不生效；
// 计数在分页前，最终按热度降序稳定重排，未知热度排在最后
func (s *Service) AppList(query *GptsAppQuery, parseLLMStrategy bool) (*GptsAppResponse, error) {
	if query.Page <= 0 {
		query.Page = defaultPage
	}
	if query.PageSize <= 0 {
		query.PageSize = defaultPageSize
	}

	collections, err := s.collections.List("", query.UserCode, query.SysCode)
	if err != nil {
		return nil, err
	}
	collectedCodes := make(map[string]bool, len(collections))
	collectedList := make([]string, 0, len(collections))
	for _, collection := range collections {
		collectedCodes[collection.AppCode] = true
		collectedList = append(collectedList, collection.AppCode)
	}

	recentUsed := strings.EqualFold(query.IsRecentUsed, "true")
	var recentCodes []string
	if recentUsed {
		recentApps, err := s.recents.Query(query.UserCode, query.SysCode, query.AppCode)
		if err != nil {
			return nil, err
		}
		for _, recentApp := range recentApps {
			recentCodes = append(recentCodes, recentApp.AppCode)
		}
	}

	filter := &repository.AppFilter{
		AppName:    query.AppName,
		UserCode:   query.UserCode,
		SysCode:    query.SysCode,
		TeamMode:   query.TeamMode,
		IgnoreUser: strings.EqualFold(query.IgnoreUser, "true"),
		// is_collected 只要取值是 true/false 之一就过滤到收藏集合，不做反向过滤，
		// 与线上行为保持一致
		FilterCollected: isTrueOrFalse(query.IsCollected),
		CollectedCodes:  collectedList,
		FilterRecent:    recentUsed,
		RecentCodes:     recentCodes,
		Published:       normalizedBoolString(query.Published),
		AppCodes:        query.AppCodes,
		Page:            query.Page,
		PageSize:        query.PageSize,
	}
	results, totalCount, err := s.apps.Search(filter)
	if err != nil {
		return nil, err
	}

	resultCodes := make([]string, 0, len(results))
	for _, result := range results {
		resultCodes = append(resultCodes, result.AppCode)
	}
	detailsGroup, err := s.groupAppDetails(resultCodes)
	if err != nil {
		return nil, err
	}
	questionGroup := s.groupAppQuestions(resultCodes)

	apps := make([]*GptsApp, 0, len(results))
	for _, appInfo := range results {
		appDetails := detailsGroup[appInfo.AppCode]
		// 推理规划应用的状态只存在父级上下文中，成员行以合成的单条代替
		if appInfo.TeamMode == model.TeamModeAutoPlan &&
			strings.Index(appInfo.TeamContext, "reasoning_engine") > 0 {
			syntheticDetail, err := reasoningPlannerDetail(appInfo)
			if err != nil {
				s.log.WithField("app_code", appInfo.AppCode).WithError(err).Warn("synthesize reasoning planner detail failed")
				continue
			}
			appDetails = []*model.GptsAppDetail{syntheticDetail}
		}
		assembled, err := s.assembleApp(appInfo, appDetails, query.HotMap, collectedCodes, parseLLMStrategy)
		if err != nil {
			s.log.WithField("app_code", appInfo.AppCode).WithError(err).Warn("assemble app failed, skipped")
			continue
		}
		if questions := questionGroup[appInfo.AppCode]; len(questions) > 0 {
			assembled.RecommendQuestions = questions
		}
		apps = append(apps, assembled)
	}

	sort.SliceStable(apps, func(i, j int) bool {
		return hotRank(apps[i].HotValue) > hotRank(apps[j].HotValue)
	})

	return &GptsAppResponse{
		TotalCount:  totalCount,
		TotalPage:   int((totalCount + int64(query.PageSize) - 1) / int64(query.PageSize)),
		CurrentPage: query.Page,
		AppList:     apps,
	}, nil
}

// ListHotApps 从用量聚合器取热度榜单，再按榜单码集走列表查询
func (s *Service) ListHotApps(ctx context.Context, query *GptsAppQuery) ([]*GptsApp, error) {
	if s.usage == nil {
		return []*GptsApp{}, nil
	}
	page := query.Page
	if page <= 0 {
		page = defaultPage
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	entries, err := s.usage.HotAppMap(ctx, page-1, pageSize)
	if err != nil {
		return nil, err
	}
	s.log.WithField("hot_app_map", entries).Info("list hot apps")
	if len(entries) == 0 {
		return []*GptsApp{}, nil
	}
	hotMap := make(map[string]*int, len(entries))
	appCodes := make([]string, 0, len(entries))
	for _, entry := range entries {
		sz := entry.Sz
		hotMap[entry.AppCode] = &sz
		appCodes = append(appCodes, entry.AppCode)
	}
	response, err := s.AppList(&GptsAppQuery{AppCodes: appCodes, HotMap: hotMap}, false)
	if err != nil {
		return nil, err
	}
	return response.AppList, nil
}

// ListAll 查询全部应用主表行，不带成员行，team_context 保持原始文本
func (s *Service) ListAll() ([]*GptsApp, error) {
	entities, err := s.apps.ListAll()
	if err != nil {
		return nil, err
	}
	apps := make([]*GptsApp, 0, len(entities))
	for _, entity := range entities {
		apps = append(apps, &GptsApp{
			AppCode:            entity.AppCode,
			AppName:            entity.AppName,
			Language:           entity.Language,
			AppDescribe:        entity.AppDescribe,
			TeamMode:           entity.TeamMode,
			TeamContext:        entity.TeamContext,
			UserCode:           entity.UserCode,
			SysCode:            entity.SysCode,
			CreatedAt:          entity.CreatedAt,
			UpdatedAt:          entity.UpdatedAt,
			Published:          entity.Published,
			Details:            []*GptsAppDetail{},
			Admins:             []string{},
			RecommendQuestions: []string{},
		})
	}
	return apps, nil
}

// AppsByKnowledgeID 在原始 team_context 文本上做子串扫描，返回实体形态
func (s *Service) AppsByKnowledgeID(knowledgeID string) ([]*model.GptsApp, error) {
	return s.apps.ListByKnowledgeID(knowledgeID)
}

// NativeAppDetail 按名称查询内置应用的解码聚合，未命中记日志返回 nil
func (s *Service) NativeAppDetail(appName string) (*GptsApp, error) {
	entity, err := s.apps.GetNativeByName(appName)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		s.log.WithField("app_name", appName).Warn("native app not found")
		return nil, nil
	}
	details, err := s.apps.DetailsByAppCode(entity.AppCode)
	if err != nil {
		return nil, err
	}
	return s.assembleApp(entity, details, nil, nil, false)
}

// groupAppDetails 批量读成员行并按 app_code 分组
func (s *Service) groupAppDetails(appCodes []string) (map[string][]*model.GptsAppDetail, error) {
	details, err := s.apps.DetailsByAppCodes(appCodes)
	if err != nil {
		return nil, err
	}
	group := make(map[string][]*model.GptsAppDetail, len(appCodes))
	for _, detail := range details {
		group[detail.AppCode] = append(group[detail.AppCode], detail)
	}
	return group, nil
}

// groupAppQuestions 推荐问题分组，暂未接入数据源
func (s *Service) groupAppQuestions(appCodes []string) map[string][]string {
	return map[string][]string{}
}

// assembleApp 把主表行和成员行装配成解码后的聚合
func (s *Service) assembleApp(
	appInfo *model.GptsApp,
	appDetails []*model.GptsAppDetail,
	hotMap map[string]*int,
	collectedCodes map[string]bool,
	parseLLMStrategy bool,
) (*GptsApp, error) {
	details := make([]*GptsAppDetail, 0, len(appDetails))
	for _, detail := range appDetails {
		converted, err := detailFromEntity(detail, parseLLMStrategy)
		if err != nil {
			return nil, err
		}
		details = append(details, converted)
	}

	var paramNeed []model.AppParamNeed
	if appInfo.ParamNeed != nil && *appInfo.ParamNeed != "" {
		if err := json.Unmarshal([]byte(*appInfo.ParamNeed), &paramNeed); err != nil {
			return nil, err
		}
	}

	isCollected := "false"
	if collectedCodes[appInfo.AppCode] {
		isCollected = "true"
	}

	hotValue := intPtr(0)
	if hotMap != nil {
		if v, ok := hotMap[appInfo.AppCode]; ok {
			hotValue = v
		}
	}

	return &GptsApp{
		AppCode:            appInfo.AppCode,
		AppName:            appInfo.AppName,
		Language:           appInfo.Language,
		AppDescribe:        appInfo.AppDescribe,
		TeamMode:           appInfo.TeamMode,
		TeamContext:        model.DecodeTeamContext(appInfo.TeamMode, appInfo.TeamContext),
		UserCode:           appInfo.UserCode,
		Icon:               appInfo.Icon,
		SysCode:            appInfo.SysCode,
		IsCollected:        isCollected,
		CreatedAt:          appInfo.CreatedAt,
		UpdatedAt:          appInfo.UpdatedAt,
		Details:            details,
		Published:          appInfo.Published,
		ParamNeed:          paramNeed,
		HotValue:           hotValue,
		OwnerName:          appInfo.UserCode,
		RecommendQuestions: []string{},
		Admins:             []string{},
		KeepStartRounds:    1,
		KeepEndRounds:      1,
	}, nil
}

// detailFromEntity 成员行转换为视图对象。
// parseLLMStrategy 时把 JSON 数组存储形态还原为逗号拼接的内存形态
func detailFromEntity(entity *model.GptsAppDetail, parseLLMStrategy bool) (*GptsAppDetail, error) {
	var resourcesRaw string
	if entity.Resources != nil {
		resourcesRaw = *entity.Resources
	}
	resources, err := model.AgentResourcesFromJSON(resourcesRaw)
	if err != nil {
		return nil, err
	}

	strategyValue := entity.LLMStrategyValue
	if parseLLMStrategy && entity.LLMStrategyValue != nil && *entity.LLMStrategyValue != "" {
		var strategies []string
		if err := json.Unmarshal([]byte(*entity.LLMStrategyValue), &strategies); err != nil {
			return nil, err
		}
		joined := strings.Join(strategies, ",")
		strategyValue = &joined
	}

	return &GptsAppDetail{
		AppCode:          entity.AppCode,
		AppName:          entity.AppName,
		Type:             entity.Type,
		AgentName:        entity.AgentName,
		AgentRole:        entity.AgentRole,
		AgentDescribe:    entity.AgentDescribe,
		NodeID:           entity.NodeID,
		Resources:        resources,
		PromptTemplate:   entity.PromptTemplate,
		LLMStrategy:      entity.LLMStrategy,
		LLMStrategyValue: strategyValue,
		CreatedAt:        entity.CreatedAt,
		UpdatedAt:        entity.UpdatedAt,
	}, nil
}

// reasoningPlannerDetail 从父级上下文合成推理规划器成员行
func reasoningPlannerDetail(appInfo *model.GptsApp) (*model.GptsAppDetail, error) {
	var teamContext struct {
		LLMStrategy      string          `json:"llm_strategy"`
		LLMStrategyValue json.RawMessage `json:"llm_strategy_value"`
		Resources        json.RawMessage `json:"resources"`
	}
	if err := json.Unmarshal([]byte(appInfo.TeamContext), &teamContext); err != nil {
		return nil, err
	}
	detail := &model.GptsAppDetail{
		AppCode:     appInfo.AppCode,
		AppName:     appInfo.AppName,
		AgentName:   model.ReasoningPlannerName,
		AgentRole:   model.ReasoningPlannerName,
		NodeID:      appInfo.AppCode,
		LLMStrategy: teamContext.LLMStrategy,
		CreatedAt:   appInfo.CreatedAt,
		UpdatedAt:   appInfo.UpdatedAt,
	}
	if len(teamContext.LLMStrategyValue) > 0 && string(teamContext.LLMStrategyValue) != "null" {
		strategyValue := string(teamContext.LLMStrategyValue)
		detail.LLMStrategyValue = &strategyValue
	}
	if len(teamContext.Resources) > 0 && string(teamContext.Resources) != "null" {
		resources := string(teamContext.Resources)
		detail.Resources = &resources
	}
	return detail, nil
}

func isTrueOrFalse(value string) bool {
	lower := strings.ToLower(value)
	return lower == "true" || lower == "false"
}

func normalizedBoolString(value string) string {
	lower := strings.ToLower(value)
	if lower == "true" || lower == "false" {
		return lower
	}
	return ""
}

// hotRank 未知热度按负无穷处理，排序后落在最后
func hotRank(hotValue *int) float64 {
	if hotValue == nil {
		return math.Inf(-1)
	}
	return float64(*hotValue)
}

func intPtr(v int) *int {
	return &v
}
