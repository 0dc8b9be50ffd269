// Package app 提供应用聚合服务单元测试
package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/derisk-ai/appserve/internal/errors"
	"github.com/derisk-ai/appserve/internal/model"
	"github.com/derisk-ai/appserve/internal/repository"
	"github.com/derisk-ai/appserve/internal/service/hotness"
	"github.com/derisk-ai/appserve/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *repository.Repositories) {
	t.Helper()
	db := testutil.NewTestDB(t)
	repos := repository.NewRepositories(db)
	return NewService(repos, hotness.New(nil), "zh"), repos
}

// ========== Create 测试 ==========

func TestCreate_GeneratesAppCode(t *testing.T) {
	service, repos := newTestService(t)

	created, err := service.Create(&GptsApp{
		AppName:  "my app",
		TeamMode: model.TeamModeSingleAgent,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.AppCode)

	entity, err := repos.App.GetByCode(created.AppCode)
	require.NoError(t, err)
	require.NotNil(t, entity)
	require.Equal(t, "my app", entity.AppName)
}

func TestCreate_PublishedTruthiness(t *testing.T) {
	service, repos := newTestService(t)

	// 任何非空输入都折算为 true，空输入折算为 false
	created, err := service.Create(&GptsApp{AppName: "pub", TeamMode: model.TeamModeSingleAgent, Published: "on"})
	require.NoError(t, err)
	entity, err := repos.App.GetByCode(created.AppCode)
	require.NoError(t, err)
	require.Equal(t, "true", entity.Published)

	created, err = service.Create(&GptsApp{AppName: "unpub", TeamMode: model.TeamModeSingleAgent})
	require.NoError(t, err)
	entity, err = repos.App.GetByCode(created.AppCode)
	require.NoError(t, err)
	require.Equal(t, "false", entity.Published)
}

func TestCreate_StrategyValueStoredAsJSONArray(t *testing.T) {
	service, repos := newTestService(t)

	strategyValue := "a,b,c"
	created, err := service.Create(&GptsApp{
		AppName:  "strategies",
		TeamMode: model.TeamModeSingleAgent,
		Details: []*GptsAppDetail{
			{AgentName: "Worker", LLMStrategy: "priority", LLMStrategyValue: &strategyValue},
		},
	})
	require.NoError(t, err)

	details, err := repos.App.DetailsByAppCode(created.AppCode)
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.NotNil(t, details[0].LLMStrategyValue)
	require.Equal(t, `["a","b","c"]`, *details[0].LLMStrategyValue)
	require.Equal(t, "Worker", details[0].AgentRole, "agent_role falls back to agent_name")
	require.NotEmpty(t, details[0].NodeID)
}

func TestCreate_EmptyAgentNameRejected(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Create(&GptsApp{
		AppName:  "broken",
		TeamMode: model.TeamModeSingleAgent,
		Details:  []*GptsAppDetail{{AgentName: ""}},
	})
	require.True(t, errors.IsValidation(err))
}

// ========== Edit 测试 ==========

func TestEdit_ReplacesAllDetails(t *testing.T) {
	service, repos := newTestService(t)

	created, err := service.Create(&GptsApp{
		AppName:  "team",
		TeamMode: model.TeamModeAutoPlan,
		Details: []*GptsAppDetail{
			{AgentName: "A"}, {AgentName: "B"}, {AgentName: "C"},
		},
	})
	require.NoError(t, err)

	created.Details = []*GptsAppDetail{{AgentName: "D", AgentDescribe: "the only one"}}
	require.NoError(t, service.Edit(created))

	details, err := repos.App.DetailsByAppCode(created.AppCode)
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.Equal(t, "D", details[0].AgentName)
	require.Equal(t, "the only one", details[0].AgentDescribe)
}

func TestEdit_ReasoningPlannerFoldsIntoParentContext(t *testing.T) {
	service, repos := newTestService(t)

	created, err := service.Create(&GptsApp{
		AppName:  "reasoner",
		TeamMode: model.TeamModeAutoPlan,
		Details:  []*GptsAppDetail{{AgentName: "A"}},
	})
	require.NoError(t, err)

	strategyValue := "m1,m2"
	created.Details = []*GptsAppDetail{{
		AgentName:        model.ReasoningPlannerName,
		LLMStrategy:      "priority",
		LLMStrategyValue: &strategyValue,
	}}
	require.NoError(t, service.Edit(created))

	// 成员表清空，状态只保留在父级上下文
	details, err := repos.App.DetailsByAppCode(created.AppCode)
	require.NoError(t, err)
	require.Empty(t, details)

	entity, err := repos.App.GetByCode(created.AppCode)
	require.NoError(t, err)
	decoded := model.DecodeTeamContext(entity.TeamMode, entity.TeamContext)
	teamContext, ok := decoded.(*model.AutoTeamContext)
	require.True(t, ok)
	require.True(t, teamContext.CanAskUser)
	require.Equal(t, model.ReasoningPlannerName, teamContext.TeamLeader)
	require.Equal(t, []string{"m1", "m2"}, teamContext.LLMStrategyValue)
}

func TestEdit_MissingAppFails(t *testing.T) {
	service, _ := newTestService(t)

	err := service.Edit(&GptsApp{AppCode: "ghost", AppName: "ghost"})
	require.ErrorIs(t, err, errors.ErrAppNotFound)

	err = service.Edit(&GptsApp{AppName: "no code"})
	require.True(t, errors.IsValidation(err))
}

// ========== Delete 测试 ==========

func TestDelete_Cascades(t *testing.T) {
	service, repos := newTestService(t)

	created, err := service.Create(&GptsApp{
		AppName:  "doomed",
		TeamMode: model.TeamModeSingleAgent,
		Details:  []*GptsAppDetail{{AgentName: "A"}},
	})
	require.NoError(t, err)
	require.NoError(t, service.Collect(created.AppCode, "alice", ""))

	require.NoError(t, service.Delete(created.AppCode))

	entity, err := repos.App.GetByCode(created.AppCode)
	require.NoError(t, err)
	require.Nil(t, entity)
	details, err := repos.App.DetailsByAppCode(created.AppCode)
	require.NoError(t, err)
	require.Empty(t, details)
	collections, err := repos.Collection.List(created.AppCode, "", "")
	require.NoError(t, err)
	require.Empty(t, collections)
}

// ========== Publish 测试 ==========

func TestPublish_PurgesCollections(t *testing.T) {
	service, repos := newTestService(t)

	created, err := service.Create(&GptsApp{AppName: "collectable", TeamMode: model.TeamModeSingleAgent})
	require.NoError(t, err)
	require.NoError(t, service.Collect(created.AppCode, "alice", ""))
	require.NoError(t, service.Collect(created.AppCode, "bob", ""))

	require.NoError(t, service.Publish(created.AppCode))

	entity, err := repos.App.GetByCode(created.AppCode)
	require.NoError(t, err)
	require.Equal(t, "true", entity.Published)
	collections, err := repos.Collection.List(created.AppCode, "", "")
	require.NoError(t, err)
	require.Empty(t, collections)
}

func TestPublish_MissingAppIsNoop(t *testing.T) {
	service, _ := newTestService(t)
	require.NoError(t, service.Publish("ghost"))
	require.NoError(t, service.Unpublish("ghost"))
}

// ========== Admins 测试 ==========

func TestAdmins_RoundTrip(t *testing.T) {
	service, _ := newTestService(t)

	created, err := service.Create(&GptsApp{AppName: "managed", TeamMode: model.TeamModeSingleAgent})
	require.NoError(t, err)

	require.NoError(t, service.UpdateAdmins(created.AppCode, []string{"alice", "bob"}))
	admins, err := service.GetAdmins(created.AppCode)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, admins)
}

func TestAdmins_MissingApp(t *testing.T) {
	service, _ := newTestService(t)

	require.ErrorIs(t, service.UpdateAdmins("ghost", []string{"alice"}), errors.ErrAppNotFound)
	_, err := service.GetAdmins("ghost")
	require.ErrorIs(t, err, errors.ErrAppNotFound)
}

// ========== BindAutoTeamApps 测试 ==========

func TestBindAutoTeamApps_ConvertsSingleAgentApp(t *testing.T) {
	service, repos := newTestService(t)

	team, err := service.Create(&GptsApp{AppName: "the team", TeamMode: model.TeamModeAutoPlan})
	require.NoError(t, err)

	strategyValue := "x,y"
	bound, err := service.Create(&GptsApp{
		AppName:     "worker app",
		AppDescribe: "does work",
		TeamMode:    model.TeamModeSingleAgent,
		Details: []*GptsAppDetail{
			{AgentName: "Worker", LLMStrategy: "priority", LLMStrategyValue: &strategyValue},
		},
	})
	require.NoError(t, err)

	require.NoError(t, service.BindAutoTeamApps(team.AppCode, []string{bound.AppCode}))

	details, err := repos.App.DetailsByAppCode(team.AppCode)
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.Equal(t, "worker app", details[0].AgentName, "converted agent is named after the bound app")
	require.Equal(t, "does work", details[0].AgentDescribe)
	require.NotNil(t, details[0].LLMStrategyValue)
	require.Equal(t, `["x","y"]`, *details[0].LLMStrategyValue)
}

func TestBindAutoTeamApps_PreservesExistingTeamDetails(t *testing.T) {
	service, repos := newTestService(t)

	existingValue := "a,b"
	team, err := service.Create(&GptsApp{
		AppName:  "the team",
		TeamMode: model.TeamModeAutoPlan,
		Details: []*GptsAppDetail{
			{AgentName: "Planner", LLMStrategy: "priority", LLMStrategyValue: &existingValue},
		},
	})
	require.NoError(t, err)

	boundValue := "x,y"
	bound, err := service.Create(&GptsApp{
		AppName:  "worker app",
		TeamMode: model.TeamModeSingleAgent,
		Details: []*GptsAppDetail{
			{AgentName: "Worker", LLMStrategy: "priority", LLMStrategyValue: &boundValue},
		},
	})
	require.NoError(t, err)

	require.NoError(t, service.BindAutoTeamApps(team.AppCode, []string{bound.AppCode}))

	details, err := repos.App.DetailsByAppCode(team.AppCode)
	require.NoError(t, err)
	require.Len(t, details, 2)
	byAgent := make(map[string]*model.GptsAppDetail, len(details))
	for _, detail := range details {
		byAgent[detail.AgentName] = detail
	}

	// 存量成员经过绑定后的改写保持存储形态不变
	planner := byAgent["Planner"]
	require.NotNil(t, planner)
	require.NotNil(t, planner.LLMStrategyValue)
	require.Equal(t, `["a","b"]`, *planner.LLMStrategyValue)

	worker := byAgent["worker app"]
	require.NotNil(t, worker)
	require.NotNil(t, worker.LLMStrategyValue)
	require.Equal(t, `["x","y"]`, *worker.LLMStrategyValue)
}

func TestBindAutoTeamApps_UnresolvedCodesFailWhole(t *testing.T) {
	service, repos := newTestService(t)

	team, err := service.Create(&GptsApp{AppName: "the team", TeamMode: model.TeamModeAutoPlan})
	require.NoError(t, err)
	bound, err := service.Create(&GptsApp{
		AppName:  "worker app",
		TeamMode: model.TeamModeSingleAgent,
		Details:  []*GptsAppDetail{{AgentName: "Worker"}},
	})
	require.NoError(t, err)

	err = service.BindAutoTeamApps(team.AppCode, []string{bound.AppCode, "ghost1", "ghost2"})
	require.True(t, errors.IsValidation(err))
	require.True(t, strings.Contains(err.Error(), "ghost1,ghost2"))

	// 整体失败，不做部分追加
	details, err := repos.App.DetailsByAppCode(team.AppCode)
	require.NoError(t, err)
	require.Empty(t, details)
}

func TestBindAutoTeamApps_TargetMustBeAutoPlan(t *testing.T) {
	service, _ := newTestService(t)

	single, err := service.Create(&GptsApp{AppName: "solo", TeamMode: model.TeamModeSingleAgent})
	require.NoError(t, err)

	err = service.BindAutoTeamApps(single.AppCode, nil)
	require.True(t, errors.IsValidation(err))

	err = service.BindAutoTeamApps("ghost", nil)
	require.True(t, errors.IsValidation(err))
}

// ========== 收藏测试 ==========

func TestCollect_DuplicateRejected(t *testing.T) {
	service, _ := newTestService(t)

	created, err := service.Create(&GptsApp{AppName: "fav", TeamMode: model.TeamModeSingleAgent})
	require.NoError(t, err)

	require.NoError(t, service.Collect(created.AppCode, "alice", ""))
	require.ErrorIs(t, service.Collect(created.AppCode, "alice", ""), errors.ErrAppCollected)

	// 不同用户可重复收藏同一应用
	require.NoError(t, service.Collect(created.AppCode, "bob", ""))
}

func TestUncollect_MissingIsNoop(t *testing.T) {
	service, _ := newTestService(t)
	require.NoError(t, service.Uncollect("ghost", "alice", ""))
}

// ========== RecordAppUse 测试 ==========

func TestRecordAppUse_UpdatesRecentAndHotness(t *testing.T) {
	db := testutil.NewTestDB(t)
	repos := repository.NewRepositories(db)
	usage := hotness.New(nil)
	service := NewService(repos, usage, "zh")
	ctx := context.Background()

	service.RecordAppUse(ctx, "alice", "", "app1")
	service.RecordAppUse(ctx, "alice", "", "app1")
	service.RecordAppUse(ctx, "alice", "", "app2")

	recents, err := repos.Recent.Query("alice", "", "")
	require.NoError(t, err)
	require.Len(t, recents, 2)

	entries, err := usage.HotAppMap(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "app1", entries[0].AppCode)
	require.Equal(t, 2, entries[0].Sz)
}

// ========== 编码辅助测试 ==========

func TestEncodeStrategyValue(t *testing.T) {
	value := "a,b"
	encoded, err := encodeStrategyValue(&value)
	if err != nil {
		t.Fatalf("encodeStrategyValue() error: %v", err)
	}
	if *encoded != `["a","b"]` {
		t.Errorf("encodeStrategyValue() = %q", *encoded)
	}

	encoded, err = encodeStrategyValue(nil)
	if err != nil || encoded != nil {
		t.Errorf("encodeStrategyValue(nil) = %v, %v, want nil, nil", encoded, err)
	}
}

func TestMarshalParamNeed_CreateEditAsymmetry(t *testing.T) {
	// 创建路径空值存 NULL，编辑路径无条件序列化
	encoded, err := marshalParamNeed(nil, false)
	if err != nil || encoded != nil {
		t.Errorf("create path nil = %v, %v, want nil, nil", encoded, err)
	}

	encoded, err = marshalParamNeed(nil, true)
	if err != nil {
		t.Fatalf("marshalParamNeed() error: %v", err)
	}
	if encoded == nil || *encoded != "null" {
		t.Errorf("edit path nil = %v, want \"null\"", encoded)
	}
}

func TestLoadApp_MissingReturnsNil(t *testing.T) {
	service, _ := newTestService(t)

	app, err := service.loadApp("ghost", false)
	if err != nil {
		t.Fatalf("loadApp() error: %v", err)
	}
	if app != nil {
		t.Errorf("loadApp(ghost) = %v, want nil", app)
	}

	app, err = service.loadApp("", false)
	if err != nil || app != nil {
		t.Errorf("loadApp(empty) = %v, %v, want nil, nil", app, err)
	}
}
