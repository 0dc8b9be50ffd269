package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/derisk-ai/appserve/internal/model"
	"github.com/derisk-ai/appserve/internal/testutil"
)

// ========== InitNativeApps 测试 ==========

func TestInitNativeApps_Bootstraps(t *testing.T) {
	service, repos := newTestService(t)

	service.InitNativeApps("")

	apps, err := repos.App.ListAll()
	require.NoError(t, err)
	require.Len(t, apps, 6)

	seen := make(map[string]bool)
	for _, app := range apps {
		require.Equal(t, model.TeamModeNativeApp, app.TeamMode)
		require.Equal(t, "true", app.Published)
		require.True(t, model.IsNativeScene(app.AppCode))
		seen[app.AppCode] = true
	}
	require.Len(t, seen, 6)
}

func TestInitNativeApps_Rerunnable(t *testing.T) {
	service, repos := newTestService(t)

	// 重复初始化删旧重建，每个场景仍然只有一行
	service.InitNativeApps("")
	service.InitNativeApps("")

	apps, err := repos.App.ListAll()
	require.NoError(t, err)
	require.Len(t, apps, 6)
}

func TestRemoveNativeApp_OnlyTouchesNativeMode(t *testing.T) {
	service, repos := newTestService(t)
	require.NoError(t, repos.App.CreateWithDetails(testutil.AppFixture(model.SceneChatNormal, func(a *model.GptsApp) {
		a.TeamMode = model.TeamModeSingleAgent
	}), nil))

	require.NoError(t, service.RemoveNativeApp(model.SceneChatNormal))

	entity, err := repos.App.GetByCode(model.SceneChatNormal)
	require.NoError(t, err)
	require.NotNil(t, entity, "non-native app with a scene code survives")
}

// ========== NativeAppParams 测试 ==========

func TestNativeAppParams_Order(t *testing.T) {
	params := NativeAppParams()

	wantOrder := []string{
		model.SceneChatExcel,
		model.SceneChatWithDBQA,
		model.SceneChatWithDBExecute,
		model.SceneChatKnowledge,
		model.SceneChatDashboard,
		model.SceneChatNormal,
	}
	require.Len(t, params, len(wantOrder))
	for i, want := range wantOrder {
		require.Equal(t, want, params[i].ChatScene)
	}
}

func TestNativeAppParams_ResourceBinding(t *testing.T) {
	byScene := make(map[string]NativeAppParam)
	for _, param := range NativeAppParams() {
		byScene[param.ChatScene] = param
	}

	knowledge := byScene[model.SceneChatKnowledge]
	require.Len(t, knowledge.ParamNeed, 4)
	require.Equal(t, model.ParamTypeResource, knowledge.ParamNeed[0].Type)
	require.NotNil(t, knowledge.ParamNeed[0].Value)
	require.Equal(t, model.ResourceTypeKnowledge, *knowledge.ParamNeed[0].Value)

	excel := byScene[model.SceneChatExcel]
	require.Equal(t, model.ResourceTypeExcelFile, *excel.ParamNeed[0].Value)

	// 普通对话没有资源参数
	normal := byScene[model.SceneChatNormal]
	require.Len(t, normal.ParamNeed, 3)
	for _, param := range normal.ParamNeed {
		require.NotEqual(t, model.ParamTypeResource, param.Type)
	}
}

// ========== AdaptNativeAppModel 测试 ==========

func TestAdaptNativeAppModel_BindValueRewrite(t *testing.T) {
	service, _ := newTestService(t)
	_, err := service.Create(&GptsApp{
		AppCode:  "my-db-app",
		AppName:  "My DB App",
		TeamMode: model.TeamModeNativeApp,
		TeamContext: &model.NativeTeamContext{
			ChatScene: model.SceneChatWithDBQA,
			SceneName: "Chat DB",
		},
		ParamNeed: []model.AppParamNeed{
			{Type: model.ParamTypeResource, Value: testutil.StrPtr(model.ResourceTypeDB), BindValue: "orders_db"},
			{Type: model.ParamTypeModel},
		},
	})
	require.NoError(t, err)

	dialogue := service.AdaptNativeAppModel(&Dialogue{
		ChatMode:    model.SceneChatNormal,
		AppCode:     "my-db-app",
		SelectParam: "whatever",
	})

	require.Equal(t, "orders_db", dialogue.SelectParam)
	require.Equal(t, model.SceneChatWithDBQA, dialogue.ChatMode)
}

func TestAdaptNativeAppModel_KnowledgeNameResolution(t *testing.T) {
	service, repos := newTestService(t)
	service.InitNativeApps("")
	require.NoError(t, repos.Knowledge.Create(testutil.KnowledgeSpaceFixture("kb_1", "product docs")))

	dialogue := service.AdaptNativeAppModel(&Dialogue{
		ChatMode:    model.SceneChatKnowledge,
		AppCode:     model.SceneChatKnowledge,
		SelectParam: "product docs",
	})

	require.Equal(t, "product docs", dialogue.SelectParam)
	require.Equal(t, model.SceneChatKnowledge, dialogue.ChatMode)
}

func TestAdaptNativeAppModel_NumericSelectParamSkipsResolution(t *testing.T) {
	service, _ := newTestService(t)
	service.InitNativeApps("")

	dialogue := service.AdaptNativeAppModel(&Dialogue{
		ChatMode:    model.SceneChatKnowledge,
		AppCode:     model.SceneChatKnowledge,
		SelectParam: "42",
	})

	require.Equal(t, "42", dialogue.SelectParam)
}

func TestAdaptNativeAppModel_NonNativeSceneUntouched(t *testing.T) {
	service, _ := newTestService(t)

	dialogue := &Dialogue{ChatMode: "chat_agent", AppCode: "anything", SelectParam: "x"}
	got := service.AdaptNativeAppModel(dialogue)

	require.Equal(t, dialogue, got)
	require.Equal(t, "x", got.SelectParam)
}

func TestAdaptNativeAppModel_MissingAppSwallowed(t *testing.T) {
	service, _ := newTestService(t)

	dialogue := service.AdaptNativeAppModel(&Dialogue{
		ChatMode: model.SceneChatNormal,
		AppCode:  "ghost",
	})

	require.Equal(t, "ghost", dialogue.AppCode)
	require.Equal(t, model.SceneChatNormal, dialogue.ChatMode)
}

// ========== isNumeric 测试 ==========

func TestIsNumeric(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"42", true},
		{"-7", true},
		{"", false},
		{"kb name", false},
		{"4.2", false},
	}
	for _, tt := range tests {
		if got := isNumeric(tt.value); got != tt.want {
			t.Errorf("isNumeric(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
