package testutil

import (
	"fmt"
	"time"

	"github.com/derisk-ai/appserve/internal/model"
)

// AppFixture 构造一条应用主表记录，未指定的字段填可用默认值
func AppFixture(appCode string, mutate ...func(*model.GptsApp)) *model.GptsApp {
	app := &model.GptsApp{
		AppCode:     appCode,
		AppName:     fmt.Sprintf("app-%s", appCode),
		AppDescribe: fmt.Sprintf("test app %s", appCode),
		Language:    "zh",
		TeamMode:    model.TeamModeSingleAgent,
		TeamContext: "",
		UserCode:    "tester",
		Published:   "true",
	}
	for _, fn := range mutate {
		fn(app)
	}
	return app
}

// DetailFixture 构造一条应用成员记录
func DetailFixture(appCode, agentName string, mutate ...func(*model.GptsAppDetail)) *model.GptsAppDetail {
	detail := &model.GptsAppDetail{
		AppCode:   appCode,
		AppName:   fmt.Sprintf("app-%s", appCode),
		AgentName: agentName,
		AgentRole: agentName,
		NodeID:    fmt.Sprintf("node-%s-%s", appCode, agentName),
	}
	for _, fn := range mutate {
		fn(detail)
	}
	return detail
}

// CollectionFixture 构造一条收藏记录
func CollectionFixture(appCode, userCode string) *model.GptsAppCollection {
	return &model.GptsAppCollection{
		AppCode:  appCode,
		UserCode: userCode,
	}
}

// RecentFixture 构造一条最近使用记录
func RecentFixture(appCode, userCode string, lastAccessed time.Time) *model.UserRecentApp {
	return &model.UserRecentApp{
		AppCode:      appCode,
		UserCode:     userCode,
		LastAccessed: lastAccessed,
	}
}

// KnowledgeSpaceFixture 构造一条知识空间记录
func KnowledgeSpaceFixture(knowledgeID, name string) *model.KnowledgeSpace {
	return &model.KnowledgeSpace{
		KnowledgeID: knowledgeID,
		Name:        name,
		Desc:        fmt.Sprintf("knowledge space %s", name),
	}
}

// StrPtr 返回字符串指针
func StrPtr(v string) *string {
	return &v
}
