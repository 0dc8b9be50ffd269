// Package hotness 提供热度聚合单元测试
package hotness

import (
	"context"
	"testing"
)

// ========== 内存计数测试 ==========

func TestRecordUse_MemoryFallback(t *testing.T) {
	service := New(nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := service.RecordUse(ctx, "app1"); err != nil {
			t.Fatalf("RecordUse() error: %v", err)
		}
	}
	if err := service.RecordUse(ctx, "app2"); err != nil {
		t.Fatalf("RecordUse() error: %v", err)
	}

	entries, err := service.HotAppMap(ctx, 0, 10)
	if err != nil {
		t.Fatalf("HotAppMap() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries len = %d, want 2", len(entries))
	}
	if entries[0].AppCode != "app1" || entries[0].Sz != 3 {
		t.Errorf("entries[0] = %+v, want app1/3", entries[0])
	}
	if entries[1].AppCode != "app2" || entries[1].Sz != 1 {
		t.Errorf("entries[1] = %+v, want app2/1", entries[1])
	}
}

func TestRecordUse_EmptyCodeIgnored(t *testing.T) {
	service := New(nil)
	ctx := context.Background()

	if err := service.RecordUse(ctx, ""); err != nil {
		t.Fatalf("RecordUse() error: %v", err)
	}
	entries, err := service.HotAppMap(ctx, 0, 10)
	if err != nil {
		t.Fatalf("HotAppMap() error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %v, want empty", entries)
	}
}

// ========== 分页测试 ==========

func TestHotAppMap_Paging(t *testing.T) {
	service := New(nil)
	ctx := context.Background()

	// a 3 次，b 2 次，c 1 次
	codes := []string{"a", "a", "a", "b", "b", "c"}
	for _, code := range codes {
		if err := service.RecordUse(ctx, code); err != nil {
			t.Fatalf("RecordUse() error: %v", err)
		}
	}

	page0, err := service.HotAppMap(ctx, 0, 2)
	if err != nil {
		t.Fatalf("HotAppMap() error: %v", err)
	}
	if len(page0) != 2 || page0[0].AppCode != "a" || page0[1].AppCode != "b" {
		t.Errorf("page0 = %+v", page0)
	}

	page1, err := service.HotAppMap(ctx, 1, 2)
	if err != nil {
		t.Fatalf("HotAppMap() error: %v", err)
	}
	if len(page1) != 1 || page1[0].AppCode != "c" {
		t.Errorf("page1 = %+v", page1)
	}

	page2, err := service.HotAppMap(ctx, 2, 2)
	if err != nil {
		t.Fatalf("HotAppMap() error: %v", err)
	}
	if len(page2) != 0 {
		t.Errorf("page2 = %+v, want empty", page2)
	}
}

func TestHotAppMap_TieBrokenByCode(t *testing.T) {
	service := New(nil)
	ctx := context.Background()

	_ = service.RecordUse(ctx, "zeta")
	_ = service.RecordUse(ctx, "alpha")

	entries, err := service.HotAppMap(ctx, 0, 10)
	if err != nil {
		t.Fatalf("HotAppMap() error: %v", err)
	}
	if entries[0].AppCode != "alpha" || entries[1].AppCode != "zeta" {
		t.Errorf("tie order = %+v, want alpha before zeta", entries)
	}
}
