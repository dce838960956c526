package world

import (
	"context"
	"testing"

	"github.com/inkforge/atlasforge/internal/model"
)

func TestRebuild_StreamsCheckpointsAndReturnsDiff(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	world.UberRoot = "天下"
	world.RecordVote("藏经阁", "少林寺", 3)
	world.RecordVote("少林寺", "嵩山", 2)

	c := New(nil, false) // nil gateway: LLM steps skip gracefully
	var stages []string
	diffs, err := c.Rebuild(context.Background(), world, "Test Novel", "wuxia", nil, nil, func(cp RebuildCheckpoint) {
		stages = append(stages, cp.Stage)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stages) != 4 || stages[0] != "consolidate" || stages[3] != "done" {
		t.Errorf("expected 4 checkpoints ending in done, got %v", stages)
	}
	found := false
	for _, d := range diffs {
		if d.Child == "藏经阁" && d.NewParent == "少林寺" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected resolved edge 藏经阁 -> 少林寺 in diff, got %+v", diffs)
	}
	// Rebuild must not mutate the caller's world.
	if len(world.Hierarchy) != 0 {
		t.Errorf("expected original world.Hierarchy untouched, got %v", world.Hierarchy)
	}
}

func TestDiffHierarchies_NewAssignmentAutoSelected(t *testing.T) {
	before := model.LocationHierarchy{}
	after := model.LocationHierarchy{"客栈": "青云城"}

	diffs := diffHierarchies(before, after)
	if len(diffs) != 1 {
		t.Fatalf("expected 1 diff entry, got %d", len(diffs))
	}
	if !diffs[0].AutoSelect {
		t.Errorf("expected brand-new assignment to be auto-selected")
	}
}

func TestDiffHierarchies_RemovalNotAutoSelected(t *testing.T) {
	before := model.LocationHierarchy{"客栈": "青云城"}
	after := model.LocationHierarchy{}

	diffs := diffHierarchies(before, after)
	if len(diffs) != 1 || diffs[0].NewParent != "" {
		t.Fatalf("expected one removal diff, got %+v", diffs)
	}
	if diffs[0].AutoSelect {
		t.Errorf("removals must default to auto_select=false per spec")
	}
}

func TestDiffHierarchies_NameContainmentNotAutoSelected(t *testing.T) {
	before := model.LocationHierarchy{}
	after := model.LocationHierarchy{"青云城东门": "青云城"}

	diffs := diffHierarchies(before, after)
	if diffs[0].AutoSelect {
		t.Errorf("name-containment parent relationships must default to auto_select=false")
	}
}

func TestApply_PersistsSelectedAndPreservesLockedOverride(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	layout := model.NewMapLayout("novel-1")
	layout.Entries["客栈"] = &model.LayoutEntry{Name: "客栈", ConstraintType: model.ConstraintLocked, LockedParent: "旧城"}
	layout.Entries["酒肆"] = &model.LayoutEntry{Name: "酒肆", ConstraintType: model.ConstraintDerived, LockedParent: "旧城"}

	Apply(world, []ParentDiff{
		{Child: "客栈", NewParent: "青云城"},
		{Child: "酒肆", NewParent: "青云城"},
	}, layout)

	if world.Hierarchy["客栈"] != "青云城" || world.Hierarchy["酒肆"] != "青云城" {
		t.Fatalf("expected both hierarchy edges applied, got %v", world.Hierarchy)
	}
	if layout.Entries["客栈"].ConstraintType != model.ConstraintLocked {
		t.Errorf("expected locked override to survive apply")
	}
	if layout.Entries["酒肆"].ConstraintType == model.ConstraintDerived {
		t.Errorf("expected non-locked override to be cleared after apply")
	}
}
