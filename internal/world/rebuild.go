package world

import (
	"context"
	"strings"

	"github.com/inkforge/atlasforge/internal/model"
)

// RebuildCheckpoint is one streamed progress update from Rebuild (spec
// §4.11's two-step rebuild API: "rebuild streaming progress checkpoints").
type RebuildCheckpoint struct {
	Stage string // "consolidate", "macro_skeleton", "subtree_review", "done"
}

// ParentDiff is one entry of the old_parent -> new_parent diff Rebuild
// returns. AutoSelect mirrors the server's default recommendation; the
// caller (orchestrator/CLI) may override it per entry before calling Apply.
type ParentDiff struct {
	Child      string
	OldParent  string
	NewParent  string
	AutoSelect bool
}

// Rebuild runs the full consolidation pipeline (Consolidate, MacroSkeleton,
// SubtreeReview) against a copy of world's hierarchy, streaming checkpoints
// to progress, and returns the diff against the original hierarchy without
// mutating world. Apply persists a caller-selected subset of the diff.
func (c *Consolidator) Rebuild(ctx context.Context, world *model.WorldStructure, title, genre string, synonyms, llmHints map[string]string, progress func(RebuildCheckpoint)) ([]ParentDiff, error) {
	if progress == nil {
		progress = func(RebuildCheckpoint) {}
	}

	before := make(model.LocationHierarchy, len(world.Hierarchy))
	for child, parent := range world.Hierarchy {
		before[child] = parent
	}

	working := cloneWorldStructure(world)

	progress(RebuildCheckpoint{Stage: "consolidate"})
	c.Consolidate(working, synonyms, llmHints)

	progress(RebuildCheckpoint{Stage: "macro_skeleton"})
	if err := c.MacroSkeleton(ctx, working, title, genre); err != nil {
		return nil, err
	}
	// MacroSkeleton only injects votes; re-resolve so the new votes take
	// effect before the diff is computed.
	ResolveParents(working)

	progress(RebuildCheckpoint{Stage: "subtree_review"})
	if err := c.SubtreeReview(ctx, working); err != nil {
		return nil, err
	}
	ResolveParents(working)

	progress(RebuildCheckpoint{Stage: "done"})

	diff := diffHierarchies(before, working.Hierarchy)
	return diff, nil
}

func cloneWorldStructure(world *model.WorldStructure) *model.WorldStructure {
	clone := model.NewWorldStructure(world.NovelID, world.GeoType)
	clone.UberRoot = world.UberRoot
	for child, parent := range world.Hierarchy {
		clone.Hierarchy[child] = parent
	}
	for child, votes := range world.ParentVotes {
		clone.ParentVotes[child] = make(map[string]int, len(votes))
		for parent, weight := range votes {
			clone.ParentVotes[child][parent] = weight
		}
	}
	for name, tier := range world.LocationTiers {
		clone.LocationTiers[name] = tier
	}
	return clone
}

// autoSelect implements spec §4.11's default rule: "off for removals, off
// for name-containment relationships, off for non-location parents, on
// otherwise."
func autoSelect(child, oldParent, newParent string, knownLocations map[string]bool) bool {
	if newParent == "" {
		return false // removal
	}
	if strings.Contains(child, newParent) || strings.Contains(newParent, child) {
		return false // name-containment relationship
	}
	if !knownLocations[newParent] {
		return false // non-location parent
	}
	return true
}

func diffHierarchies(before, after model.LocationHierarchy) []ParentDiff {
	var diffs []ParentDiff
	seen := make(map[string]bool)
	known := make(map[string]bool, len(after))
	for child, parent := range after {
		known[child] = true
		known[parent] = true
	}

	for child, newParent := range after {
		seen[child] = true
		oldParent := before[child]
		if oldParent == newParent {
			continue
		}
		diffs = append(diffs, ParentDiff{
			Child:      child,
			OldParent:  oldParent,
			NewParent:  newParent,
			AutoSelect: autoSelect(child, oldParent, newParent, known),
		})
	}
	for child, oldParent := range before {
		if seen[child] {
			continue
		}
		diffs = append(diffs, ParentDiff{Child: child, OldParent: oldParent, NewParent: "", AutoSelect: false})
	}
	return diffs
}

// Apply persists a caller-selected subset of a Rebuild diff into world, and
// clears the map layout's user overrides for affected locations except
// entries locked by the user (spec §4.11: "apply persisting only the
// user-selected entries and clearing map_user_overrides ... except
// constraint_type = 'locked', which survives").
func Apply(world *model.WorldStructure, selected []ParentDiff, layout *model.MapLayout) {
	for _, d := range selected {
		if d.NewParent == "" {
			delete(world.Hierarchy, d.Child)
			continue
		}
		world.Hierarchy[d.Child] = d.NewParent

		if layout == nil {
			continue
		}
		if entry, ok := layout.Entries[d.Child]; ok && entry.ConstraintType != model.ConstraintLocked {
			entry.ConstraintType = model.ConstraintNone
			entry.LockedParent = ""
		}
	}
}
