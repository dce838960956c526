// Package world implements the World Structure Agent (spec §4.10, parent
// voting) and the Hierarchy Consolidator & Reviewer (spec §4.11).
package world

import (
	"github.com/inkforge/atlasforge/internal/model"
	"github.com/inkforge/atlasforge/internal/suffixtier"
)

// Vote weights (spec §4.10's vote sources and weights table).
const (
	weightExplicitParent       = 1
	weightContainsHighConf     = 2
	weightContainsMediumOrLow  = 1
	weightPrimarySettingOrphan = 2
)

// RecordVotesFromFact casts every vote spec §4.10 describes for one chapter
// fact into world's ParentVotes accumulator. Safe to call incrementally,
// live, as each chapter is analyzed (spec §4.7 protocol step 2d: "Feed the
// fact into the World Structure Agent's live vote accumulator").
func RecordVotesFromFact(world *model.WorldStructure, fact *model.ChapterFact) {
	if world == nil || fact == nil {
		return
	}

	for _, loc := range fact.Locations {
		if loc.Parent != nil && *loc.Parent != "" && *loc.Parent != loc.Name {
			world.RecordVote(loc.Name, *loc.Parent, weightExplicitParent)
		}
	}

	for _, rel := range fact.SpatialRelationships {
		if rel.RelationType != model.RelationContains {
			continue
		}
		weight := weightContainsMediumOrLow
		if rel.Confidence == model.ConfidenceHigh {
			weight = weightContainsHighConf
		}
		// contains(source, target): source contains target, so target's
		// parent candidate is source.
		world.RecordVote(rel.Target, rel.Source, weight)
	}

	recordPrimarySettingVotes(world, fact)
}

// recordPrimarySettingVotes implements "Chapter primary-setting inference"
// (spec §4.10): the role=setting location with the largest geographic scale
// is the chapter's primary setting; every smaller, non-referenced/boundary
// orphan location in the chapter casts +2 for (orphan -> primary).
func recordPrimarySettingVotes(world *model.WorldStructure, fact *model.ChapterFact) {
	rank := func(name string) (int, bool) {
		r, ok := suffixtier.RankOf(name)
		return int(r), ok
	}
	primary, ok := fact.PrimarySetting(rank)
	if !ok {
		return
	}
	primaryRank, primaryKnown := suffixtier.RankOf(primary.Name)

	for _, loc := range fact.Locations {
		if loc.Name == primary.Name {
			continue
		}
		if loc.Role == model.RoleReferenced || loc.Role == model.RoleBoundary {
			continue
		}
		locRank, locKnown := suffixtier.RankOf(loc.Name)
		if primaryKnown && locKnown && locRank <= primaryRank {
			continue // not smaller in scale than the primary setting
		}
		world.RecordVote(loc.Name, primary.Name, weightPrimarySettingOrphan)
	}
}
