// Package validate implements the Fact Validator (spec §4.5): a sequence of
// morphological and structural filters applied to a ChapterFact before
// persistence. Rejection policy is encoded as Mangle Datalog rules over
// asserted candidate-name facts rather than as exhaustive blocklists, so new
// novels are covered without code changes (spec §4.5: "encoded as rules
// rather than exhaustive blocklists to remain robust across novels").
package validate

import (
	"context"
	"regexp"
	"strings"

	"github.com/inkforge/atlasforge/internal/logging"
	"github.com/inkforge/atlasforge/internal/mangle"
	"github.com/inkforge/atlasforge/internal/model"
	"github.com/inkforge/atlasforge/internal/segment"
	"github.com/inkforge/atlasforge/internal/suffixtier"
)

// locationRuleSchema declares the rejection rule set. Every check — including
// the demonstrative-prefix rule — is precomputed in Go from the name's
// characters and asserted as a location_flag fact; Mangle's :match_prefix
// builtin is a name-constant structural-prefix matcher, not a substring test
// over /string values, so it cannot express "name starts with 这/那/此/该/某"
// and is not used here. This keeps every rule a genuine Datalog rule
// (head :- body) over asserted facts rather than a disguised Go if-chain.
const locationRuleSchema = `
Decl candidate_location(Name) bound [/string].
Decl location_flag(Name, Flag) bound [/string, /string].
Decl rejected_location(Name) bound [/string].

rejected_location(Name) :- location_flag(Name, "single_char").
rejected_location(Name) :- location_flag(Name, "generic_tail_no_head").
rejected_location(Name) :- location_flag(Name, "descriptive_generic_tail").
rejected_location(Name) :- location_flag(Name, "furniture_exact").
rejected_location(Name) :- location_flag(Name, "char_name_room_suffix").
rejected_location(Name) :- location_flag(Name, "numeric_only").
rejected_location(Name) :- location_flag(Name, "transient_directional").
rejected_location(Name) :- location_flag(Name, "pronoun_reference").
rejected_location(Name) :- location_flag(Name, "demonstrative_prefix").
`

const personRuleSchema = `
Decl candidate_person(Name) bound [/string].
Decl person_flag(Name, Flag) bound [/string, /string].
Decl rejected_person(Name) bound [/string].

rejected_person(Name) :- person_flag(Name, "pure_title").
rejected_person(Name) :- person_flag(Name, "pure_generic_ref").
rejected_person(Name) :- person_flag(Name, "unsurnamed_single_char").
`

// genericLocativeTails are bare positional suffixes that, attached to a
// common noun with no distinguishing head, name no specific place (rule ii:
// "山上", "村外").
var genericLocativeTails = []string{"上", "外", "下", "里", "内", "中", "旁", "边", "后", "前"}

var genericLocationHeads = map[string]bool{
	"山": true, "村": true, "城": true, "林": true, "路": true,
	"河": true, "海": true, "天": true, "地": true, "屋": true, "门": true,
}

// descriptiveAdjectives + genericTails together form rule iii: "偏僻地方",
// "荒凉之地".
var descriptiveAdjectives = []string{"偏僻", "荒凉", "简陋", "破旧", "阴暗", "狭窄"}
var descriptiveGenericTails = []string{"地方", "之地", "之处", "处"}

// furnitureExact is rule iv: furniture/object exact matches that are never
// locations even when extracted as one.
var furnitureExact = map[string]bool{
	"炕桌": true, "火盆": true, "椅子": true, "桌子": true, "床榻": true, "屏风": true,
}

// roomSuffixes is rule v's tail half: "character name (>= 4 chars) + room
// suffix" ("宝玉屋内").
var roomSuffixes = []string{"屋内", "房中", "屋里", "房里", "院中", "阁中"}

// transientDirectional names a momentary spatial reference, never a place
// (part of the "13 structural checks... transient directional references").
var transientDirectional = map[string]bool{
	"一旁": true, "旁边": true, "附近": true, "远处": true, "不远处": true, "前方": true, "身后": true,
}

// pronounReference covers bare anaphoric place pronouns.
var pronounReference = map[string]bool{
	"这里": true, "那里": true, "此处": true, "那儿": true, "这儿": true,
}

// demonstrativePrefixes are leading determiners that never name a specific
// place on their own ("这座山", "那片林") — distinct from pronounReference,
// which covers the bare two-character pronoun forms exactly.
var demonstrativePrefixes = []string{"这", "那", "此", "该", "某"}

var numericOnlyRe = regexp.MustCompile(`^[0-9一二三四五六七八九十百千万零]+$`)

// pureTitles is rule "reject pure titles" (spec §4.5 person rules).
var pureTitles = map[string]bool{
	"堂主": true, "长老": true, "掌门": true, "真人": true, "宗主": true, "教主": true, "帮主": true, "门主": true,
}

// pureGenericRefs is rule "reject pure generic refs".
var pureGenericRefs = map[string]bool{
	"众人": true, "老人": true, "少年": true, "妖精": true, "那怪": true, "少女": true, "老者": true, "书生": true,
}

// rankToType maps a suffixtier rank to the default location type string
// assigned when validation must create a missing parent location (spec
// §4.5 "Auto-inferred parent type... rather than hard-coding 区域").
var rankToType = map[suffixtier.Rank]string{
	1: "界域", 2: "国度", 3: "城池", 4: "郡州", 5: "殿堂", 6: "洞穴", 7: "村镇", 8: "居所", suffixtier.MicroRank: "地标",
}

// Validator applies the Fact Validator protocol (spec §4.5) to one
// ChapterFact at a time.
type Validator struct {
	engine          *mangle.Engine
	nameCorrections map[string]string
}

// New builds a Validator with a fresh Mangle engine loaded with the location
// and person rejection-rule schemas, configured from cfg (FactLimit and
// QueryTimeout come from the workspace's compiled-in config.Config.Mangle
// block; pass mangle.DefaultConfig() to use the engine's own defaults).
func New(cfg mangle.Config) (*Validator, error) {
	engine, err := mangle.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	if err := engine.LoadSchemaString(locationRuleSchema); err != nil {
		return nil, err
	}
	if err := engine.LoadSchemaString(personRuleSchema); err != nil {
		return nil, err
	}
	return &Validator{engine: engine, nameCorrections: map[string]string{}}, nil
}

// BuildNameCorrections implements the "dictionary-driven name correction"
// step (spec §4.5): for every dictionary person starting with a Chinese
// numeral, map the unprefixed short form to the long form, unless the short
// form is itself a legitimate dictionary entity.
func BuildNameCorrections(dict *model.EntityDictionary) map[string]string {
	corrections := make(map[string]string)
	if dict == nil {
		return corrections
	}
	for name, entry := range dict.Entries {
		if entry.Type != model.EntityPerson {
			continue
		}
		runes := []rune(name)
		if len(runes) < 2 || !segment.IsChineseNumeralPrefixed(runes[0]) {
			continue
		}
		short := string(runes[1:])
		if shortEntry, ok := dict.Entries[short]; ok && shortEntry.Type == model.EntityPerson {
			continue // short form is itself legitimate; do not collapse
		}
		corrections[short] = name
	}
	return corrections
}

// SetNameCorrections installs the corrections built by BuildNameCorrections
// (spec §4.7 protocol step 1: "Build name_corrections... Pass to the Fact
// Validator").
func (v *Validator) SetNameCorrections(corrections map[string]string) {
	v.nameCorrections = corrections
}

// Validate runs the full protocol over one chapter's facts: name correction,
// rejection-rule filtering, alias-based merge, and (as the final step)
// homonym disambiguation. Records that share a name after correction are not
// deduplicated.
func (v *Validator) Validate(ctx context.Context, fact *model.ChapterFact, knownPersons []string) (*model.ChapterFact, error) {
	v.applyNameCorrections(fact)

	rejectedLocs, err := v.rejectedLocations(ctx, fact)
	if err != nil {
		return nil, err
	}
	rejectedPersons, err := v.rejectedPersons(ctx, fact, knownPersons)
	if err != nil {
		return nil, err
	}

	fact.Locations = filterLocations(fact.Locations, rejectedLocs)
	fact.Characters = filterCharacters(fact.Characters, rejectedPersons)

	mergeAliasedCharacters(fact)
	disambiguateHomonyms(fact)

	return fact, nil
}

func (v *Validator) applyNameCorrections(fact *model.ChapterFact) {
	if len(v.nameCorrections) == 0 {
		return
	}
	for i := range fact.Characters {
		if long, ok := v.nameCorrections[fact.Characters[i].Name]; ok {
			fact.Characters[i].Name = long
		}
	}
}

// rejectedLocations asserts each location name as a candidate plus its
// derived flags, then queries the Mangle engine for the rejected set.
func (v *Validator) rejectedLocations(ctx context.Context, fact *model.ChapterFact) (map[string]bool, error) {
	if len(fact.Locations) == 0 {
		return nil, nil
	}
	var asserts []mangle.Fact
	for _, loc := range fact.Locations {
		asserts = append(asserts, mangle.Fact{Predicate: "candidate_location", Args: []interface{}{loc.Name}})
		for _, flag := range locationFlags(loc.Name) {
			asserts = append(asserts, mangle.Fact{Predicate: "location_flag", Args: []interface{}{loc.Name, flag}})
		}
	}
	if err := v.engine.AddFacts(asserts); err != nil {
		return nil, err
	}
	result, err := v.engine.Query(ctx, "rejected_location(Name)")
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(result.Bindings))
	for _, b := range result.Bindings {
		if name, ok := b["Name"].(string); ok {
			out[name] = true
		}
	}
	return out, nil
}

func (v *Validator) rejectedPersons(ctx context.Context, fact *model.ChapterFact, knownPersons []string) (map[string]bool, error) {
	if len(fact.Characters) == 0 {
		return nil, nil
	}
	surnameSeen := make(map[rune]bool)
	for _, n := range knownPersons {
		runes := []rune(n)
		if len(runes) >= 2 {
			surnameSeen[runes[0]] = true
		}
	}

	var asserts []mangle.Fact
	for _, c := range fact.Characters {
		asserts = append(asserts, mangle.Fact{Predicate: "candidate_person", Args: []interface{}{c.Name}})
		for _, flag := range personFlags(c.Name, surnameSeen) {
			asserts = append(asserts, mangle.Fact{Predicate: "person_flag", Args: []interface{}{c.Name, flag}})
		}
	}
	if err := v.engine.AddFacts(asserts); err != nil {
		return nil, err
	}
	result, err := v.engine.Query(ctx, "rejected_person(Name)")
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(result.Bindings))
	for _, b := range result.Bindings {
		if name, ok := b["Name"].(string); ok {
			out[name] = true
		}
	}
	return out, nil
}

func locationFlags(name string) []string {
	runes := []rune(name)
	var flags []string

	if len(runes) == 1 {
		flags = append(flags, "single_char")
	}
	if len(runes) == 2 && genericLocationHeads[string(runes[0])] && containsAny(string(runes[1]), genericLocativeTails) {
		flags = append(flags, "generic_tail_no_head")
	}
	for _, adj := range descriptiveAdjectives {
		adjRunes := []rune(adj)
		if len(runes) > len(adjRunes) && string(runes[:len(adjRunes)]) == adj {
			rest := string(runes[len(adjRunes):])
			if containsAny(rest, descriptiveGenericTails) {
				flags = append(flags, "descriptive_generic_tail")
				break
			}
		}
	}
	if furnitureExact[name] {
		flags = append(flags, "furniture_exact")
	}
	if len(runes) >= 4 {
		for _, suffix := range roomSuffixes {
			if strings.HasSuffix(name, suffix) {
				flags = append(flags, "char_name_room_suffix")
				break
			}
		}
	}
	if numericOnlyRe.MatchString(name) {
		flags = append(flags, "numeric_only")
	}
	if transientDirectional[name] {
		flags = append(flags, "transient_directional")
	}
	if pronounReference[name] {
		flags = append(flags, "pronoun_reference")
	}
	for _, prefix := range demonstrativePrefixes {
		if strings.HasPrefix(name, prefix) {
			flags = append(flags, "demonstrative_prefix")
			break
		}
	}
	return flags
}

func containsAny(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func personFlags(name string, surnameSeen map[rune]bool) []string {
	var flags []string
	if pureTitles[name] {
		flags = append(flags, "pure_title")
	}
	if pureGenericRefs[name] {
		flags = append(flags, "pure_generic_ref")
	}
	runes := []rune(name)
	if len(runes) == 1 && !surnameSeen[runes[0]] {
		flags = append(flags, "unsurnamed_single_char")
	}
	return flags
}

func filterLocations(locs []model.Location, rejected map[string]bool) []model.Location {
	if len(rejected) == 0 {
		return locs
	}
	out := locs[:0]
	for _, l := range locs {
		if !rejected[l.Name] {
			out = append(out, l)
		}
	}
	return out
}

func filterCharacters(chars []model.Character, rejected map[string]bool) []model.Character {
	if len(rejected) == 0 {
		return chars
	}
	out := chars[:0]
	for _, c := range chars {
		if !rejected[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

// mergeAliasedCharacters implements "Alias-based character merge" (spec
// §4.5): if character A lists B in aliases/new_aliases and B also appears as
// an independent record, merge B into A.
func mergeAliasedCharacters(fact *model.ChapterFact) {
	byName := make(map[string]int, len(fact.Characters))
	for i, c := range fact.Characters {
		byName[c.Name] = i
	}

	absorbed := make(map[string]bool)
	for i := range fact.Characters {
		a := &fact.Characters[i]
		for _, alias := range append(append([]string{}, a.Aliases...), a.NewAliases...) {
			if alias == a.Name || absorbed[alias] {
				continue
			}
			j, ok := byName[alias]
			if !ok {
				continue
			}
			b := &fact.Characters[j]
			a.Aliases = unionStrings(a.Aliases, b.Aliases)
			a.NewAliases = unionStrings(a.NewAliases, b.NewAliases)
			a.LocationsInChapter = unionStrings(a.LocationsInChapter, b.LocationsInChapter)
			a.Abilities = unionStrings(a.Abilities, b.Abilities)
			a.Appearances = append(a.Appearances, b.Appearances...)
			absorbed[alias] = true
		}
	}
	if len(absorbed) == 0 {
		return
	}
	out := fact.Characters[:0]
	for _, c := range fact.Characters {
		if !absorbed[c.Name] {
			out = append(out, c)
		}
	}
	fact.Characters = out
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// homonymProneNames is the curated HOMONYM_PRONE_NAMES set (spec §4.5): short
// location names that recur across unrelated novels and must be
// disambiguated by parent whenever one is known.
var homonymProneNames = map[string]bool{
	"夹道": true, "后门": true, "角门": true, "侧门": true, "前院": true, "后院": true, "正门": true,
}

// disambiguateHomonyms is the final validate() step (spec §4.5): rename
// homonym-prone locations with a known parent to "{parent}·{name}" and
// propagate the rename through every field that references the old name.
func disambiguateHomonyms(fact *model.ChapterFact) {
	renames := make(map[string]string)
	for i := range fact.Locations {
		loc := &fact.Locations[i]
		if !homonymProneNames[loc.Name] || loc.Parent == nil || *loc.Parent == "" {
			continue
		}
		newName := *loc.Parent + "·" + loc.Name
		renames[loc.Name] = newName
		loc.Name = newName
	}
	if len(renames) == 0 {
		return
	}

	for i := range fact.Locations {
		if loc := fact.Locations[i].Parent; loc != nil {
			if renamed, ok := renames[*loc]; ok {
				fact.Locations[i].Parent = &renamed
			}
		}
	}
	for i := range fact.Characters {
		fact.Characters[i].LocationsInChapter = renameAll(fact.Characters[i].LocationsInChapter, renames)
	}
	for i := range fact.Events {
		if renamed, ok := renames[fact.Events[i].Location]; ok {
			fact.Events[i].Location = renamed
		}
	}
	for i := range fact.SpatialRelationships {
		rel := &fact.SpatialRelationships[i]
		if renamed, ok := renames[rel.Source]; ok {
			rel.Source = renamed
		}
		if renamed, ok := renames[rel.Target]; ok {
			rel.Target = renamed
		}
	}
}

func renameAll(names []string, renames map[string]string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		if renamed, ok := renames[n]; ok {
			out[i] = renamed
		} else {
			out[i] = n
		}
	}
	return out
}

// InferParentType implements "Auto-inferred parent type" (spec §4.5): when
// validation must create a missing parent location, its type is derived from
// the name's suffix-tier rank rather than a hard-coded "区域".
func InferParentType(name string) string {
	rank, ok := suffixtier.RankOf(name)
	if !ok {
		logging.ValidateDebug("no suffix-tier match for inferred parent %q, defaulting to 地点", name)
		return "地点"
	}
	if t, ok := rankToType[rank]; ok {
		return t
	}
	return "地点"
}
