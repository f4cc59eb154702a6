package sportingbet

import (
	"fmt"

	"github.com/superodds/oddscollector/internal/pkg/models"
	"github.com/superodds/oddscollector/internal/pkg/pipeline"
)

type competition struct {
	ID         int64
	CompoundID string
	RegionID   int64
	RegionName string
	Name       string
}

// parseCompetitions builds the competition list out of a counts
// response, cross-referencing each competition's parent region tag for
// its region name.
func parseCompetitions(counts []map[string]any) []competition {
	regions := make(map[int64]string)
	var tags []map[string]any
	for _, item := range counts {
		tag, ok := item["tag"].(map[string]any)
		if !ok {
			continue
		}
		switch tag["type"] {
		case "Region":
			if id := toInt64(tag["id"]); id != 0 {
				regions[id] = unwrapValue(tag["name"])
			}
		case "Competition":
			tags = append(tags, tag)
		}
	}

	competitions := make([]competition, 0, len(tags))
	for _, tag := range tags {
		id := toInt64(tag["id"])
		regionID := toInt64(tag["parentId"])
		if id == 0 || regionID == 0 {
			continue
		}
		compoundID, _ := tag["compoundId"].(string)
		if compoundID == "" {
			compoundID = fmt.Sprintf("%d:%d", toInt64(tag["sportId"]), id)
		}
		competitions = append(competitions, competition{
			ID:         id,
			CompoundID: compoundID,
			RegionID:   regionID,
			RegionName: regions[regionID],
			Name:       unwrapValue(tag["name"]),
		})
	}
	return competitions
}

// collectFixtures gathers every "fixtures" array found anywhere inside a
// widget payload. The widget nests its modules differently per layout,
// so the whole tree is walked instead of assuming a path.
func collectFixtures(payload map[string]any) []map[string]any {
	var fixtures []map[string]any
	var walk func(node any)
	walk = func(node any) {
		switch value := node.(type) {
		case map[string]any:
			for key, child := range value {
				if key == "fixtures" {
					if list, ok := child.([]any); ok {
						for _, item := range list {
							if fixture, ok := item.(map[string]any); ok {
								fixtures = append(fixtures, fixture)
							}
						}
						continue
					}
				}
				walk(child)
			}
		case []any:
			for _, item := range value {
				walk(item)
			}
		}
	}
	walk(payload)
	return fixtures
}

func fixtureListing(fixture map[string]any, comp competition) models.CandidateListing {
	id := toInt64(fixture["id"])
	nativeID := ""
	if id != 0 {
		nativeID = fmt.Sprintf("%d", id)
	} else if s, ok := fixture["id"].(string); ok {
		nativeID = s
	}

	fields := make(map[string]any, len(fixture)+4)
	for key, value := range fixture {
		fields[key] = value
	}
	// Competition context travels with the listing so records enriched
	// from the listing alone still know where they came from.
	fields["_regionId"] = comp.RegionID
	fields["_regionName"] = comp.RegionName
	fields["_competitionId"] = fmt.Sprintf("%d", comp.ID)
	fields["_competitionName"] = comp.Name

	startTime := pipeline.ParseEventTime(asString(fixture["startDate"]))
	return models.CandidateListing{
		NativeID:  nativeID,
		StartTime: startTime,
		Fields:    fields,
	}
}

func toInt64(v any) int64 {
	switch value := v.(type) {
	case float64:
		return int64(value)
	case int64:
		return value
	case int:
		return int64(value)
	default:
		return 0
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// unwrapValue reads the localized {"value": "..."} wrapper the CDS API
// uses for names.
func unwrapValue(v any) string {
	if wrapper, ok := v.(map[string]any); ok {
		return asString(wrapper["value"])
	}
	return asString(v)
}
