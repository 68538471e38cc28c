package app

import (
	"strconv"
	"strings"

	"reserve_catalog/internal/domain"
)

/********** alias registries (single source of truth) **********/

var reserveAliases = map[string][]string{
	"source_id":   {"id", "reserve_id", "reserveId", "code"},
	"name":        {"name", "title", "reserve_name", "names.en"},
	"description": {"description", "summary", "about", "description_long"},
	"region":      {"region", "location.region", "area", "province", "subject"},
	"address":     {"address", "location.address", "full_address"},
	"directions":  {"directions", "location.directions", "how_to_get"},
}

var (
	yearPaths      = []string{"year_founded", "yearFounded", "founded", "established"}
	floraPaths     = []string{"flora", "plants", "species.flora"}
	faunaPaths     = []string{"fauna", "animals", "species.fauna"}
	photoPaths     = []string{"photos", "images", "gallery"}
	latitudePaths  = []string{"latitude", "lat", "location.lat", "location.latitude", "coordinates.lat"}
	longitudePaths = []string{"longitude", "lon", "lng", "location.lon", "location.lng", "location.longitude", "coordinates.lon"}
)

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns a trimmed string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		switch t := v.(type) {
		case string:
			return strings.TrimSpace(t)
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}

func firstNonEmptyAlias(m map[string]any, key string) string {
	for _, p := range reserveAliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "43,5").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// yearFlexible accepts 1916, "1916" and dates such as "1916-01-11".
func yearFlexible(m map[string]any, paths ...string) int {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			return int(v)
		case int:
			return v
		case string:
			s := strings.TrimSpace(v)
			if len(s) > 4 {
				s = s[:4]
			}
			if n, err := strconv.Atoi(s); err == nil {
				return n
			}
		}
	}
	return 0
}

// firstSliceStrings: accept []any with either strings or {url/src/name}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		if raw, ok := lookupAny(m, k).([]any); ok {
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if s := strings.TrimSpace(t); s != "" {
						out = append(out, s)
					}
				case map[string]any:
					for _, f := range []string{"url", "src", "name"} {
						if s, ok := t[f].(string); ok && strings.TrimSpace(s) != "" {
							out = append(out, strings.TrimSpace(s))
							break
						}
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

/********** catalogue reserve mapper **********/

// mapCatalogReserve turns a loosely-typed catalogue payload into create input
// plus the list of remote photo URLs to mirror.
func mapCatalogReserve(p map[string]any) (domain.ReserveInput, []string) {
	in := domain.ReserveInput{
		Name:        firstNonEmptyAlias(p, "name"),
		Description: firstNonEmptyAlias(p, "description"),
		Region:      firstNonEmptyAlias(p, "region"),
		YearFounded: yearFlexible(p, yearPaths...),
		Flora:       firstSliceStrings(p, floraPaths...),
		Fauna:       firstSliceStrings(p, faunaPaths...),
	}
	if in.Flora == nil {
		in.Flora = []string{}
	}
	if in.Fauna == nil {
		in.Fauna = []string{}
	}

	lat := getFloatFlexible(p, latitudePaths...)
	lon := getFloatFlexible(p, longitudePaths...)
	if lat != nil && lon != nil {
		in.Location = &domain.Location{
			Latitude:   *lat,
			Longitude:  *lon,
			Address:    firstNonEmptyAlias(p, "address"),
			Directions: firstNonEmptyAlias(p, "directions"),
		}
	}
	return in, firstSliceStrings(p, photoPaths...)
}
