package values

import (
	"fmt"
	"strings"
)

var kindNames = map[string]Kind{
	"ascii":     TypeAscii,
	"bigint":    TypeBigint,
	"blob":      TypeBlob,
	"boolean":   TypeBoolean,
	"counter":   TypeCounter,
	"decimal":   TypeDecimal,
	"double":    TypeDouble,
	"float":     TypeFloat,
	"int":       TypeInt,
	"timestamp": TypeTimestamp,
	"uuid":      TypeUUID,
	"varchar":   TypeVarchar,
	"text":      TypeVarchar,
	"varint":    TypeVarint,
	"timeuuid":  TypeTimeUUID,
	"inet":      TypeInet,
	"date":      TypeDate,
	"time":      TypeTime,
	"smallint":  TypeSmallint,
	"tinyint":   TypeTinyint,
	"duration":  TypeDuration,
}

// ParseType parses a CQL type name like "int", "list<text>" or
// "map<uuid, frozen<list<int>>>". frozen<> wrappers are transparent; udt
// and custom types are not expressible as strings here.
func ParseType(s string) (ColumnType, error) {
	t, rest, err := parseType(strings.TrimSpace(s))
	if err != nil {
		return ColumnType{}, err
	}
	if rest != "" {
		return ColumnType{}, fmt.Errorf("trailing %q after type", rest)
	}
	return t, nil
}

func parseType(s string) (ColumnType, string, error) {
	name := s
	if i := strings.IndexAny(s, "<,>"); i >= 0 {
		name = s[:i]
	}
	name = strings.TrimSpace(name)
	rest := strings.TrimSpace(s[len(name):])

	switch strings.ToLower(name) {
	case "frozen":
		inner, rest, err := parseParams(rest, 1)
		if err != nil {
			return ColumnType{}, "", err
		}
		return inner[0], rest, nil
	case "list", "set":
		inner, rest, err := parseParams(rest, 1)
		if err != nil {
			return ColumnType{}, "", err
		}
		if strings.EqualFold(name, "list") {
			return List(inner[0]), rest, nil
		}
		return Set(inner[0]), rest, nil
	case "map":
		inner, rest, err := parseParams(rest, 2)
		if err != nil {
			return ColumnType{}, "", err
		}
		return Map(inner[0], inner[1]), rest, nil
	case "tuple":
		inner, rest, err := parseParams(rest, -1)
		if err != nil {
			return ColumnType{}, "", err
		}
		return Tuple(inner...), rest, nil
	}

	kind, ok := kindNames[strings.ToLower(name)]
	if !ok {
		return ColumnType{}, "", fmt.Errorf("unknown type %q", name)
	}
	return ColumnType{Kind: kind}, rest, nil
}

// parseParams consumes "<a, b, ...>" and returns what follows the closing
// bracket. want is the exact arity, or -1 for one-or-more.
func parseParams(s string, want int) ([]ColumnType, string, error) {
	if !strings.HasPrefix(s, "<") {
		return nil, "", fmt.Errorf("expected < at %q", s)
	}
	s = strings.TrimSpace(s[1:])
	var params []ColumnType
	for {
		t, rest, err := parseType(s)
		if err != nil {
			return nil, "", err
		}
		params = append(params, t)
		s = strings.TrimSpace(rest)
		if strings.HasPrefix(s, ",") {
			s = strings.TrimSpace(s[1:])
			continue
		}
		if strings.HasPrefix(s, ">") {
			s = strings.TrimSpace(s[1:])
			break
		}
		return nil, "", fmt.Errorf("expected , or > at %q", s)
	}
	if want >= 0 && len(params) != want {
		return nil, "", fmt.Errorf("expected %d type parameters, got %d", want, len(params))
	}
	return params, s, nil
}
