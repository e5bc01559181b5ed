// Package geo validates action geometries and derives their surface, length
// and centroid.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var ErrInvalidGeometry = errors.New("invalid geometry")

const (
	TypePoint        = "Point"
	TypeLineString   = "LineString"
	TypePolygon      = "Polygon"
	TypeMultiPolygon = "MultiPolygon"
)

// Broad bounding box of Morocco, including the southern provinces.
var Morocco = orb.Bound{Min: orb.Point{-17.5, 20.5}, Max: orb.Point{-0.9, 36.1}}

var typeAliases = map[string]string{
	"point":        TypePoint,
	"linestring":   TypeLineString,
	"line":         TypeLineString,
	"polyline":     TypeLineString,
	"polygon":      TypePolygon,
	"multipolygon": TypeMultiPolygon,
}

// NormalizeType maps user supplied type names onto GeoJSON type names.
func NormalizeType(raw string) (string, bool) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(raw))]
	return t, ok
}

// Shape is a validated geometry with its derived measures.
type Shape struct {
	Type      string
	Geometry  orb.Geometry
	Centroid  orb.Point
	SurfaceHa *float64
	LengthKm  *float64
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidGeometry, fmt.Sprintf(format, args...))
}

// Parse reads a GeoJSON geometry (or a Feature wrapping one), validates it and
// computes its measures. expectedType may be empty.
func Parse(raw []byte, expectedType string) (*Shape, error) {
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		return nil, invalid("empty geometry")
	}
	g, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if err := Validate(g, expectedType); err != nil {
		return nil, err
	}
	return measure(g), nil
}

func decode(raw []byte) (orb.Geometry, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, invalid("not json: %v", err)
	}
	if probe.Type == "Feature" {
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, invalid("%v", err)
		}
		if f.Geometry == nil {
			return nil, invalid("feature without geometry")
		}
		return f.Geometry, nil
	}
	var gj geojson.Geometry
	if err := json.Unmarshal(raw, &gj); err != nil {
		return nil, invalid("%v", err)
	}
	g := gj.Geometry()
	if g == nil {
		return nil, invalid("missing coordinates")
	}
	return g, nil
}

// Validate checks the type, the point counts, ring closure and that every
// vertex lies in the Morocco bounding box.
func Validate(g orb.Geometry, expectedType string) error {
	if g == nil {
		return invalid("missing geometry")
	}
	typ := g.GeoJSONType()
	if _, ok := NormalizeType(typ); !ok {
		return invalid("unsupported type %s", typ)
	}
	if strings.TrimSpace(expectedType) != "" {
		want, ok := NormalizeType(expectedType)
		if !ok {
			return invalid("unsupported geometry_type %q", expectedType)
		}
		if want != typ {
			return invalid("geometry_type %s does not match %s", want, typ)
		}
	}

	switch v := g.(type) {
	case orb.Point:
		return inBounds(v)
	case orb.LineString:
		if len(v) < 2 {
			return invalid("linestring needs at least 2 points")
		}
		return allInBounds(v)
	case orb.Polygon:
		return validatePolygon(v)
	case orb.MultiPolygon:
		if len(v) == 0 {
			return invalid("empty multipolygon")
		}
		for _, p := range v {
			if err := validatePolygon(p); err != nil {
				return err
			}
		}
		return nil
	}
	return invalid("unsupported type %s", typ)
}

func validatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return invalid("polygon without rings")
	}
	for i, r := range p {
		if len(r) < 4 {
			return invalid("ring %d needs at least 4 points", i)
		}
		if !r.Closed() {
			return invalid("ring %d is not closed", i)
		}
		if err := allInBounds(r); err != nil {
			return err
		}
	}
	return nil
}

func inBounds(p orb.Point) error {
	if !Morocco.Contains(p) {
		return invalid("point %v outside Morocco", p)
	}
	return nil
}

func allInBounds[T ~[]orb.Point](pts T) error {
	for _, p := range pts {
		if err := inBounds(p); err != nil {
			return err
		}
	}
	return nil
}

func measure(g orb.Geometry) *Shape {
	s := &Shape{Type: g.GeoJSONType(), Geometry: g}
	switch v := g.(type) {
	case orb.Point:
		s.Centroid = v
	case orb.LineString:
		s.Centroid, _ = planar.CentroidArea(v)
		km := geo.Length(v) / 1000
		s.LengthKm = &km
	case orb.Polygon, orb.MultiPolygon:
		s.Centroid, _ = planar.CentroidArea(v)
		ha := math.Abs(geo.Area(v)) / 10000
		s.SurfaceHa = &ha
	}
	return s
}

// MarshalGeometry encodes a geometry back to GeoJSON.
func MarshalGeometry(g orb.Geometry) ([]byte, error) {
	return json.Marshal(geojson.NewGeometry(g))
}
