package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkbhex"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Geometry wraps a go-geom geometry so it can live in a PostGIS
// geometry(MultiPolygon,4326) column. Postgres returns geometry values as
// hex-encoded EWKB, which is what Scan expects.
type Geometry struct {
	T geom.T
}

func (g *Geometry) Scan(src interface{}) error {
	if src == nil {
		g.T = nil
		return nil
	}

	var hexStr string
	switch v := src.(type) {
	case []byte:
		hexStr = string(v)
	case string:
		hexStr = v
	default:
		return fmt.Errorf("geometry: cannot scan %T", src)
	}

	parsed, err := ewkbhex.Decode(hexStr)
	if err != nil {
		return fmt.Errorf("geometry: decode EWKB: %w", err)
	}
	g.T = parsed
	return nil
}

func (g Geometry) Value() (driver.Value, error) {
	if g.T == nil {
		return nil, nil
	}

	t := g.T
	// Inline GeoJSON arrives as a bare Polygon with no SRID; the column
	// is geometry(MultiPolygon,4326), so promote and stamp before encoding.
	if poly, ok := t.(*geom.Polygon); ok {
		mp := geom.NewMultiPolygon(poly.Layout())
		if err := mp.Push(poly); err != nil {
			return nil, fmt.Errorf("geometry: promote polygon: %w", err)
		}
		mp.SetSRID(poly.SRID())
		t = mp
	}
	if t.SRID() == 0 {
		stamped, err := geom.SetSRID(t, 4326)
		if err != nil {
			return nil, fmt.Errorf("geometry: set SRID: %w", err)
		}
		t = stamped
	}

	encoded, err := ewkbhex.Encode(t, ewkbhex.NDR)
	if err != nil {
		return nil, fmt.Errorf("geometry: encode EWKB: %w", err)
	}
	return encoded, nil
}

func (g Geometry) IsZero() bool {
	return g.T == nil
}

// MarshalJSON renders the geometry as a GeoJSON geometry object.
func (g Geometry) MarshalJSON() ([]byte, error) {
	if g.T == nil {
		return []byte("null"), nil
	}
	return geojson.Marshal(g.T)
}

// UnmarshalJSON accepts a GeoJSON geometry object.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		g.T = nil
		return nil
	}
	var parsed geom.T
	if err := geojson.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("geometry: decode GeoJSON: %w", err)
	}
	g.T = parsed
	return nil
}

// GormDataType tells AutoMigrate what column type to create.
func (Geometry) GormDataType() string {
	return "geometry(MultiPolygon,4326)"
}

var _ json.Marshaler = Geometry{}
var _ json.Unmarshaler = (*Geometry)(nil)
