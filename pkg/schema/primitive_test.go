package schema

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePrimitives_AllVariants(t *testing.T) {
	data := []byte(`[
		{"shape":"rectangle","x":10,"y":20,"label":"Start"},
		{"shape":"diamond","x":10,"y":200,"w":160,"h":100,"label":"Decision"},
		{"shape":"text","x":0,"y":0,"text":"Title"},
		{"shape":"arrow","fromLabel":"Start","toLabel":"Decision"},
		{"shape":"arrow","start":{"x":1,"y":2},"end":{"x":3,"y":4}},
		{"shape":"line","x":0,"y":0,"points":[{"x":0,"y":0},{"x":10,"y":10}]},
		{"shape":"polygon","x":5,"y":5,"points":[{"x":0,"y":0},{"x":10,"y":0},{"x":5,"y":8}]}
	]`)

	ps, err := DecodePrimitives(data)
	require.NoError(t, err)
	require.Len(t, ps, 7)

	rect, ok := ps[0].(*GeoShape)
	require.True(t, ok)
	assert.Equal(t, ShapeRectangle, rect.Kind())
	assert.Equal(t, DefaultGeoWidth, rect.W, "absent width gets the default")
	assert.Equal(t, DefaultGeoHeight, rect.H)

	diamond := ps[1].(*GeoShape)
	assert.Equal(t, 160.0, diamond.W)

	assert.Equal(t, ShapeText, ps[2].Kind())

	labelled := ps[3].(*Arrow)
	assert.True(t, labelled.HasLabels())
	assert.False(t, labelled.HasPoints())

	explicit := ps[4].(*Arrow)
	assert.True(t, explicit.HasPoints())
	assert.Equal(t, Point{1, 2}, explicit.Origin())

	assert.Equal(t, ShapeLine, ps[5].Kind())
	assert.Equal(t, ShapePolygon, ps[6].Kind())
}

func TestDecodePrimitive_UnknownShape(t *testing.T) {
	_, err := DecodePrimitive([]byte(`{"shape":"hologram","x":1,"y":1}`))
	require.Error(t, err)

	se, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrCodeSchemaViolation, se.Code)
	assert.Contains(t, se.Message, "hologram")
}

func TestDecodePrimitive_MissingShape(t *testing.T) {
	_, err := DecodePrimitive([]byte(`{"x":1}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape")
}

func TestDecodePrimitives_IndexInMessage(t *testing.T) {
	_, err := DecodePrimitives([]byte(`[{"shape":"rectangle","x":0,"y":0},{"shape":"arrow"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "items[1]")
}

func TestArrow_Validate_NeedsPointsOrLabels(t *testing.T) {
	assert.Error(t, (&Arrow{}).Validate())
	assert.Error(t, (&Arrow{FromLabel: "A"}).Validate(), "a single label is not enough")
	assert.NoError(t, (&Arrow{FromLabel: "A", ToLabel: "B"}).Validate())
	assert.NoError(t, (&Arrow{Start: &Point{}, End: &Point{X: 1}}).Validate())
}

func TestGeoShape_Validate_RejectsNonFinite(t *testing.T) {
	assert.Error(t, (&GeoShape{Shape: ShapeRectangle, W: -1, H: 10}).Validate())
	assert.Error(t, (&GeoShape{Shape: ShapeRectangle, W: math.Inf(1), H: 10}).Validate())
	assert.Error(t, (&GeoShape{Shape: ShapeRectangle, X: math.NaN()}).Validate())
	assert.Error(t, (&GeoShape{Shape: "blob"}).Validate())
	assert.NoError(t, (&GeoShape{Shape: ShapeEllipse, W: 10, H: 10}).Validate())
}

func TestPrimitive_MarshalRoundTripKeepsDiscriminator(t *testing.T) {
	in := Primitives{
		&GeoShape{Shape: ShapeEllipse, X: 1, Y: 2, W: 3, H: 4, Label: "E"},
		&Text{X: 1, Y: 1, Text: "hi"},
		&Arrow{FromLabel: "E", ToLabel: "F"},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"shape":"ellipse"`)
	assert.Contains(t, string(data), `"shape":"text"`)
	assert.Contains(t, string(data), `"shape":"arrow"`)

	var out Primitives
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 3)
	assert.Equal(t, in[0], out[0])
	assert.Equal(t, in[1], out[1])
}

func TestParseDiagramType(t *testing.T) {
	assert.Equal(t, DiagramFreeform, ParseDiagramType("freeform"))
	assert.Equal(t, DiagramFreeform, ParseDiagramType(" FreeForm "))
	assert.Equal(t, DiagramStructured, ParseDiagramType("structured"))
	assert.Equal(t, DiagramStructured, ParseDiagramType("flowchart"))
	assert.Equal(t, DiagramStructured, ParseDiagramType(""))
}
