package dialect

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giipview/internal/view"
)

func TestIntentStringNamesEachKnownIntent(t *testing.T) {
	cases := map[Intent]string{
		IntentGetTile:     "tile",
		IntentGetRegion:   "region",
		IntentGetInfo:     "info",
		IntentGetProfile:  "profile",
		IntentGetSpectrum: "spectrum",
	}
	for intent, want := range cases {
		assert.Equal(t, want, intent.String())
	}
}

func TestParseQueryAppliesNumericParams(t *testing.T) {
	q := url.Values{"CNT": {"1.5"}, "GAM": {"2.2"}, "ROT": {"90"}}
	r, err := ParseQuery(view.NewRequest(), q)
	require.NoError(t, err)
	assert.Equal(t, 1.5, r.Contrast)
	assert.Equal(t, 2.2, r.Gamma)
	assert.Equal(t, 90, r.Rotation)
}

func TestParseQueryRejectsMalformedNumeric(t *testing.T) {
	q := url.Values{"CNT": {"not-a-number"}}
	_, err := ParseQuery(view.NewRequest(), q)
	require.Error(t, err)
}

func TestParseQueryShadeRequiresTwoAngles(t *testing.T) {
	q := url.Values{"SHD": {"45,30"}}
	r, err := ParseQuery(view.NewRequest(), q)
	require.NoError(t, err)
	assert.True(t, r.Shaded)
	assert.Equal(t, 45.0, r.HAngle)
	assert.Equal(t, 30.0, r.VAngle)
}

func TestParseQueryShadeRejectsWrongArity(t *testing.T) {
	q := url.Values{"SHD": {"45"}}
	_, err := ParseQuery(view.NewRequest(), q)
	require.Error(t, err)
}

func TestParseQueryRegionParsesFourFields(t *testing.T) {
	q := url.Values{"RGN": {"0.1,0.2,0.5,0.5"}}
	r, err := ParseQuery(view.NewRequest(), q)
	require.NoError(t, err)
	assert.Equal(t, 0.1, r.Left)
	assert.Equal(t, 0.2, r.Top)
	assert.Equal(t, 0.5, r.Width)
	assert.Equal(t, 0.5, r.Height)
}

func TestParseQueryColormapRecognizesKnownNames(t *testing.T) {
	q := url.Values{"CMP": {"jet"}}
	r, err := ParseQuery(view.NewRequest(), q)
	require.NoError(t, err)
	assert.Equal(t, view.ColormapJet, r.Colormap)
}

func TestParseQueryColormapRejectsUnknownName(t *testing.T) {
	q := url.Values{"CMP": {"plasma"}}
	_, err := ParseQuery(view.NewRequest(), q)
	require.Error(t, err)
}

func TestParseQueryFlipAcceptsHAndV(t *testing.T) {
	q := url.Values{"FLIP": {"h"}}
	r, err := ParseQuery(view.NewRequest(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Flip)

	q = url.Values{"FLIP": {"v"}}
	r, err = ParseQuery(view.NewRequest(), q)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Flip)
}

func TestParseQueryColorTwistParsesMatrixRows(t *testing.T) {
	q := url.Values{"CTW": {"1,0,0;0,1,0"}}
	r, err := ParseQuery(view.NewRequest(), q)
	require.NoError(t, err)
	require.Len(t, r.ColorTwist, 2)
	assert.Equal(t, []float64{1, 0, 0}, r.ColorTwist[0])
	assert.Equal(t, []float64{0, 1, 0}, r.ColorTwist[1])
}

func TestParseQueryConvolutionParsesKernel(t *testing.T) {
	q := url.Values{"CNV": {"0,1,0,1,-4,1,0,1,0"}}
	r, err := ParseQuery(view.NewRequest(), q)
	require.NoError(t, err)
	assert.Len(t, r.Convolution, 9)
}

func TestParseQueryEqualizeFlagIgnoresEmptyValue(t *testing.T) {
	q := url.Values{"EQUALIZE": {""}}
	r, err := ParseQuery(view.NewRequest(), q)
	require.NoError(t, err)
	assert.False(t, r.Equalization, "an empty EQUALIZE value is treated as absent")

	q = url.Values{"EQUALIZE": {"1"}}
	r, err = ParseQuery(view.NewRequest(), q)
	require.NoError(t, err)
	assert.True(t, r.Equalization)
}

func TestParsePFLSinglePoint(t *testing.T) {
	p, err := ParsePFL("2:10,20")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Resolution)
	assert.Equal(t, 10, p.X1)
	assert.Equal(t, 20, p.Y1)
	assert.Equal(t, 10, p.X2)
	assert.Equal(t, 20, p.Y2)
}

func TestParsePFLLine(t *testing.T) {
	p, err := ParsePFL("3:0,5-100,5")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Resolution)
	assert.Equal(t, 0, p.X1)
	assert.Equal(t, 5, p.Y1)
	assert.Equal(t, 100, p.X2)
	assert.Equal(t, 5, p.Y2)
}

func TestParsePFLRejectsMissingColon(t *testing.T) {
	_, err := ParsePFL("10,20")
	require.Error(t, err)
}

func TestParsePFLRejectsMalformedPoint(t *testing.T) {
	_, err := ParsePFL("0:10")
	require.Error(t, err)
}

func TestParseSPECTRAParsesFourFields(t *testing.T) {
	s, err := ParseSPECTRA("2,5,8,9")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Resolution)
	assert.Equal(t, 5, s.TileIndex)
	assert.Equal(t, 8, s.X)
	assert.Equal(t, 9, s.Y)
}

func TestParseSPECTRARejectsWrongArity(t *testing.T) {
	_, err := ParseSPECTRA("2,5,8")
	require.Error(t, err)
}
