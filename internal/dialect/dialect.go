// Package dialect parses the server's native query grammar into the
// normalized view.Request + Intent the core consumes. It is deliberately
// thin: no IIIF/Zoomify/DeepZoom XML descriptors are generated here
// (tile addressing reuses the same {path}/{resolution}/{tile}.{fmt}
// scheme, with one row-major tile index, across all of them), only the
// parameter grammar a single request line carries.
package dialect

import (
	"net/url"
	"strconv"
	"strings"

	"giipview/internal/apperror"
	"giipview/internal/view"
)

// Intent names the operation a parsed request asks the core to perform.
type Intent int

const (
	IntentGetTile Intent = iota
	IntentGetRegion
	IntentGetInfo
	IntentGetProfile
	IntentGetSpectrum
)

// String names an Intent for logging and metrics labels.
func (i Intent) String() string {
	switch i {
	case IntentGetTile:
		return "tile"
	case IntentGetRegion:
		return "region"
	case IntentGetInfo:
		return "info"
	case IntentGetProfile:
		return "profile"
	case IntentGetSpectrum:
		return "spectrum"
	default:
		return "unknown"
	}
}

// Request is a parsed, normalized client request.
type Request struct {
	Intent     Intent
	SourcePath string
	Format     string

	Resolution int
	TileIndex  int

	View view.Request
}

// ParseQuery fills in the transform/view parameters a request's query
// string carries (CNT=, GAM=, ROT=, CMP=, INV, SHD=, CTW=, CNV=, FLIP=,
// EQUALIZE, WID=, HEI=, RGN=, LAYERS=), returning a BadRequest apperror
// for any malformed value.
func ParseQuery(base view.Request, q url.Values) (view.Request, error) {
	r := base

	if v := q.Get("CNT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return r, apperror.New(apperror.BadRequest, "dialect.ParseQuery", err)
		}
		r.Contrast = f
	}
	if v := q.Get("GAM"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return r, apperror.New(apperror.BadRequest, "dialect.ParseQuery", err)
		}
		r.Gamma = f
	}
	if v := q.Get("ROT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return r, apperror.New(apperror.BadRequest, "dialect.ParseQuery", err)
		}
		r.Rotation = n
	}
	if v := q.Get("INV"); v != "" {
		r.Inverted = true
	}
	if v := q.Get("SHD"); v != "" {
		parts := strings.Split(v, ",")
		if len(parts) != 2 {
			return r, apperror.Wrap(apperror.BadRequest, "dialect.ParseQuery", "SHD requires h,v angles")
		}
		h, err1 := strconv.ParseFloat(parts[0], 64)
		vv, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			return r, apperror.Wrap(apperror.BadRequest, "dialect.ParseQuery", "SHD angles must be numeric")
		}
		r.Shaded = true
		r.HAngle, r.VAngle = h, vv
	}
	if v := q.Get("WID"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return r, apperror.New(apperror.BadRequest, "dialect.ParseQuery", err)
		}
		r.RequestedWidth = n
	}
	if v := q.Get("HEI"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return r, apperror.New(apperror.BadRequest, "dialect.ParseQuery", err)
		}
		r.RequestedHeight = n
	}
	if v := q.Get("RGN"); v != "" {
		parts := strings.Split(v, ",")
		if len(parts) != 4 {
			return r, apperror.Wrap(apperror.BadRequest, "dialect.ParseQuery", "RGN requires left,top,width,height")
		}
		vals := make([]float64, 4)
		for i, p := range parts {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return r, apperror.New(apperror.BadRequest, "dialect.ParseQuery", err)
			}
			vals[i] = f
		}
		r.Left, r.Top, r.Width, r.Height = vals[0], vals[1], vals[2], vals[3]
	}
	if v := q.Get("LAYERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return r, apperror.New(apperror.BadRequest, "dialect.ParseQuery", err)
		}
		r.Layers = n
	}
	if q.Get("EQUALIZE") != "" {
		r.Equalization = true
	}
	if v := q.Get("FLIP"); v != "" {
		switch strings.ToLower(v) {
		case "h", "horizontal":
			r.Flip = 1
		case "v", "vertical":
			r.Flip = 2
		default:
			return r, apperror.Wrap(apperror.BadRequest, "dialect.ParseQuery", "FLIP must be h or v")
		}
	}
	if v := q.Get("CMP"); v != "" {
		cm, err := parseColormap(v)
		if err != nil {
			return r, err
		}
		r.Colormap = cm
	}
	if v := q.Get("CTW"); v != "" {
		m, err := parseMatrix(v)
		if err != nil {
			return r, err
		}
		r.ColorTwist = m
	}
	if v := q.Get("CNV"); v != "" {
		k, err := parseFloats(v)
		if err != nil {
			return r, err
		}
		r.Convolution = k
	}

	return r, nil
}

func parseColormap(v string) (view.Colormap, error) {
	switch strings.ToUpper(v) {
	case "HOT":
		return view.ColormapHot, nil
	case "COLD":
		return view.ColormapCold, nil
	case "JET":
		return view.ColormapJet, nil
	case "RED":
		return view.ColormapRed, nil
	case "GREEN":
		return view.ColormapGreen, nil
	case "BLUE":
		return view.ColormapBlue, nil
	default:
		return view.ColormapNone, apperror.Wrap(apperror.BadRequest, "dialect.parseColormap", "unknown colormap: "+v)
	}
}

// parseFloats parses a comma-separated list of float64 values.
func parseFloats(v string) ([]float64, error) {
	parts := strings.Split(v, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, apperror.New(apperror.BadRequest, "dialect.parseFloats", err)
		}
		out[i] = f
	}
	return out, nil
}

// parseMatrix parses a semicolon-separated list of comma-separated rows
// into a color-twist matrix.
func parseMatrix(v string) ([][]float64, error) {
	rows := strings.Split(v, ";")
	out := make([][]float64, len(rows))
	for i, row := range rows {
		r, err := parseFloats(row)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// Profile is a parsed PFL request: a line (or single point, when the
// two endpoints coincide) at a given resolution.
type Profile struct {
	Resolution     int
	X1, Y1, X2, Y2 int
}

// ParsePFL parses the PFL query value "resolution:x1,y1-x2,y2". The
// "-x2,y2" suffix is optional; when absent the profile is a single point.
func ParsePFL(v string) (Profile, error) {
	var p Profile

	colon := strings.Index(v, ":")
	if colon < 0 {
		return p, apperror.Wrap(apperror.BadRequest, "dialect.ParsePFL", "PFL requires resolution:x1,y1-x2,y2")
	}
	res, err := strconv.Atoi(v[:colon])
	if err != nil {
		return p, apperror.New(apperror.BadRequest, "dialect.ParsePFL", err)
	}
	p.Resolution = res

	rest := v[colon+1:]
	dash := strings.Index(rest, "-")
	startPart, endPart := rest, ""
	if dash >= 0 {
		startPart, endPart = rest[:dash], rest[dash+1:]
	}

	x1, y1, err := parsePoint(startPart)
	if err != nil {
		return p, err
	}
	p.X1, p.Y1 = x1, y1

	if endPart == "" {
		p.X2, p.Y2 = x1, y1
		return p, nil
	}
	x2, y2, err := parsePoint(endPart)
	if err != nil {
		return p, err
	}
	p.X2, p.Y2 = x2, y2
	return p, nil
}

func parsePoint(s string) (x, y int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, apperror.Wrap(apperror.BadRequest, "dialect.parsePoint", "expected x,y")
	}
	x, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, apperror.New(apperror.BadRequest, "dialect.parsePoint", err)
	}
	y, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, apperror.New(apperror.BadRequest, "dialect.parsePoint", err)
	}
	return x, y, nil
}

// Spectrum is a parsed SPECTRA request: a single pixel within one tile.
type Spectrum struct {
	Resolution int
	TileIndex  int
	X, Y       int
}

// ParseSPECTRA parses the SPECTRA query value "resolution,tile,x,y".
func ParseSPECTRA(v string) (Spectrum, error) {
	var s Spectrum
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return s, apperror.Wrap(apperror.BadRequest, "dialect.ParseSPECTRA", "SPECTRA requires resolution,tile,x,y")
	}
	vals := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return s, apperror.New(apperror.BadRequest, "dialect.ParseSPECTRA", err)
		}
		vals[i] = n
	}
	s.Resolution, s.TileIndex, s.X, s.Y = vals[0], vals[1], vals[2], vals[3]
	return s, nil
}
