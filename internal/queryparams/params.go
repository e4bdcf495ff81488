// Package queryparams implements per-request query parameters: the
// fetch/row/window knobs merged from a request URI, a
// datasource's own defaults, and the framework defaults, in that priority
// order.
package queryparams

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// Params holds the per-request knobs. Zero value is NOT a
// valid Params; use Defaults() as the base of any merge chain.
type Params struct {
	FetchSize            int
	MaxRows              int
	Offset               int
	Position             int
	NullAsDefault        bool
	Debug                bool
	ShowDatasourceColumn bool
	ShowCustomColumns    bool
}

// Defaults returns the framework's base parameters, the lowest-priority
// layer in the merge chain (framework < datasource < URI).
func Defaults() Params {
	return Params{
		FetchSize: 1000,
		MaxRows:   0,
		Offset:    0,
		Position:  0,
	}
}

// jsonParams mirrors the subset of Params a datasource config may override;
// fields are pointers so "absent" is distinguishable from "explicitly zero".
type jsonParams struct {
	FetchSize            *int  `json:"fetch_size"`
	MaxRows              *int  `json:"max_rows"`
	Offset               *int  `json:"offset"`
	Position             *int  `json:"position"`
	NullAsDefault        *bool `json:"null_as_default"`
	Debug                *bool `json:"debug"`
	ShowDatasourceColumn *bool `json:"show_datasource_column"`
	ShowCustomColumns    *bool `json:"show_custom_columns"`
}

// MergeFrom overlays other onto p, per field, and returns the result. other
// is treated as a full Params, so every non-zero-valued field in other wins;
// callers needing "explicit overrides default" semantics for an optional
// layer should use MergeFromJSON instead, which only overlays fields present
// in the source JSON.
func (p Params) MergeFrom(other Params) Params {
	out := p
	if other.FetchSize != 0 {
		out.FetchSize = other.FetchSize
	}
	if other.MaxRows != 0 {
		out.MaxRows = other.MaxRows
	}
	if other.Offset != 0 {
		out.Offset = other.Offset
	}
	if other.Position != 0 {
		out.Position = other.Position
	}
	out.NullAsDefault = out.NullAsDefault || other.NullAsDefault
	out.Debug = out.Debug || other.Debug
	out.ShowDatasourceColumn = out.ShowDatasourceColumn || other.ShowDatasourceColumn
	out.ShowCustomColumns = out.ShowCustomColumns || other.ShowCustomColumns
	return out
}

// MergeFromJSON overlays a datasource config's raw query-parameters JSON
// object onto p, one field at a time, so absent keys never clobber p.
func (p Params) MergeFromJSON(raw []byte) (Params, error) {
	if len(raw) == 0 {
		return p, nil
	}
	var jp jsonParams
	if err := json.Unmarshal(raw, &jp); err != nil {
		return Params{}, err
	}
	out := p
	if jp.FetchSize != nil {
		out.FetchSize = *jp.FetchSize
	}
	if jp.MaxRows != nil {
		out.MaxRows = *jp.MaxRows
	}
	if jp.Offset != nil {
		out.Offset = *jp.Offset
	}
	if jp.Position != nil {
		out.Position = *jp.Position
	}
	if jp.NullAsDefault != nil {
		out.NullAsDefault = *jp.NullAsDefault
	}
	if jp.Debug != nil {
		out.Debug = *jp.Debug
	}
	if jp.ShowDatasourceColumn != nil {
		out.ShowDatasourceColumn = *jp.ShowDatasourceColumn
	}
	if jp.ShowCustomColumns != nil {
		out.ShowCustomColumns = *jp.ShowCustomColumns
	}
	return out, nil
}

// recognizedURIKeys are the URI query-string keys this bridge recognizes.
var recognizedURIKeys = []string{"fetch_size", "max_rows", "null_as_default", "offset", "position", "debug"}

// MergeFromURI overlays query-string parameters parsed from a raw URI (or a
// bare query string) onto p; this is the highest-priority layer.
func (p Params) MergeFromURI(rawURI string) (Params, error) {
	var values url.Values
	if u, err := url.Parse(rawURI); err == nil && u.RawQuery != "" {
		values = u.Query()
	} else {
		values, err = url.ParseQuery(rawURI)
		if err != nil {
			return Params{}, err
		}
	}

	out := p
	for _, key := range recognizedURIKeys {
		v := values.Get(key)
		if v == "" {
			continue
		}
		switch key {
		case "fetch_size":
			if n, err := strconv.Atoi(v); err == nil {
				out.FetchSize = n
			}
		case "max_rows":
			if n, err := strconv.Atoi(v); err == nil {
				out.MaxRows = n
			}
		case "offset":
			if n, err := strconv.Atoi(v); err == nil {
				out.Offset = n
			}
		case "position":
			if n, err := strconv.Atoi(v); err == nil {
				out.Position = n
			}
		case "null_as_default":
			out.NullAsDefault = parseBool(v)
		case "debug":
			out.Debug = parseBool(v)
		}
	}
	return out, nil
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

// ToQueryString renders p as a query string in the canonical key order used
// by the debug echo response.
func (p Params) ToQueryString() string {
	// url.Values.Encode sorts keys alphabetically; the debug scenario wants
	// this exact order, so build it by hand instead.
	return "fetch_size=" + strconv.Itoa(p.FetchSize) +
		"&max_rows=" + strconv.Itoa(p.MaxRows) +
		"&offset=" + strconv.Itoa(p.Offset) +
		"&position=" + strconv.Itoa(p.Position) +
		"&null_as_default=" + strconv.FormatBool(p.NullAsDefault)
}
