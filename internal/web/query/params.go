package query

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/conduit-lang/projector/internal/fields"
	"github.com/conduit-lang/projector/internal/record"
	"github.com/conduit-lang/projector/internal/serializer"
)

// NoLinksParam disables link emission when true
const NoLinksParam = "no_links"

// paramsPattern matches query parameters like params[key]
var paramsPattern = regexp.MustCompile(`^params\[([^\]]+)\]$`)

// ParseParams collects params[key]=value query parameters. Only the first
// value of a repeated key is kept.
// Example: ?params[conditionals_off]=yes returns {"conditionals_off": "yes"}
func ParseParams(values url.Values) record.Params {
	params := record.Params{}
	for key, vals := range values {
		matches := paramsPattern.FindStringSubmatch(key)
		if len(matches) != 2 || len(vals) == 0 {
			continue
		}
		params[matches[1]] = vals[0]
	}
	return params
}

// ParseNoLinks reads the no_links flag. An empty value counts as true.
func ParseNoLinks(values url.Values) (bool, error) {
	if !values.Has(NoLinksParam) {
		return false, nil
	}
	raw := values.Get(NoLinksParam)
	if raw == "" {
		return true, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q", NoLinksParam, raw)
	}
	return v, nil
}

// Options derives root serialization options for r from base
// Example: ?fields=name,actors(first_name)&no_links=true&params[conditionals_off]=yes
func Options(r *http.Request, base serializer.Options) (serializer.Options, error) {
	values := r.URL.Query()

	sel, err := fields.FromQuery(values)
	if err != nil {
		return base, err
	}
	noLinks, err := ParseNoLinks(values)
	if err != nil {
		return base, err
	}

	opts := base
	opts.Level = 0
	opts.Fields = sel
	opts.NoLinks = base.NoLinks || noLinks
	if params := ParseParams(values); len(params) > 0 {
		opts.Params = params
	}
	return opts, nil
}
