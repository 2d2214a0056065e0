package cli

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/theplant/criteria"
	"github.com/theplant/criteria/filter"
)

// Request is a search request read from YAML:
//
//	glue: OR
//	groups:
//	  - glue: AND
//	    params:
//	      - {name: age, kind: Gt, value: 30}
//	filter:
//	  name: {startsWith: b}
//	page: {limit: 10, offset: 20, sortBy: [{field: age, direction: DESC}]}
//	sort: -age,name
//
// Groups are glued with Glue, then ANDed with Filter. Sort is appended to page.sortBy.
type Request struct {
	Glue   criteria.Glue                 `yaml:"glue"`
	Groups []criteria.ComplexSearchParam `yaml:"groups"`
	Filter map[string]any                `yaml:"filter"`
	Page   *criteria.PageAttribute       `yaml:"page"`
	Sort   string                        `yaml:"sort"`
}

func LoadRequest(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read request")
	}
	return ParseRequest(data)
}

// ParseRequest decodes a request and normalizes its glues. Empty glues are AND.
func ParseRequest(data []byte) (*Request, error) {
	req := &Request{}
	if err := yaml.Unmarshal(data, req); err != nil {
		return nil, errors.Wrap(err, "decode request")
	}

	glue, err := parseGlue(req.Glue)
	if err != nil {
		return nil, errors.Wrap(err, "glue")
	}
	req.Glue = glue

	for i := range req.Groups {
		glue, err := parseGlue(req.Groups[i].InternalGlue)
		if err != nil {
			return nil, errors.Wrapf(err, "group at index %d", i)
		}
		req.Groups[i].InternalGlue = glue
	}
	return req, nil
}

func parseGlue(g criteria.Glue) (criteria.Glue, error) {
	if g == "" {
		return criteria.GlueAnd, nil
	}
	return criteria.ParseGlue(string(g))
}

// Node returns the node tree of the request, nil when it has no condition.
func (r *Request) Node() (*criteria.Node, error) {
	var nodes []*criteria.Node
	if len(r.Groups) > 0 {
		groups := make([]*criteria.Node, len(r.Groups))
		for i, g := range r.Groups {
			groups[i] = g.Node()
		}
		nodes = append(nodes, criteria.Group(r.Glue, groups...))
	}

	filterNode, err := filter.ParseMap(r.Filter)
	if err != nil {
		return nil, errors.Wrap(err, "filter")
	}
	if filterNode != nil {
		nodes = append(nodes, filterNode)
	}

	switch len(nodes) {
	case 0:
		return nil, nil
	case 1:
		return nodes[0], nil
	default:
		return criteria.Group(criteria.GlueAnd, nodes...), nil
	}
}

// PageAttribute merges page and sort, and applies the configured limits.
func (r *Request) PageAttribute(cfg *Config) (*criteria.PageAttribute, error) {
	if r.Page != nil && r.Page.Limit < 0 {
		return nil, errors.Wrapf(criteria.ErrInvalidPageAttribute, "limit must be a non-negative integer, got %d", r.Page.Limit)
	}
	page := criteria.EnsureLimits(r.Page, cfg.DefaultLimit, cfg.MaxLimit)
	if r.Sort != "" {
		orders, err := criteria.ParseSortBy(r.Sort)
		if err != nil {
			return nil, errors.Wrap(err, "sort")
		}
		page.SortBy = append(page.SortBy, orders...)
	}
	return page, nil
}
