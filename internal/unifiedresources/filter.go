package unifiedresources

import (
	"fmt"
	"sort"
	"strings"

	"github.com/IGLOU-EU/go-wildcard/v2"
)

// SortBy selects an optional ordering. The default keeps projection order.
type SortBy string

const (
	SortNone   SortBy = ""
	SortName   SortBy = "name"
	SortStatus SortBy = "status"
)

// Filter narrows a unified list. The zero Filter passes everything through.
type Filter struct {
	// Search is matched case-insensitively as a substring of Name.
	Search string
	// Source keeps only one data source when set.
	Source DataSource
	// Namespaces and ExcludeNamespaces are wildcard patterns applied to
	// resources that carry a namespace; others pass untouched.
	Namespaces        []string
	ExcludeNamespaces []string
	SortBy            SortBy
}

// ParseSource accepts a data source name; "" and "all" mean no filter.
func ParseSource(value string) (DataSource, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" || v == "all" {
		return "", nil
	}
	for _, s := range AllSources {
		if string(s) == v {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown source %q (want kubernetes, proxmox, argocd or all)", value)
}

// ParseSortBy accepts "", "none", "name" or "status".
func ParseSortBy(value string) (SortBy, error) {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case "", "none":
		return SortNone, nil
	case string(SortName):
		return SortName, nil
	case string(SortStatus):
		return SortStatus, nil
	default:
		return "", fmt.Errorf("unknown sort %q (want name or status)", value)
	}
}

// Apply returns the matching resources in a new slice; the input is not
// modified.
func (f Filter) Apply(resources []Resource) []Resource {
	search := strings.ToLower(f.Search)

	out := make([]Resource, 0, len(resources))
	for _, r := range resources {
		if search != "" && !strings.Contains(strings.ToLower(r.Name), search) {
			continue
		}
		if f.Source != "" && r.Source != f.Source {
			continue
		}
		if r.Namespace != "" && !f.namespaceAllowed(r.Namespace) {
			continue
		}
		out = append(out, r)
	}

	switch f.SortBy {
	case SortName:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	case SortStatus:
		sort.SliceStable(out, func(i, j int) bool {
			return StatusSeverity(out[i].Status) < StatusSeverity(out[j].Status)
		})
	}
	return out
}

func (f Filter) namespaceAllowed(ns string) bool {
	for _, pattern := range f.ExcludeNamespaces {
		if wildcard.Match(strings.TrimSpace(pattern), ns) {
			return false
		}
	}
	if len(f.Namespaces) == 0 {
		return true
	}
	for _, pattern := range f.Namespaces {
		if wildcard.Match(strings.TrimSpace(pattern), ns) {
			return true
		}
	}
	return false
}
