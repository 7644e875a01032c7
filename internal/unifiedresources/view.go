package unifiedresources

// SourceError reports a failed collection next to whatever data is still
// shown for it.
type SourceError struct {
	Collection string `json:"collection"`
	Message    string `json:"message"`
}

// View is the unified list plus its aggregate readiness.
type View struct {
	Resources []Resource    `json:"resources"`
	IsLoading bool          `json:"isLoading"`
	Errors    []SourceError `json:"errors,omitempty"`
}

// Counts summarizes a resource list.
type Counts struct {
	Total    int                  `json:"total"`
	BySource map[DataSource]int   `json:"bySource"`
	ByType   map[ResourceType]int `json:"byType"`
}

// AnyLoading reports whether any constituent collection is still loading.
// The unified view is ready only when every collection is.
func AnyLoading(loading ...bool) bool {
	for _, l := range loading {
		if l {
			return true
		}
	}
	return false
}

// Filtered returns a copy of v with f applied to its resources.
func (v View) Filtered(f Filter) View {
	v.Resources = f.Apply(v.Resources)
	return v
}

// Settled returns v with its rows withheld while any collection is still
// loading. Readiness is all or nothing, so a partial list is never shown.
func (v View) Settled() View {
	if v.IsLoading {
		v.Resources = []Resource{}
	}
	return v
}

// Counts tallies the view's resources by source and type.
func (v View) Counts() Counts {
	c := Counts{
		Total:    len(v.Resources),
		BySource: make(map[DataSource]int, len(AllSources)),
		ByType:   make(map[ResourceType]int, len(AllResourceTypes)),
	}
	for _, s := range AllSources {
		c.BySource[s] = 0
	}
	for _, r := range v.Resources {
		c.BySource[r.Source]++
		c.ByType[r.Type]++
	}
	return c
}
