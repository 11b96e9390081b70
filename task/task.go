package task

import "slices"

// Name identifies a unit of work declared in a Catalog. Names are opaque to
// the gateway; their meaning is owned entirely by the executor.
type Name string

// String returns the name as a plain string.
func (n Name) String() string { return string(n) }

// Request is the payload accepted by both execution endpoints. Inputs is an
// optional ordered sequence of string-keyed records; record order is
// preserved end to end.
type Request struct {
	TaskName string           `json:"task_name" binding:"required"`
	Inputs   []map[string]any `json:"inputs,omitempty"`
}

// Catalog holds the caller-declared task enumerations: utility names
// (synchronous single-result tasks), application names (streaming tasks) and
// execution targets. A Catalog is immutable after construction and safe to
// share across concurrent requests without locking.
type Catalog struct {
	utilities    []Name
	applications []Name
	targets      []Name

	utilitySet     map[Name]struct{}
	applicationSet map[Name]struct{}
	targetSet      map[Name]struct{}
}

// NewCatalog builds a Catalog from the three enumerations. The input slices
// are copied; declaration order is preserved verbatim for introspection.
func NewCatalog(utilities, applications, targets []Name) Catalog {
	return Catalog{
		utilities:      slices.Clone(utilities),
		applications:   slices.Clone(applications),
		targets:        slices.Clone(targets),
		utilitySet:     nameSet(utilities),
		applicationSet: nameSet(applications),
		targetSet:      nameSet(targets),
	}
}

func nameSet(names []Name) map[Name]struct{} {
	set := make(map[Name]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Utilities returns the utility enumeration in declaration order.
func (c Catalog) Utilities() []Name { return slices.Clone(c.utilities) }

// Applications returns the application enumeration in declaration order.
func (c Catalog) Applications() []Name { return slices.Clone(c.applications) }

// Targets returns the execution target enumeration in declaration order.
func (c Catalog) Targets() []Name { return slices.Clone(c.targets) }

// HasUtility reports whether n is a declared utility task.
func (c Catalog) HasUtility(n Name) bool {
	_, ok := c.utilitySet[n]
	return ok
}

// HasApplication reports whether n is a declared application task.
func (c Catalog) HasApplication(n Name) bool {
	_, ok := c.applicationSet[n]
	return ok
}

// HasTarget reports whether n is a declared execution target.
func (c Catalog) HasTarget(n Name) bool {
	_, ok := c.targetSet[n]
	return ok
}

// HasTask reports whether n is declared in either task space. Used by
// introspection endpoints that accept any known task name.
func (c Catalog) HasTask(n Name) bool {
	return c.HasUtility(n) || c.HasApplication(n)
}
