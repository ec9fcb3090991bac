// Package arc provides narrative arc templates and the per-conversation
// arc state machine that drives plot suggestions.
package arc

// Phase is one named stage of an arc template.
// Weight is descriptive metadata for template authors; progress and
// suggestion ordering are phase-count based.
type Phase struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// BranchPoint offers alternative narrative directions from a given phase.
type BranchPoint struct {
	FromPhase string   `json:"fromPhase"`
	Options   []string `json:"options"`
}

// ArcTemplate is an immutable, ordered sequence of phases with optional
// branch points.
type ArcTemplate struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"displayName"`
	Phases      []Phase       `json:"phases"`
	Branches    []BranchPoint `json:"branches,omitempty"`
}

// PhaseAt returns the phase at index, or nil when out of range.
func (t *ArcTemplate) PhaseAt(i int) *Phase {
	if i < 0 || i >= len(t.Phases) {
		return nil
	}
	return &t.Phases[i]
}

// BranchOptionsFor returns the declared branch options whose FromPhase
// equals the given phase name, in template-declared order.
func (t *ArcTemplate) BranchOptionsFor(phaseName string) []string {
	var opts []string
	for _, bp := range t.Branches {
		if bp.FromPhase == phaseName {
			opts = append(opts, bp.Options...)
		}
	}
	return opts
}

// Catalog is a read-only registry of arc templates.
type Catalog struct {
	templates map[string]*ArcTemplate
	order     []string
}

// NewCatalog builds a catalog from the given templates. Templates with
// duplicate phase names or branch points referencing unknown phases are
// skipped rather than registered half-valid.
func NewCatalog(templates []*ArcTemplate) *Catalog {
	c := &Catalog{templates: make(map[string]*ArcTemplate, len(templates))}
	for _, t := range templates {
		if !validTemplate(t) {
			continue
		}
		if _, dup := c.templates[t.ID]; dup {
			continue
		}
		c.templates[t.ID] = t
		c.order = append(c.order, t.ID)
	}
	return c
}

// DefaultCatalog returns the built-in template set.
func DefaultCatalog() *Catalog {
	return NewCatalog(builtinTemplates)
}

// Get looks up a template by id. Never errors; the second return reports
// whether the id is known.
func (c *Catalog) Get(id string) (*ArcTemplate, bool) {
	t, ok := c.templates[id]
	return t, ok
}

// List returns all templates in registration order.
func (c *Catalog) List() []*ArcTemplate {
	out := make([]*ArcTemplate, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.templates[id])
	}
	return out
}

// Len returns the number of registered templates.
func (c *Catalog) Len() int {
	return len(c.templates)
}

func validTemplate(t *ArcTemplate) bool {
	if t == nil || t.ID == "" {
		return false
	}
	seen := make(map[string]bool, len(t.Phases))
	for _, p := range t.Phases {
		if p.Name == "" || seen[p.Name] {
			return false
		}
		seen[p.Name] = true
	}
	for _, bp := range t.Branches {
		if !seen[bp.FromPhase] {
			return false
		}
	}
	return true
}

// builtinTemplates mirrors the stock arc library shipped with the host UI.
var builtinTemplates = []*ArcTemplate{
	{
		ID:          "heros-journey",
		DisplayName: "Hero's Journey",
		Phases: []Phase{
			{Name: "ordinary-world", Description: "Establish the status quo and what the protagonist stands to lose", Weight: 1},
			{Name: "call-to-adventure", Description: "An inciting event disrupts the ordinary world", Weight: 1.5},
			{Name: "trials", Description: "Escalating challenges test resolve and forge alliances", Weight: 2},
			{Name: "ordeal", Description: "The darkest moment; everything hangs in the balance", Weight: 2.5},
			{Name: "return", Description: "Transformation acknowledged, the changed hero comes home", Weight: 1},
		},
		Branches: []BranchPoint{
			{FromPhase: "call-to-adventure", Options: []string{"refuse the call", "accept eagerly", "a mentor intervenes"}},
			{FromPhase: "ordeal", Options: []string{"sacrifice something precious", "an ally betrays", "hidden strength revealed"}},
		},
	},
	{
		ID:          "slow-burn",
		DisplayName: "Slow Burn",
		Phases: []Phase{
			{Name: "sparks", Description: "Small moments of unexpected connection", Weight: 1},
			{Name: "denial", Description: "Both parties rationalize the growing tension away", Weight: 1.5},
			{Name: "forced-proximity", Description: "Circumstance keeps throwing them together", Weight: 2},
			{Name: "breaking-point", Description: "The pretense collapses; feelings surface", Weight: 2},
			{Name: "resolution", Description: "A new equilibrium, together or apart", Weight: 1},
		},
		Branches: []BranchPoint{
			{FromPhase: "forced-proximity", Options: []string{"a rival appears", "a secret is exposed", "shared danger"}},
		},
	},
	{
		ID:          "mystery",
		DisplayName: "Unraveling Mystery",
		Phases: []Phase{
			{Name: "discovery", Description: "Something is wrong; a question demands an answer", Weight: 1},
			{Name: "investigation", Description: "Clues accumulate, and so do false leads", Weight: 2.5},
			{Name: "complication", Description: "The mystery deepens or turns personal", Weight: 2},
			{Name: "revelation", Description: "The truth comes out, at a cost", Weight: 1.5},
		},
		Branches: []BranchPoint{
			{FromPhase: "investigation", Options: []string{"a witness lies", "evidence disappears", "unexpected ally"}},
			{FromPhase: "complication", Options: []string{"the seeker becomes the sought", "a second mystery surfaces"}},
		},
	},
	{
		ID:          "redemption",
		DisplayName: "Redemption Arc",
		Phases: []Phase{
			{Name: "fall", Description: "The weight of a past failure surfaces", Weight: 1},
			{Name: "reckoning", Description: "Consequences can no longer be avoided", Weight: 2},
			{Name: "atonement", Description: "Concrete amends, paid in full", Weight: 2},
			{Name: "acceptance", Description: "Forgiveness earned or self-granted", Weight: 1},
		},
	},
}
