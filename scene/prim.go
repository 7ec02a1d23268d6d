package scene

import "slices"

// Prim is one node of a Stage. Children are ordered; attributes and
// relationships keep their authoring order.
type Prim struct {
	TypeName     string
	Kind         string
	Instanceable bool
	References   []Path

	stage    *Stage
	path     Path
	parent   *Prim
	children []*Prim

	attrs     map[string]*Attribute
	attrOrder []string
	rels      map[string][]Path
	relOrder  []string
}

func newPrim(s *Stage, path Path, typeName string) *Prim {
	return &Prim{
		TypeName: typeName,
		stage:    s,
		path:     path,
		attrs:    make(map[string]*Attribute),
		rels:     make(map[string][]Path),
	}
}

func (p *Prim) Stage() *Stage      { return p.stage }
func (p *Prim) Path() Path         { return p.path }
func (p *Prim) Name() string       { return p.path.Name() }
func (p *Prim) Parent() *Prim      { return p.parent }
func (p *Prim) Children() []*Prim  { return p.children }
func (p *Prim) IsPseudoRoot() bool { return p.path.IsRoot() }

func (p *Prim) addChild(child *Prim) {
	child.parent = p
	p.children = append(p.children, child)
}

// IsInstance reports whether the prim is an instanceable reference to
// another prim.
func (p *Prim) IsInstance() bool {
	return p.Instanceable && len(p.References) > 0
}

// Prototype returns the prim targeted by the first reference, or nil when
// the target is not on the stage.
func (p *Prim) Prototype() *Prim {
	if len(p.References) == 0 || p.stage == nil {
		return nil
	}
	return p.stage.PrimAtPath(p.References[0])
}

// HasChildOfType reports whether any direct child has the given type.
func (p *Prim) HasChildOfType(typeName string) bool {
	return slices.ContainsFunc(p.children, func(c *Prim) bool { return c.TypeName == typeName })
}

// Attribute returns nil when the prim has no attribute called name.
func (p *Prim) Attribute(name string) *Attribute {
	return p.attrs[name]
}

func (p *Prim) HasAttribute(name string) bool {
	_, ok := p.attrs[name]
	return ok
}

// AttributeNames returns names in authoring order.
func (p *Prim) AttributeNames() []string {
	return p.attrOrder
}

// CreateAttribute returns the existing attribute or creates an empty one.
func (p *Prim) CreateAttribute(name, typeName string) *Attribute {
	if a, ok := p.attrs[name]; ok {
		return a
	}
	a := &Attribute{Name: name, TypeName: typeName}
	p.attrs[name] = a
	p.attrOrder = append(p.attrOrder, name)
	return a
}

// SetAttribute creates the attribute if needed and assigns its default value.
func (p *Prim) SetAttribute(name, typeName string, v any) *Attribute {
	return p.CreateAttribute(name, typeName).Set(v)
}

// Relationship returns the targets of a relationship, nil when absent.
func (p *Prim) Relationship(name string) []Path {
	return p.rels[name]
}

func (p *Prim) HasRelationship(name string) bool {
	_, ok := p.rels[name]
	return ok
}

func (p *Prim) RelationshipNames() []string {
	return p.relOrder
}

func (p *Prim) SetRelationship(name string, targets ...Path) {
	if _, ok := p.rels[name]; !ok {
		p.relOrder = append(p.relOrder, name)
	}
	p.rels[name] = targets
}

// RelationshipTarget resolves the first target of a relationship. It
// returns nil when the relationship is absent or its target is missing.
func (p *Prim) RelationshipTarget(name string) *Prim {
	targets := p.rels[name]
	if len(targets) == 0 || p.stage == nil {
		return nil
	}
	return p.stage.PrimAtPath(targets[0])
}

// ConnectedPrim follows the first connection of an attribute.
func (p *Prim) ConnectedPrim(name string) (*Prim, Connection, bool) {
	a := p.attrs[name]
	if a == nil || !a.IsConnected() || p.stage == nil {
		return nil, Connection{}, false
	}
	c := a.Connections[0]
	target := p.stage.PrimAtPath(c.Prim)
	return target, c, target != nil
}

// Traverse visits the prim and its descendants depth first.
func (p *Prim) Traverse(callback func(*Prim)) {
	callback(p)
	for _, child := range p.children {
		child.Traverse(callback)
	}
}
