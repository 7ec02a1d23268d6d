package scene

import "strings"

// Path is an absolute prim path such as /World/Geo/body. The pseudo-root is "/".
type Path string

const RootPath Path = "/"

func (p Path) String() string { return string(p) }

func (p Path) IsRoot() bool { return p == RootPath }

// Name is the last element of the path.
func (p Path) Name() string {
	if p.IsRoot() {
		return "/"
	}
	s := string(p)
	return s[strings.LastIndexByte(s, '/')+1:]
}

func (p Path) Parent() Path {
	if p.IsRoot() {
		return ""
	}
	s := string(p)
	i := strings.LastIndexByte(s, '/')
	if i <= 0 {
		return RootPath
	}
	return Path(s[:i])
}

func (p Path) Child(name string) Path {
	if p.IsRoot() {
		return Path("/" + name)
	}
	return Path(string(p) + "/" + name)
}

// Connection names a property on another prim, written as /Prim/Path.attrName.
type Connection struct {
	Prim Path
	Name string
}

func (c Connection) String() string {
	return string(c.Prim) + "." + c.Name
}

// ParseConnection splits "/Looks/Mat/Tex.outputs:rgb" into its prim path and
// property name. A target without a property refers to the prim itself.
func ParseConnection(s string) Connection {
	s = strings.Trim(s, "<>")
	slash := strings.LastIndexByte(s, '/')
	dot := strings.IndexByte(s[slash+1:], '.')
	if dot < 0 {
		return Connection{Prim: Path(s)}
	}
	dot += slash + 1
	return Connection{Prim: Path(s[:dot]), Name: s[dot+1:]}
}
