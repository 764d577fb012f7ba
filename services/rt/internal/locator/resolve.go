package locator

import (
	"devicert-go/errcode"
	"devicert-go/types"
)

// Table is the read-only view of the registry searched by Resolve.
type Table interface {
	Len(c types.Category) int
	PathAt(c types.Category, i int) RawPath
}

// searchOrder lists the arrays searched for a path kind, in priority order.
// A gpio name present in both pin arrays resolves to the input pin.
func searchOrder(k PathKind) []types.Category {
	switch k {
	case KindGPIO:
		return []types.Category{types.InputPin, types.OutputPin}
	case KindPWM:
		return []types.Category{types.PWM}
	case KindSys:
		return []types.Category{types.System}
	case KindSerial:
		return []types.Category{types.Serial}
	default:
		return nil
	}
}

// Resolve finds the resource whose self-reported path matches p.
// The search is linear in the size of the category's array.
func Resolve(p RawPath, t Table) (types.IndexedPath, types.Mode, error) {
	for _, cat := range searchOrder(p.Kind) {
		n := t.Len(cat)
		for i := 0; i < n; i++ {
			if t.PathAt(cat, i).Same(p) {
				return types.IndexedPath{Category: cat, Index: uint8(i)}, p.Mode, nil
			}
		}
	}
	return types.IndexedPath{}, 0, errcode.New(errcode.NotFound, "locator.resolve", p.String())
}

// ResolveLocator resolves l into the capability handle used for I/O.
func ResolveLocator(l Locator, t Table) (types.ResourceID, error) {
	ip, mode, err := Resolve(l.Path, t)
	if err != nil {
		return types.ResourceID{}, err
	}
	return types.ResourceID{Scheme: l.Scheme, Path: ip, Mode: mode}, nil
}

// Lookup parses s and resolves it against t.
func Lookup(s string, t Table) (types.ResourceID, error) {
	l, err := Parse(s)
	if err != nil {
		return types.ResourceID{}, err
	}
	return ResolveLocator(l, t)
}

// Ambiguous returns the gpio keys present in both pin arrays of t.
func Ambiguous(t Table) []string {
	var out []string
	for i := 0; i < t.Len(types.InputPin); i++ {
		in := t.PathAt(types.InputPin, i)
		for j := 0; j < t.Len(types.OutputPin); j++ {
			if t.PathAt(types.OutputPin, j).Same(in) {
				out = append(out, in.Key)
				break
			}
		}
	}
	return out
}
