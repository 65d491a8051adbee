package ktype

// Image enumerates the descriptors embedded in a loaded code unit. slid
// reports whether the descriptor's strings need the image slide applied.
type Image interface {
	ForEachFixed(fn func(d *Fixed, slid bool))
	ForEachVar(fn func(d *Var, slid bool))
}

// Static is an in-memory image.
type Static struct {
	Name  string
	Slide bool
	Fixed []*Fixed
	Var   []*Var
}

// AddFixed appends fixed descriptors.
func (s *Static) AddFixed(ds ...*Fixed) *Static {
	s.Fixed = append(s.Fixed, ds...)
	return s
}

// AddVar appends variable descriptors.
func (s *Static) AddVar(ds ...*Var) *Static {
	s.Var = append(s.Var, ds...)
	return s
}

// ForEachFixed calls fn for every fixed descriptor in order.
func (s *Static) ForEachFixed(fn func(*Fixed, bool)) {
	for _, d := range s.Fixed {
		fn(d, s.Slide)
	}
}

// ForEachVar calls fn for every variable descriptor in order.
func (s *Static) ForEachVar(fn func(*Var, bool)) {
	for _, d := range s.Var {
		fn(d, s.Slide)
	}
}

// Images chains several images into one, in order.
type Images []Image

// ForEachFixed walks every image's fixed descriptors.
func (is Images) ForEachFixed(fn func(*Fixed, bool)) {
	for _, img := range is {
		img.ForEachFixed(fn)
	}
}

// ForEachVar walks every image's variable descriptors.
func (is Images) ForEachVar(fn func(*Var, bool)) {
	for _, img := range is {
		img.ForEachVar(fn)
	}
}
