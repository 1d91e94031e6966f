package browse

// Visible reports whether a view at depth with relation name relName renders
// its content for activePath. The root always renders; a nested view renders
// only when it is the active relation at its depth.
func Visible(depth int, relName string, activePath []string) bool {
	if depth == 0 {
		return true
	}
	return depth < len(activePath) && activePath[depth] == relName
}

// HeaderGuard suppresses the header click that ends a column resize.
// The flag is one-shot: every header click clears it.
type HeaderGuard struct {
	suppress bool
}

// Resized records that a column resize just happened.
func (g *HeaderGuard) Resized() {
	g.suppress = true
}

// Click reports whether a header click should sort, and clears the flag.
func (g *HeaderGuard) Click() bool {
	ok := !g.suppress
	g.suppress = false
	return ok
}
