package agent

// buildBranchPath composes a hierarchical branch identifier. If parent is
// empty it returns child; otherwise parent + "." + child.
func buildBranchPath(parent, child string) string {
	switch {
	case parent == "":
		return child
	case child == "":
		return parent
	default:
		return parent + "." + child
	}
}
