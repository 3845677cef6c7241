package dom

// SetAttr sets attribute name to value on n, adding it if absent.
func SetAttr(n *Node, name, value string) {
	if !IsElement(n) {
		return
	}
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, Attribute{Key: name, Val: value})
}

// RemoveAttr deletes attribute name from n, if present.
func RemoveAttr(n *Node, name string) {
	if !IsElement(n) {
		return
	}
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}
