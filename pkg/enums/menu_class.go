package enums

// MenuClass is a menu's menu-engineering quadrant: popularity against
// profitability, each measured relative to the average menu.
type MenuClass string

const (
	MenuClassStar      MenuClass = "STAR"
	MenuClassPlowhorse MenuClass = "PLOWHORSE"
	MenuClassPuzzle    MenuClass = "PUZZLE"
	MenuClassDog       MenuClass = "DOG"
)

// ClassifyMenu places a menu in its quadrant.
func ClassifyMenu(popular, profitable bool) MenuClass {
	switch {
	case popular && profitable:
		return MenuClassStar
	case popular:
		return MenuClassPlowhorse
	case profitable:
		return MenuClassPuzzle
	default:
		return MenuClassDog
	}
}

// String implements fmt.Stringer.
func (m MenuClass) String() string {
	return string(m)
}
