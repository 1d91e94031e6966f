package browse

import "fmt"

// CellRef identifies one rendered cell. At most one cell per store is
// expanded at a time.
type CellRef struct {
	Entity string `json:"entity"`
	Column string `json:"column"`
	Row    int    `json:"row"`
}

func (c CellRef) String() string {
	return fmt.Sprintf("%s.%s[%d]", c.Entity, c.Column, c.Row)
}

// Toggle returns the expanded reference after clicking ref: ref itself when
// nothing or another cell was expanded, nil when ref was the expanded cell.
func Toggle(expanded *CellRef, ref CellRef) *CellRef {
	if expanded != nil && *expanded == ref {
		return nil
	}
	return &ref
}
