package ast

import "fmt"

// Location is a source position: Row is 1-based, Column is a 0-based byte
// offset into the line.
type Location struct {
	Row    int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Row, l.Column)
}

// Located is embedded by every node kind that carries a source position.
type Located struct {
	Loc Location
}

func (l Located) Location() Location { return l.Loc }

// At builds a Located for struct literals.
func At(row, col int) Located {
	return Located{Loc: Location{Row: row, Column: col}}
}
