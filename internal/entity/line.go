package entity

type LineKind string

const (
	LineRow          LineKind = "row"
	LineColumn       LineKind = "column"
	LineDiagonalMain LineKind = "diagonal-main"
	LineDiagonalAnti LineKind = "diagonal-anti"
)

// Line is a fully marked row, column or diagonal. It is derived from marks and never stored.
type Line struct {
	Kind    LineKind `json:"kind"`
	Indices []int    `json:"indices"`
}
