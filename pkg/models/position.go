package models

// Position is an inclusive range of lines or columns, both 1-based.
type Position struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FilePosition locates a span of text in a file.
type FilePosition struct {
	Line     Position `json:"line"`
	Column   Position `json:"column"`
	Filename string   `json:"file_name"`
}
