package model

// Company is rendered as a link under the report title.
type Company struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// Report holds the descriptive fields of the HTML report. Hooks overwrite
// these before rendering; empty Tester, Department and Description are
// left out of the overview.
type Report struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Company     Company `json:"company"`
	Tester      string  `json:"tester"`
	Department  string  `json:"department"`
}
