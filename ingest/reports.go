// Package ingest downloads the ChildSafe annual reports and indexes them
// into the vector store.
package ingest

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
)

// AllReports selects every registered report.
const AllReports = "all"

var ErrUnknownReport = errors.New("report not found")

// Report is one published annual report.
type Report struct {
	Year string `json:"year"`
	URL  string `json:"url"`
}

var registry = map[string]string{
	"2005-2006": "https://childsafe.org.za/downloads/annual_report2005_2006.pdf",
	"2006-2007": "https://childsafe.org.za/downloads/Annual_Report_2006-2007.pdf",
	"2011":      "https://childsafe.org.za/downloads/annual_report2012.pdf",
	"2017-2018": "https://childsafe.org.za/downloads/Annual-Report-2017-2018.pdf",
	"2018-2019": "https://childsafe.org.za/downloads/childsafe-annual-report-2019.pdf",
	"2019-2020": "https://childsafe.org.za/downloads/ChildSafe-Annual-Report-2019-20082020.pdf",
	"2020-2021": "https://childsafe.org.za/downloads/Annual-Report-01Oct2021.pdf",
	"2021-2022": "https://childsafe.org.za/downloads/Annual%20Report%202021-2022.pdf",
	"2022-2023": "https://childsafe.org.za/wp-content/uploads/2023/10/Annual%20Report%202022-2023%20Presentation%20Final%20.pptx",
}

// Reports returns the registry ordered by year.
func Reports() []Report {
	out := make([]Report, 0, len(registry))
	for year, u := range registry {
		out = append(out, Report{Year: year, URL: u})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Select resolves "all" or a single year.
func Select(which string) ([]Report, error) {
	if which == "" || which == AllReports {
		return Reports(), nil
	}
	u, ok := registry[which]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReport, which)
	}
	return []Report{{Year: which, URL: u}}, nil
}

// FileName is the local name of the downloaded report: the year plus the
// extension of the source URL.
func (r Report) FileName() string {
	ext := path.Ext(r.URL)
	if u, err := url.Parse(r.URL); err == nil {
		ext = path.Ext(u.Path)
	}
	return r.Year + ext
}
