package output

import (
	"sort"
	"strconv"
	"strings"

	"github.com/agentstation/versync"
	"github.com/agentstation/versync/pkg/reconcile"
	"github.com/agentstation/versync/pkg/reference"
	"github.com/agentstation/versync/pkg/registry"
)

// OutcomesToTableData renders one row per requested resource. Wide output
// adds the region count and the registry answer.
func OutcomesToTableData(result *reconcile.Result, wide bool) Data {
	headers := []string{"Resource", "Baseline", "Final", "Status"}
	align := []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft}
	if wide {
		headers = append(headers, "Registry", "Regions")
		align = append(align, AlignLeft, AlignRight)
	}

	data := Data{Headers: headers, ColumnAlignment: align}
	if result == nil {
		return data
	}
	for _, o := range result.Outcomes {
		row := []string{o.Resource, o.Baseline, o.Final, string(o.Status)}
		if wide {
			row = append(row, dash(o.Registry), strconv.Itoa(o.Regions))
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

// ChangesToTableData renders every rewritten link, status line and
// normalized relative link in the order they were made.
func ChangesToTableData(report *versync.Report) Data {
	data := Data{
		Headers:         []string{"Pass", "Resource", "Kind", "Before", "After"},
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignLeft},
	}
	if report == nil {
		return data
	}
	for _, c := range report.Relative {
		data.Rows = append(data.Rows, []string{"relative", "-", c.Tag + "@" + c.Attr, c.Before, c.After})
	}
	if report.Result == nil {
		return data
	}
	for _, c := range report.Changes {
		data.Rows = append(data.Rows, []string{
			string(c.Pass), c.Resource, string(c.Kind), strings.TrimSpace(c.Before), strings.TrimSpace(c.After),
		})
	}
	return data
}

// SummaryLine condenses a report into counts per status.
func SummaryLine(report *versync.Report) string {
	if report == nil || report.Result == nil {
		return "no resources reconciled"
	}
	counts := report.CountByStatus()
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)

	parts := make([]string, 0, len(statuses)+1)
	for _, status := range statuses {
		parts = append(parts, strconv.Itoa(counts[reconcile.Status(status)])+" "+status)
	}
	parts = append(parts, strconv.Itoa(len(report.Changes))+" changes")
	return strings.Join(parts, ", ")
}

// LookupToTableData renders registry versions in request order, marking
// resources the registry did not list.
func LookupToTableData(resources []string, versions registry.VersionMap) Data {
	data := Data{
		Headers:         []string{"Resource", "Version"},
		ColumnAlignment: []Align{AlignLeft, AlignLeft},
	}
	for _, name := range resources {
		version, ok := versions.Get(name)
		if !ok {
			version = "(not listed)"
		}
		data.Rows = append(data.Rows, []string{name, version})
	}
	return data
}

// ReferencesToTableData renders parsed references next to their source URL.
// URLs that are not resource links get an empty row.
func ReferencesToTableData(urls []string) Data {
	data := Data{
		Headers: []string{"URL", "Owner", "Resource", "Version", "Shape"},
	}
	for _, u := range urls {
		ref, ok := reference.Extract(u)
		if !ok {
			data.Rows = append(data.Rows, []string{u, "-", "-", "-", "-"})
			continue
		}
		data.Rows = append(data.Rows, []string{u, ref.Owner, ref.Resource, ref.Version, ref.Shape.String()})
	}
	return data
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
