package visualization

import (
	"fmt"
	"html/template"
	"io"

	"github.com/syrinxlab/mupool/internal/identify"
	"github.com/syrinxlab/mupool/internal/specimen"
)

// Report is the data behind a static HTML identification report.
type Report struct {
	Title       string
	Specimen    string
	Result      *identify.Result
	Territories []*specimen.Territory
}

// UnitRow is one row of the report's unit table.
type UnitRow struct {
	Unit  int
	Size  int
	Color string
	Area  string
}

// Rows builds the unit table from the partition and territories.
func (r *Report) Rows() []UnitRow {
	rows := make([]UnitRow, 0, r.Result.NumCommunities)
	for i, members := range r.Result.Partition.Communities {
		row := UnitRow{Unit: i, Size: len(members), Color: CommunityColor(i), Area: "-"}
		if i < len(r.Territories) && r.Territories[i] != nil {
			row.Area = fmt.Sprintf("%.0f px (%.0f um2)", r.Territories[i].Area, r.Territories[i].AreaMicrons())
		}
		rows = append(rows, row)
	}
	return rows
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 2em; color: #222; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; margin-top: 1em; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
.swatch { display: inline-block; width: 1em; height: 1em; border-radius: 50%; vertical-align: middle; }
.meta { color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">specimen: {{.Specimen}} &middot;
threshold: {{printf "%.3f" .Result.OptimalThreshold}} &middot;
resolution: {{printf "%.2f" .Result.OptimalResolution}} &middot;
communities: {{.Result.NumCommunities}} &middot;
unlabeled fibres: {{len .Result.Unlabeled}}</p>
<table>
<tr><th></th><th>Unit</th><th>Fibres</th><th>Territory</th></tr>
{{range .Rows}}<tr>
<td><span class="swatch" style="background: {{.Color}}"></span></td>
<td>{{.Unit}}</td>
<td>{{.Size}}</td>
<td>{{.Area}}</td>
</tr>
{{end}}</table>
</body>
</html>
`))

// RenderHTML writes the static report to w.
func RenderHTML(w io.Writer, r *Report) error {
	if r.Result == nil {
		return fmt.Errorf("render html: report has no result")
	}
	if r.Title == "" {
		r.Title = "Motor-unit identification report"
	}
	if err := reportTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}
