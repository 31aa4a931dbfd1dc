package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"html/template"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ja7ad/sysinfo/pkg/consumption"
	"github.com/ja7ad/sysinfo/pkg/system/util"
	"github.com/ja7ad/sysinfo/pkg/types"
)

type pidInfo struct {
	PID  int
	Name string
}

// row is one power sample as written to the report files.
type row struct {
	At          time.Time   `json:"time"`
	UVm         float64     `json:"u_vm"`
	UProc       float64     `json:"u_proc"`
	PCPU        float64     `json:"p_cpu_w"`
	PDisk       float64     `json:"p_disk_w"`
	PRAM        float64     `json:"p_ram_w"`
	PIdleShare  float64     `json:"p_idle_share_w"`
	PTotal      float64     `json:"p_total_w"`
	EnergyCumJ  float64     `json:"e_cum_j"`
	ReadBytes   types.Bytes `json:"read_bytes"`
	WriteBytes  types.Bytes `json:"write_bytes"`
	RSSChurnB   types.Bytes `json:"rss_churn_bytes"`
	IntervalSec float64     `json:"interval_sec"`
}

var csvHeader = []string{
	"time", "u_vm", "u_proc", "p_cpu_w", "p_disk_w", "p_ram_w", "p_total_w",
	"e_cum_j", "read_bytes", "write_bytes", "rss_churn_bytes", "interval_sec",
}

// report streams rows to the optional CSV and JSON files and keeps them for
// the HTML file, which is only written on close.
type report struct {
	csvF  *os.File
	csvW  *csv.Writer
	jsonF *os.File
	htmlF *os.File

	written int
	rows    []row
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func openReport(csvPath, jsonPath, htmlPath string) (*report, error) {
	r := &report{}
	if csvPath != "" {
		f, err := create(csvPath)
		if err != nil {
			return nil, err
		}
		r.csvF = f
		r.csvW = csv.NewWriter(f)
		_ = r.csvW.Write(csvHeader)
		r.csvW.Flush()
	}
	if jsonPath != "" {
		f, err := create(jsonPath)
		if err != nil {
			_ = r.close(consumption.Result{}, 0, nil)
			return nil, err
		}
		r.jsonF = f
		_, _ = f.WriteString("[\n")
	}
	if htmlPath != "" {
		f, err := create(htmlPath)
		if err != nil {
			_ = r.close(consumption.Result{}, 0, nil)
			return nil, err
		}
		r.htmlF = f
	}
	return r, nil
}

func (r *report) write(rw row) error {
	if r.htmlF != nil {
		r.rows = append(r.rows, rw)
	}
	if r.csvW != nil {
		_ = r.csvW.Write([]string{
			rw.At.Format(time.RFC3339),
			util.FmtFloat(rw.UVm), util.FmtFloat(rw.UProc),
			util.FmtFloat(rw.PCPU), util.FmtFloat(rw.PDisk), util.FmtFloat(rw.PRAM),
			util.FmtFloat(rw.PTotal), util.FmtFloat(rw.EnergyCumJ),
			strconv.FormatUint(rw.ReadBytes.ToUin64(), 10),
			strconv.FormatUint(rw.WriteBytes.ToUin64(), 10),
			strconv.FormatUint(rw.RSSChurnB.ToUin64(), 10),
			util.FmtFloat(rw.IntervalSec),
		})
		r.csvW.Flush()
		if err := r.csvW.Error(); err != nil {
			return err
		}
	}
	if r.jsonF != nil {
		b, err := json.MarshalIndent(rw, "  ", "  ")
		if err != nil {
			return err
		}
		if r.written > 0 {
			_, _ = r.jsonF.WriteString(",\n")
		}
		if _, err := r.jsonF.Write(b); err != nil {
			return err
		}
		r.written++
	}
	return nil
}

// close finalizes every open file and returns all errors met doing so.
func (r *report) close(avg consumption.Result, energy float64, pids []pidInfo) error {
	var result *multierror.Error
	if r.csvF != nil {
		r.csvW.Flush()
		result = multierror.Append(result, r.csvW.Error(), r.csvF.Close())
	}
	if r.jsonF != nil {
		_, err := r.jsonF.WriteString("\n]\n")
		result = multierror.Append(result, err, r.jsonF.Close())
	}
	if r.htmlF != nil {
		result = multierror.Append(result, writeHTML(r.htmlF, r.rows, avg, energy, pids), r.htmlF.Close())
	}
	return result.ErrorOrNil()
}

func writeHTML(f *os.File, rows []row, avg consumption.Result, energy float64, pids []pidInfo) error {
	var buf bytes.Buffer
	err := tpl.Execute(&buf, struct {
		Rows   []row
		Avg    consumption.Result
		Energy float64
		PIDs   []pidInfo
	}{rows, avg, energy, pids})
	if err != nil {
		return err
	}
	_, err = f.Write(buf.Bytes())
	return err
}

var tpl = template.Must(template.New("rep").Parse(`<!doctype html>
<html lang="en"><meta charset="utf-8">
<title>Power Report</title>
<style>
body{font-family:system-ui,Segoe UI,Roboto,Helvetica,Arial,sans-serif;margin:20px}
h1,h2{margin:0 0 8px}
table{border-collapse:collapse;width:100%;font-size:14px}
th,td{border:1px solid #ddd;padding:6px 8px;text-align:right}
th:first-child,td:first-child{text-align:left}
ul{margin:6px 0 14px;padding-left:20px}
.small{color:#555}
.badge{display:inline-block;background:#eef;border:1px solid #ccd;padding:2px 6px;border-radius:6px;margin-right:6px;}
</style>

<h1><a href="https://github.com/ja7ad/sysinfo" target="_blank" rel="noopener noreferrer" style="color:inherit;text-decoration:none;">Power Report</a></h1>

<p class="small">
Rows: {{len .Rows}} &nbsp;|&nbsp;
Avg P(total): {{printf "%.3f" .Avg.PTotal}} W &nbsp;|&nbsp;
Energy: {{printf "%.3f" .Energy}} J
</p>

{{if .PIDs}}
<h2>Processes</h2>
<ul>
{{range .PIDs}}
  <li><span class="badge">PID {{.PID}}</span> {{.Name}}</li>
{{end}}
</ul>
{{end}}

<h2>Summary</h2>
<ul>
<li>Avg P(cpu): {{printf "%.3f" .Avg.PCPU}} W</li>
<li>Avg P(disk): {{printf "%.3f" .Avg.PDisk}} W</li>
<li>Avg P(ram): {{printf "%.3f" .Avg.PRAM}} W</li>
<li>Avg P(total): {{printf "%.3f" .Avg.PTotal}} W</li>
<li>Energy: {{printf "%.3f" .Energy}} J</li>
</ul>

<h2>Per-tick</h2>
<table>
<thead>
<tr>
<th>time</th><th>U_vm</th><th>U_proc</th>
<th>P_cpu(W)</th><th>P_disk(W)</th><th>P_ram(W)</th><th>P_total(W)</th><th>E_cum(J)</th>
<th>read B</th><th>write B</th><th>rssΔ B</th>
</tr>
</thead>
<tbody>
{{range .Rows}}
<tr>
<td style="text-align:left">{{.At.Format "2006-01-02 15:04:05"}}</td>
<td>{{printf "%.4f" .UVm}}</td>
<td>{{printf "%.4f" .UProc}}</td>
<td>{{printf "%.3f" .PCPU}}</td>
<td>{{printf "%.3f" .PDisk}}</td>
<td>{{printf "%.3f" .PRAM}}</td>
<td>{{printf "%.3f" .PTotal}}</td>
<td>{{printf "%.3f" .EnergyCumJ}}</td>
<td>{{.ReadBytes}}</td>
<td>{{.WriteBytes}}</td>
<td>{{.RSSChurnB}}</td>
</tr>
{{end}}
</tbody>
</table>
</html>`))
