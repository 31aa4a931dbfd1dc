package main

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/ja7ad/sysinfo/pkg/process"
)

var sortKeys = map[string]func(a, b *process.Process) int{
	"pid": func(a, b *process.Process) int { return cmp.Compare(a.PID(), b.PID()) },
	"cpu": func(a, b *process.Process) int { return cmp.Compare(b.CPUUsage(), a.CPUUsage()) },
	"mem": func(a, b *process.Process) int { return cmp.Compare(b.Memory(), a.Memory()) },
	"name": func(a, b *process.Process) int {
		return cmp.Or(strings.Compare(a.Name(), b.Name()), cmp.Compare(a.PID(), b.PID()))
	},
}

func sortProcesses(ps []*process.Process, key string) error {
	fn, ok := sortKeys[key]
	if !ok {
		return fmt.Errorf("unknown sort key %q (pid, cpu, mem, name)", key)
	}
	slices.SortStableFunc(ps, fn)
	return nil
}

func toPIDs(ids []int) []process.PID {
	out := make([]process.PID, len(ids))
	for i, id := range ids {
		out[i] = process.PID(id)
	}
	return out
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetBorder(false)
	t.SetColumnSeparator("")
	t.SetCenterSeparator("")
	t.SetRowSeparator("")
	t.SetHeaderLine(false)
	t.SetTablePadding("  ")
	t.SetNoWhiteSpace(true)
	return t
}

// renderProcesses prints ps as a table. withCmd appends the command line.
func renderProcesses(w io.Writer, ps []*process.Process, withCmd bool) {
	header := []string{"PID", "PPID", "USER", "S", "CPU%", "RSS", "VSZ", "READ", "WRITE", "TIME", "NAME"}
	if withCmd {
		header = append(header, "CMD")
	}
	t := newTable(w, header...)
	for _, p := range ps {
		ppid := "-"
		if parent, ok := p.Parent(); ok {
			ppid = parent.String()
		}
		usr := "-"
		if u, ok := p.User(); ok {
			usr = cmp.Or(u.Name, strconv.FormatUint(uint64(u.UserID), 10))
		}
		name := p.Name()
		if p.ThreadKind() != process.ThreadNone {
			name = "  " + name
		}
		du := p.DiskUsage()
		rec := []string{
			p.PID().String(),
			ppid,
			usr,
			p.Status().String(),
			strconv.FormatFloat(p.CPUUsage(), 'f', 1, 64),
			p.Memory().Humanized(),
			p.VirtualMemory().Humanized(),
			du.ReadBytes.Humanized(),
			du.WrittenBytes.Humanized(),
			p.AccumulatedCPUTime().Truncate(10 * time.Millisecond).String(),
			name,
		}
		if withCmd {
			rec = append(rec, strings.Join(p.Cmd(), " "))
		}
		t.Append(rec)
	}
	t.Render()
}
