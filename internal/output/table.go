package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/jbweber/virtbuilder/internal/status"
	"github.com/jbweber/virtbuilder/internal/vm"
)

// TableFormatter formats results as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header rows.
	NoHeaders bool
}

// FormatPlan formats a plan as a VM summary, a disk table and the numbered
// command list.
func (f *TableFormatter) FormatPlan(plan *vm.Plan) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tTYPE\tFIRMWARE\tGRAPHICS\tVCPUs\tMEMORY\tNETWORK")
	}
	network := string(plan.Network.Type)
	if plan.Network.Parent != "" {
		network += "(" + plan.Network.Parent + ")"
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d MiB\t%s\n",
		plan.Name, plan.Type, plan.Firmware, plan.Graphics, plan.VCPUs, plan.MemoryMiB, network)
	_ = w.Flush()

	buf.WriteString("\n")
	w = tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "DISK\tMODE\tFORMAT\tSIZE\tBUS\tPATH")
	}
	for _, d := range plan.Disks {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Key, d.Mode, d.Format, dash(d.Size), d.Bus, d.URI)
	}
	_ = w.Flush()

	buf.WriteString("\n")
	if !f.NoHeaders {
		buf.WriteString("COMMANDS\n")
	}
	for i, c := range plan.Commands {
		_, _ = fmt.Fprintf(&buf, "%2d  %s\n", i+1, c)
	}

	return buf.String(), nil
}

// FormatStatus formats a domain status as a single table row, followed by
// its disks when the definition could be read.
func (f *TableFormatter) FormatStatus(st *vm.DomainStatus) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tPHASE\tRUNNING\tAUTOSTART\tVCPUs\tMEMORY")
	}

	running, autostart := yesNo(st.Running), yesNo(st.Autostart)
	vcpus, memory := "-", "-"
	if st.VCPUs > 0 {
		vcpus = fmt.Sprintf("%d", st.VCPUs)
		memory = fmt.Sprintf("%d MiB", st.MemoryMiB)
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", st.Name, st.Phase, running, autostart, vcpus, memory)
	_ = w.Flush()

	if v := verdict(st.Phase); v != "" {
		_, _ = fmt.Fprintf(&buf, "\n%s\n", v)
	}

	if st.Build != nil {
		_, _ = fmt.Fprintf(&buf, "\nBuilt from %s (%s)\n", st.Build.Config, st.Build.Type)
	}

	if st.Definition == nil || len(st.Definition.Disks) == 0 {
		return buf.String(), nil
	}

	buf.WriteString("\n")
	w = tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "TARGET\tBUS\tDEVICE\tREMOVABLE\tSOURCE")
	}
	for _, d := range st.Definition.Disks {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", dash(d.Target), dash(d.Bus), d.Device, yesNo(d.Removable), dash(d.Source))
	}
	_ = w.Flush()

	return buf.String(), nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// verdict is the one-line hint printed under a status row. Running and
// paused domains need none.
func verdict(phase status.Phase) string {
	switch {
	case phase == status.PhaseAbsent:
		return "Domain is not defined; run build to create it."
	case status.IsTerminal(phase):
		return "Domain is defined but not running."
	case status.IsTransitioning(phase):
		return "Domain is shutting down."
	default:
		return ""
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
