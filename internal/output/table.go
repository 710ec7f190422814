package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/jbweber/hostvirt/internal/fleet"
	"github.com/jbweber/hostvirt/internal/host"
	"github.com/jbweber/hostvirt/internal/storage"
	"github.com/jbweber/hostvirt/internal/vm"
)

// TableFormatter formats results as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// table writes header (unless NoHeaders) and rows through a tabwriter.
func (f *TableFormatter) table(header string, rows func(w *tabwriter.Writer)) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, header)
	}
	rows(w)

	_ = w.Flush()
	return buf.String()
}

// FormatStatuses formats statuses as a table.
func (f *TableFormatter) FormatStatuses(results []fleet.Result) (string, error) {
	if len(results) == 0 {
		return "No targets\n", nil
	}

	return f.table("HOST\tUUID\tNAME\tSTATE\tERROR", func(w *tabwriter.Writer) {
		for _, r := range results {
			state := r.StateLabel
			if state == "" {
				state = "-"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				dash(hostLabel(r.Host)), r.UUID, dash(r.Name), state, dash(r.Error))
		}
	}), nil
}

// FormatDomains formats domains as a table.
func (f *TableFormatter) FormatDomains(domains []vm.Info) (string, error) {
	if len(domains) == 0 {
		return "No domains found\n", nil
	}

	return f.table("NAME\tUUID\tSTATE\tVCPUs\tMEMORY", func(w *tabwriter.Writer) {
		for _, d := range domains {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d MiB\n",
				d.Name, d.UUID, d.StateLabel, d.VCPUs, d.MemoryMiB)
		}
	}), nil
}

// FormatVolumes formats volumes as a table.
func (f *TableFormatter) FormatVolumes(volumes []storage.VolumeInfo) (string, error) {
	if len(volumes) == 0 {
		return "No volumes found\n", nil
	}

	return f.table("NAME\tPOOL\tCAPACITY\tALLOCATION\tPATH", func(w *tabwriter.Writer) {
		for _, v := range volumes {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f GB\t%.1f GB\t%s\n",
				v.Name, v.Pool, v.CapacityGB(), v.AllocationGB(), dash(v.Path))
		}
	}), nil
}

// FormatPools formats pools as a table.
func (f *TableFormatter) FormatPools(pools []storage.PoolInfo) (string, error) {
	if len(pools) == 0 {
		return "No pools found\n", nil
	}

	return f.table("NAME\tTYPE\tSTATE\tCAPACITY\tALLOCATION\tAVAILABLE", func(w *tabwriter.Writer) {
		for _, p := range pools {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.1f GB\t%.1f GB\t%.1f GB\n",
				p.Name, dash(string(p.Type)), p.State, p.CapacityGB(), p.AllocationGB(), p.AvailableGB())
		}
	}), nil
}

// FormatPing formats a ping report as a table.
func (f *TableFormatter) FormatPing(info *host.PingInfo) (string, error) {
	return f.table("HOST\tHOSTNAME\tLIBVIRT\tURI", func(w *tabwriter.Writer) {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			hostLabel(info.Host), info.Hostname, info.LibVersion, info.URI)
	}), nil
}

func hostLabel(h string) string {
	if h == "" {
		return "local"
	}
	return h
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
