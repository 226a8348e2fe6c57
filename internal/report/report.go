// Package report renders run results into the artifacts handed to
// operations: the disposition summary CSV, the pattern report, and the
// per-record resolution notes.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"discern/internal/model"
	"discern/internal/service"
)

// WriteDispositionCSV writes one line per disposition, sorted by order id
// so reruns produce byte-identical output.
func WriteDispositionCSV(w io.Writer, dispositions []model.Disposition) error {
	sorted := make([]model.Disposition, len(dispositions))
	copy(sorted, dispositions)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].OrderID != sorted[j].OrderID {
			return sorted[i].OrderID < sorted[j].OrderID
		}
		return sorted[i].Tag < sorted[j].Tag
	})

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Transaction ID", "Disposition", "Cluster", "Comment"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, d := range sorted {
		cluster := ""
		if d.Cluster != nil {
			cluster = strconv.Itoa(*d.Cluster)
		}
		if err := writer.Write([]string{d.OrderID, string(d.Tag), cluster, d.Comment}); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WritePatternReport renders the discovered resolution patterns with their
// exemplar comments.
func WritePatternReport(w io.Writer, patterns []model.Pattern, assignments []model.ClusterAssignment) error {
	sorted := make([]model.Pattern, len(patterns))
	copy(sorted, patterns)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Cluster < sorted[j].Cluster })

	members := make(map[int][]string)
	for _, a := range assignments {
		members[a.Cluster] = append(members[a.Cluster], a.OrderID)
	}

	var b strings.Builder
	b.WriteString("Resolution Patterns\n")
	b.WriteString("===================\n\n")

	if len(sorted) == 0 {
		b.WriteString("No resolved comments were clustered in this run.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	for _, p := range sorted {
		fmt.Fprintf(&b, "Pattern %d (%d comments)\n", p.Cluster, p.Size)
		fmt.Fprintf(&b, "  Exemplar [%s]: %s\n", p.ExemplarOrderID, p.Exemplar)
		ids := members[p.Cluster]
		sort.Strings(ids)
		fmt.Fprintf(&b, "  Orders: %s\n\n", strings.Join(ids, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// ResolutionNote renders the per-record artifact text. Resolved records
// carry the classified comment; everything else gets the manual-review
// summary.
func ResolutionNote(result model.ClassificationResult, comment string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order ID: %s\n", result.OrderID)
	fmt.Fprintf(&b, "Status: %s\n", result.Status)

	if result.Status == model.StatusResolved {
		fmt.Fprintf(&b, "Resolution Comment: %s\n", comment)
	} else {
		if comment != "" {
			fmt.Fprintf(&b, "Comment: %s\n", comment)
		}
		b.WriteString("Next Steps: Manual review required\n")
	}
	return b.String()
}

// WriteRunSummary renders the aggregate counters for the run.
func WriteRunSummary(w io.Writer, stats service.RunStats) error {
	var b strings.Builder
	b.WriteString("Run Summary\n")
	b.WriteString("-----------\n")
	fmt.Fprintf(&b, "Total records:   %d\n", stats.Total)
	fmt.Fprintf(&b, "Resolved:        %d\n", stats.Resolved)
	fmt.Fprintf(&b, "Unresolved:      %d\n", stats.Unresolved)
	fmt.Fprintf(&b, "Needs review:    %d\n", stats.NeedsReview)
	fmt.Fprintf(&b, "Failed:          %d\n", stats.Failed)
	fmt.Fprintf(&b, "Cache hits:      %d\n", stats.CacheHits)
	fmt.Fprintf(&b, "Model calls:     %d\n", stats.ModelCalls)
	fmt.Fprintf(&b, "Clusters:        %d\n", stats.Clusters)
	fmt.Fprintf(&b, "Clustered:       %t\n", stats.Clustered)
	_, err := io.WriteString(w, b.String())
	return err
}
