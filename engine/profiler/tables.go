package profiler

import (
	"bytes"
	"fmt"

	"github.com/Carmen-Shannon/oxy-hybrid/engine/accel"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/resource"
	"github.com/olekukonko/tablewriter"
)

// BuildStatsTable renders a tabular summary of an acceleration structure build.
//
// Parameters:
//   - tree: the built tree
//   - builder: the builder that produced it, for its tunables
//
// Returns:
//   - string: the rendered table
func BuildStatsTable(tree *accel.Tree, builder accel.Builder) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"BVH", "Value"})

	s := tree.Stats
	table.Append([]string{"Primitives", fmt.Sprintf("%d", s.Primitives)})
	table.Append([]string{"Nodes", fmt.Sprintf("%d", s.Nodes)})
	table.Append([]string{"Leaves", fmt.Sprintf("%d", s.Leafs)})
	table.Append([]string{"Max depth", fmt.Sprintf("%d", s.MaxDepth)})
	table.Append([]string{"Median fallbacks", fmt.Sprintf("%d", s.Fallbacks)})
	table.Append([]string{" ", " "})
	table.Append([]string{"Leaf size", fmt.Sprintf("%d", builder.LeafSize())})
	table.Append([]string{"SAH buckets", fmt.Sprintf("%d", builder.Buckets())})
	table.Append([]string{"Depth limit", fmt.Sprintf("%d", builder.MaxDepth())})
	table.Append([]string{" ", " "})
	table.Append([]string{"Node buffer", fmtBytes(uint64(len(tree.UploadBytes())))})
	table.Append([]string{"Index buffer", fmtBytes(uint64(len(tree.IndexBytes())))})
	table.SetFooter([]string{"Build time", s.Duration.String()})

	table.Render()
	return buf.String()
}

// ResourceStatsTable renders the live object counts of a resource manager.
//
// Parameters:
//   - stats: the manager statistics
//
// Returns:
//   - string: the rendered table
func ResourceStatsTable(stats resource.Stats) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Resource", "Live", "Size"})
	for _, kind := range resource.Kinds {
		size := ""
		switch kind {
		case resource.KindBuffer:
			size = fmtBytes(stats.BufferBytes)
		case resource.KindTexture:
			size = fmtBytes(stats.TextureBytes)
		}
		table.Append([]string{kind.String(), fmt.Sprintf("%d", stats.Counts[kind]), size})
	}
	table.SetFooter([]string{"Total", fmt.Sprintf("%d", stats.Total()), fmtBytes(stats.BufferBytes + stats.TextureBytes)})

	table.Render()
	return buf.String()
}

// PipelineStatsTable renders the compiled pipelines of a pipeline manager.
func PipelineStatsTable(stats pipeline.Stats) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Pipeline"})
	for _, name := range stats.Names {
		table.Append([]string{name})
	}
	table.SetFooter([]string{fmt.Sprintf("%d render, %d compute", stats.Render, stats.Compute)})

	table.Render()
	return buf.String()
}

// fmtBytes formats a byte count with a b/kb/mb unit.
func fmtBytes(n uint64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%3.1f mb", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%3.1f kb", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d b", n)
	}
}
