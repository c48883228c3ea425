package cli

import (
	"fmt"
	"sort"

	"github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"go.viam.com/copc/copc"
	"go.viam.com/copc/hierarchy"
)

// InfoAction prints the file's metadata and a summary of the nodes at each depth.
func InfoAction(c *cli.Context) error {
	r, err := openReader(c)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(r.Close)

	nodes, err := r.GetAllNodes(c.Context)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", metadataTable(r))
	printf(c.App.Writer, "%s", depthTable(nodes))
	return nil
}

func metadataTable(r *copc.Reader) string {
	cfg := r.Config()
	h, info := cfg.Header, cfg.Info
	t := table.NewWriter()
	t.SetTitle("Metadata")
	t.AppendRows([]table.Row{
		{"Version", fmt.Sprintf("%d.%d", h.VersionMajor, h.VersionMinor)},
		{"Generating software", h.GeneratingSoftware},
		{"Points", h.PointCount},
		{"Point format", fmt.Sprintf("%d (%d bytes)", h.PointFormatID, h.PointRecordLength)},
		{"Codec", r.CodecName()},
		{"Scale", fmt.Sprintf("%g, %g, %g", h.Scale.X, h.Scale.Y, h.Scale.Z)},
		{"Offset", fmt.Sprintf("%g, %g, %g", h.Offset.X, h.Offset.Y, h.Offset.Z)},
		{"Min", fmt.Sprintf("%.3f, %.3f, %.3f", h.Min.X, h.Min.Y, h.Min.Z)},
		{"Max", fmt.Sprintf("%.3f, %.3f, %.3f", h.Max.X, h.Max.Y, h.Max.Z)},
		{"Center", fmt.Sprintf("%.3f, %.3f, %.3f", info.Center.X, info.Center.Y, info.Center.Z)},
		{"Half size", info.HalfSize},
		{"Spacing", info.Spacing},
		{"Root hierarchy", hierarchy.PageLocation{Offset: info.RootHierOffset, Size: info.RootHierSize}.String()},
		{"GPS time", fmt.Sprintf("%g - %g", info.GpsTimeMin, info.GpsTimeMax)},
		{"Extra bytes", len(cfg.ExtraBytes)},
		{"WKT", cfg.Wkt != ""},
	})
	if ext := cfg.Extents; ext != nil {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Intensity", ext.Intensity().String()})
		t.AppendRow(table.Row{"Classification", ext.Classification().String()})
		t.AppendRow(table.Row{"GPS time extent", ext.GpsTime().String()})
	}
	return t.Render()
}

// depthTable summarizes the nodes of each depth.
func depthTable(nodes []hierarchy.Node) string {
	byDepth := lo.GroupBy(nodes, func(n hierarchy.Node) int32 { return n.Key.D })
	depths := lo.Keys(byDepth)
	sort.Slice(depths, func(i, j int) bool { return depths[i] < depths[j] })

	t := table.NewWriter()
	t.SetTitle("Depths")
	t.AppendHeader(table.Row{"Depth", "Nodes", "Points", "Mean", "Median", "Std dev", "Size"})
	for _, d := range depths {
		group := byDepth[d]
		counts := stats.Float64Data(lo.Map(group, func(n hierarchy.Node, _ int) float64 { return float64(n.PointCount) }))
		//nolint:errcheck
		mean, _ := counts.Mean()
		//nolint:errcheck
		median, _ := counts.Median()
		//nolint:errcheck
		stdDev, _ := counts.StandardDeviation()
		points := lo.SumBy(group, func(n hierarchy.Node) int64 { return int64(n.PointCount) })
		size := lo.SumBy(group, func(n hierarchy.Node) int64 { return int64(n.ByteSize) })
		t.AppendRow(table.Row{
			d, len(group), points,
			fmt.Sprintf("%.1f", mean), fmt.Sprintf("%.1f", median), fmt.Sprintf("%.1f", stdDev),
			units.BytesSize(float64(size)),
		})
	}
	t.AppendFooter(table.Row{
		"Total", len(nodes),
		lo.SumBy(nodes, func(n hierarchy.Node) int64 { return int64(n.PointCount) }),
	})
	return t.Render()
}
