package cli

import (
	"github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"go.viam.com/copc/hierarchy"
)

// NodesAction lists the nodes of the file, optionally only those of one depth.
func NodesAction(c *cli.Context) error {
	r, err := openReader(c)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(r.Close)

	nodes, err := r.GetAllNodes(c.Context)
	if err != nil {
		return err
	}
	if depth := c.Int(nodesFlagDepth); depth >= 0 {
		nodes = lo.Filter(nodes, func(n hierarchy.Node, _ int) bool { return int(n.Key.D) == depth })
	}
	printf(c.App.Writer, "%s", nodeTable(nodes))
	return nil
}

// PagesAction lists the keys of the hierarchy pages.
func PagesAction(c *cli.Context) error {
	r, err := openReader(c)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(r.Close)

	pages, err := r.GetPageList(c.Context)
	if err != nil {
		return err
	}
	for _, key := range pages {
		printf(c.App.Writer, "%s", key)
	}
	return nil
}

// FindAction prints one node.
func FindAction(c *cli.Context) error {
	key, err := parseKey(c)
	if err != nil {
		return err
	}
	r, err := openReader(c)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(r.Close)

	node, err := r.FindNode(c.Context, key)
	if err != nil {
		return err
	}
	if !node.IsValid() {
		warningf(c.App.Writer, "node %s not found", key)
		return nil
	}
	printf(c.App.Writer, "%s", node)
	printf(c.App.Writer, "bounds: %s", r.Bounds(node.Key))
	return nil
}

// QueryAction lists the nodes inside or intersecting a box.
func QueryAction(c *cli.Context) error {
	box, err := parseBox(c.String(queryFlagBox))
	if err != nil {
		return err
	}
	r, err := openReader(c)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(r.Close)

	resolution := c.Float64(queryFlagResolution)
	var nodes []hierarchy.Node
	if c.Bool(queryFlagWithin) {
		nodes, err = r.GetNodesWithinBox(c.Context, box, resolution)
	} else {
		nodes, err = r.GetNodesIntersectBox(c.Context, box, resolution)
	}
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", nodeTable(nodes))
	printf(c.App.Writer, "%d nodes", len(nodes))

	if c.Bool(queryFlagPoints) {
		points, err := r.GetPointsWithinBox(c.Context, box, resolution)
		if err != nil {
			return err
		}
		printf(c.App.Writer, "%d points", points.Len())
	}
	return nil
}

func nodeTable(nodes []hierarchy.Node) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Key", "Points", "Offset", "Size", "Page"})
	for _, n := range nodes {
		t.AppendRow(table.Row{n.Key.String(), n.PointCount, n.Offset, units.BytesSize(float64(n.ByteSize)), n.PageKey.String()})
	}
	return t.Render()
}
