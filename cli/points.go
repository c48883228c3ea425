package cli

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"go.viam.com/copc/pointcloud"
)

// PointsAction prints the first points of one node.
func PointsAction(c *cli.Context) error {
	key, err := parseKey(c)
	if err != nil {
		return err
	}
	r, err := openReader(c)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(r.Close)

	points, err := r.GetPointsByKey(c.Context, key)
	if err != nil {
		return err
	}
	if points.Len() == 0 {
		warningf(c.App.Writer, "node %s has no points", key)
		return nil
	}

	limit := c.Int(pointsFlagLimit)
	t := table.NewWriter()
	t.AppendHeader(table.Row{"X", "Y", "Z", "Intensity", "Return", "Class", "GPS time"})
	i := 0
	points.Iterate(func(pos r3.Vector, p pointcloud.Point) bool {
		if limit > 0 && i >= limit {
			return false
		}
		i++
		t.AppendRow(table.Row{
			fmt.Sprintf("%.3f", pos.X), fmt.Sprintf("%.3f", pos.Y), fmt.Sprintf("%.3f", pos.Z),
			p.Intensity, fmt.Sprintf("%d/%d", p.ReturnNumber, p.NumberOfReturns), p.Classification,
			fmt.Sprintf("%.6f", p.GPSTime),
		})
		return true
	})
	printf(c.App.Writer, "%s", t.Render())
	printf(c.App.Writer, "%d of %d points", i, points.Len())
	return nil
}

// ExportAction writes the points of a node or of a box to a LAS file.
func ExportAction(c *cli.Context) error {
	keyStr, boxStr := c.String(pointsFlagKey), c.String(queryFlagBox)
	if (keyStr == "") == (boxStr == "") {
		return errors.Errorf("exactly one of --%s and --%s is required", pointsFlagKey, queryFlagBox)
	}
	r, err := openReader(c)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(r.Close)

	var points *pointcloud.Points
	if keyStr != "" {
		key, err := parseKey(c)
		if err != nil {
			return err
		}
		if points, err = r.GetPointsByKey(c.Context, key); err != nil {
			return err
		}
	} else {
		box, err := parseBox(boxStr)
		if err != nil {
			return err
		}
		if points, err = r.GetPointsWithinBox(c.Context, box, c.Float64(queryFlagResolution)); err != nil {
			return err
		}
	}
	if points.Len() == 0 {
		warningf(c.App.Writer, "no points to export")
		return nil
	}

	out := c.Path(exportFlagOut)
	if err := pointcloud.WriteToLASFile(points, out); err != nil {
		return err
	}
	successf(c.App.Writer, "wrote %d points to %s", points.Len(), out)
	return nil
}
