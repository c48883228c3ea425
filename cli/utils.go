package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/copc/copc"
	"go.viam.com/copc/logging"
	"go.viam.com/copc/octree"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with a bold yellow "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	if _, err := color.New(color.Bold, color.FgYellow).Fprint(w, "Warning: "); err != nil {
		return
	}
	printf(w, format, a...)
}

// successf prints a message prefixed with a bold green "Success: ".
func successf(w io.Writer, format string, a ...interface{}) {
	if _, err := color.New(color.Bold, color.FgGreen).Fprint(w, "Success: "); err != nil {
		return
	}
	printf(w, format, a...)
}

// failf prints a message prefixed with a bold red "Failure: ".
func failf(w io.Writer, format string, a ...interface{}) {
	if _, err := color.New(color.Bold, color.FgRed).Fprint(w, "Failure: "); err != nil {
		return
	}
	printf(w, format, a...)
}

// newLogger returns a logger writing to the app's error output at the configured level.
func newLogger(c *cli.Context) (logging.Logger, error) {
	level, err := logging.LevelFromString(c.String(generalFlagLogLevel))
	if err != nil {
		return nil, err
	}
	logger := logging.NewBlankLogger("copc")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	logger.SetLevel(level)
	return logger, nil
}

// openReader opens the file named by the global flags.
func openReader(c *cli.Context) (*copc.Reader, error) {
	logger, err := newLogger(c)
	if err != nil {
		return nil, err
	}
	opts := []copc.Option{
		copc.WithLogger(logger),
		copc.WithParallelism(c.Int(generalFlagParallel)),
	}
	if name := c.String(generalFlagCodec); name != "" {
		opts = append(opts, copc.WithCodec(name))
	}
	return copc.OpenFile(c.Context, c.Path(generalFlagFile), opts...)
}

// parseBox parses "xmin,ymin,xmax,ymax" into a horizontal box, or "xmin,ymin,zmin,xmax,ymax,zmax".
func parseBox(s string) (octree.Box, error) {
	parts := strings.Split(s, ",")
	vals := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return octree.Box{}, errors.Wrapf(err, "invalid box %q", s)
		}
		vals = append(vals, v)
	}
	switch len(vals) {
	case 4:
		return octree.NewBox2D(vals[0], vals[1], vals[2], vals[3])
	case 6:
		return octree.NewBox(vals[0], vals[1], vals[2], vals[3], vals[4], vals[5])
	default:
		return octree.Box{}, errors.Errorf("invalid box %q: want 4 or 6 comma separated values, got %d", s, len(vals))
	}
}

// parseKey parses the key flag.
func parseKey(c *cli.Context) (octree.VoxelKey, error) {
	key, err := octree.ParseVoxelKey(c.String(pointsFlagKey))
	if err != nil {
		return octree.InvalidKey(), err
	}
	return key, nil
}
