package cli

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"
)

var errValidationFailed = errors.New("points lie outside their bounds")

// ValidateAction checks that every point lies inside its node's bounds and the header bounds.
func ValidateAction(c *cli.Context) error {
	r, err := openReader(c)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(r.Close)

	ok, err := r.ValidateSpatialBounds(c.Context, c.Bool(validateFlagVerbose))
	if err != nil {
		return err
	}
	if !ok {
		failf(c.App.Writer, "%s", errValidationFailed)
		return errValidationFailed
	}
	successf(c.App.Writer, "all points lie inside their node and the header bounds")
	return nil
}
