package pointcloud

import (
	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// legacyMaxReturn is the largest return number a legacy point record can hold.
const legacyMaxReturn = 7

// WriteToLASFile writes the points out to a plain LAS file. Points with color are written as
// format 2 records, others as format 0. World coordinates are written; attributes without a legacy
// equivalent are dropped.
func WriteToLASFile(points *Points, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return errors.Wrapf(err, "creating %q", fn)
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	hasColor := points.Format().HasRGB()
	pointFormatID := 0
	if hasColor {
		pointFormatID = 2
	}
	if err = lf.AddHeader(lidario.LasHeader{
		PointFormatID: byte(pointFormatID),
	}); err != nil {
		return
	}

	var lastErr error
	points.Iterate(func(pos r3.Vector, p Point) bool {
		var lp lidario.LasPointer
		pr0 := &lidario.PointRecord0{
			X:         pos.X,
			Y:         pos.Y,
			Z:         pos.Z,
			Intensity: p.Intensity,
			BitField: lidario.PointBitField{
				Value: legacyReturnBits(p),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: legacyClassification(p),
			},
			ScanAngle:     0,
			UserData:      p.UserData,
			PointSourceID: p.PointSourceID,
		}
		lp = pr0

		if hasColor {
			lp = &lidario.PointRecord2{
				PointRecord0: pr0,
				RGB: &lidario.RgbData{
					Red:   p.Red,
					Green: p.Green,
					Blue:  p.Blue,
				},
			}
		}
		if lerr := lf.AddLasPoint(lp); lerr != nil {
			lastErr = lerr
			return false
		}
		return true
	})
	if lastErr != nil {
		err = errors.Wrap(lastErr, "writing LAS point")
		return
	}

	// nolint:nakedret
	return
}

// ReadLASFile returns the positions and, for format 2 files, the 16 bit colors of every point of
// a plain LAS file.
func ReadLASFile(fn string) ([]r3.Vector, [][3]uint16, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening %q", fn)
	}
	defer utils.UncheckedErrorFunc(lf.Close)

	positions := make([]r3.Vector, 0, lf.Header.NumberPoints)
	var colors [][3]uint16
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, nil, err
		}
		data := p.PointData()
		positions = append(positions, r3.Vector{X: data.X, Y: data.Y, Z: data.Z})
		if lf.Header.PointFormatID == 2 && p.RgbData() != nil {
			rgb := p.RgbData()
			colors = append(colors, [3]uint16{rgb.Red, rgb.Green, rgb.Blue})
		}
	}
	return positions, colors, nil
}

func legacyReturnBits(p Point) uint8 {
	ret, num := p.ReturnNumber, p.NumberOfReturns
	if ret > legacyMaxReturn {
		ret = legacyMaxReturn
	}
	if num > legacyMaxReturn {
		num = legacyMaxReturn
	}
	bits := ret | num<<3
	if p.ScanDirectionFlag {
		bits |= 1 << 6
	}
	if p.EdgeOfFlightLine {
		bits |= 1 << 7
	}
	return bits
}

func legacyClassification(p Point) uint8 {
	return p.Classification&0x1F | (p.ClassificationFlags&0x7)<<5
}
