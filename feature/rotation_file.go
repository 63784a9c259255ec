package feature

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/tectonics/platerecon/referenceframe"
	"github.com/tectonics/platerecon/spatialmath"
	"github.com/tectonics/platerecon/utils"
)

// CommentPlateID marks a rotation file line as a comment when it is the moving plate.
const CommentPlateID referenceframe.PlateID = 999

const rotationLineFields = 6

// LoadRotationFile reads a PLATES4 rotation file from disk.
func LoadRotationFile(path string) (*RotationCollection, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open rotation file")
	}
	defer func() {
		//nolint:errcheck
		f.Close()
	}()
	return ParseRotationFile(f, path)
}

// pendingSequence collects the consecutive samples of one (moving, fixed) plate pair.
type pendingSequence struct {
	moving, fixed referenceframe.PlateID
	firstLine     int
	samples       []referenceframe.TimeSample
}

// ParseRotationFile parses PLATES4 rotation lines of the form
//
//	moving_plate time pole_lat pole_lon angle fixed_plate !comment
//
// Consecutive lines naming the same moving and fixed plate form one rotation sequence. Lines whose
// moving plate is 999 are comments, and data lines starting with '#' are disabled samples. Every
// malformed line is reported, each prefixed with filename and line number.
func ParseRotationFile(r io.Reader, filename string) (*RotationCollection, error) {
	coll := &RotationCollection{Filename: filename}
	var (
		errs    error
		current *pendingSequence
	)
	flush := func() {
		if current == nil {
			return
		}
		seq, err := referenceframe.NewRotationSequence(current.moving, current.fixed, current.samples)
		if err != nil {
			errs = multierr.Append(errs, utils.NewFileLineError(filename, current.firstLine, err))
		} else {
			coll.Sequences = append(coll.Sequences, seq)
		}
		current = nil
	}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		moving, fixed, sample, ok, err := parseRotationLine(scanner.Text())
		if err != nil {
			errs = multierr.Append(errs, utils.NewFileLineError(filename, lineNum, err))
			continue
		}
		if !ok {
			continue
		}
		if current == nil || current.moving != moving || current.fixed != fixed {
			flush()
			current = &pendingSequence{moving: moving, fixed: fixed, firstLine: lineNum}
		}
		current.samples = append(current.samples, sample)
	}
	flush()
	if err := scanner.Err(); err != nil {
		errs = multierr.Append(errs, errors.Wrapf(err, "reading %s", filename))
	}
	if errs != nil {
		return nil, errs
	}
	return coll, nil
}

// parseRotationLine returns ok false for blank and comment lines.
func parseRotationLine(line string) (moving, fixed referenceframe.PlateID, sample referenceframe.TimeSample, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, 0, sample, false, nil
	}
	if strings.HasPrefix(line, "#") {
		sample.Disabled = true
		line = strings.TrimSpace(strings.TrimPrefix(line, "#"))
	}
	data, comment, _ := strings.Cut(line, "!")
	sample.Comment = strings.TrimSpace(comment)

	fields := strings.Fields(data)
	if len(fields) == 0 {
		return 0, 0, sample, false, nil
	}
	movingID, err := parsePlateID(fields[0])
	if err != nil {
		return 0, 0, sample, false, errors.Wrap(err, "moving plate")
	}
	if movingID == CommentPlateID {
		return 0, 0, sample, false, nil
	}
	if len(fields) < rotationLineFields {
		return 0, 0, sample, false, errors.Errorf("expected %d fields but got %d", rotationLineFields, len(fields))
	}

	var values [4]float64
	for i, name := range []string{"time", "pole latitude", "pole longitude", "angle"} {
		values[i], err = strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return 0, 0, sample, false, errors.Wrapf(err, "bad %s", name)
		}
	}
	lat := values[1]
	if lat < -90 || lat > 90 {
		return 0, 0, sample, false, errors.Errorf("pole latitude %g out of range", lat)
	}
	fixedID, err := parsePlateID(fields[5])
	if err != nil {
		return 0, 0, sample, false, errors.Wrap(err, "fixed plate")
	}

	sample.Time = values[0]
	sample.Rotation = spatialmath.NewFiniteRotationFromEulerPole(lat, values[2], values[3])
	return movingID, fixedID, sample, true, nil
}

func parsePlateID(field string) (referenceframe.PlateID, error) {
	id, err := strconv.ParseUint(field, 10, 32)
	if err != nil {
		return 0, err
	}
	return referenceframe.PlateID(id), nil
}

// WriteRotationFile writes the collection in the format ParseRotationFile reads. Disabled samples
// are written with a leading '#'.
func WriteRotationFile(w io.Writer, coll *RotationCollection) error {
	bw := bufio.NewWriter(w)
	for _, seq := range coll.Sequences {
		for _, s := range seq.Samples() {
			lat, lon, angle := s.Rotation.EulerPole()
			prefix := ""
			if s.Disabled {
				prefix = "#"
			}
			line := fmt.Sprintf("%s%d %.4f %.4f %.4f %.4f %03d", prefix, seq.MovingPlate(), s.Time, lat, lon, angle, seq.FixedPlate())
			if s.Comment != "" {
				line += " !" + s.Comment
			}
			if _, err := fmt.Fprintln(bw, line); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
