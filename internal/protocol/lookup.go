// Package protocol resolves charging-protocol parameters for a cycler run.
//
// Runs are named "<project>_<seqnum>" by the lab convention; each project has
// a CSV parameter table in the parameters directory with one row per sequence
// number. The feature extractors only consume the lookup through LookupFunc,
// so tests and callers with pre-resolved parameters can inject their own.
package protocol

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// ErrParameterMissing is returned when a required protocol parameter column
// is absent from the resolved row.
var ErrParameterMissing = errors.New("protocol parameter column missing")

// Parameters is one resolved row of charging-protocol constants.
type Parameters struct {
	values map[string]string
}

// NewParameters builds a parameter row from already-resolved values.
func NewParameters(values map[string]string) Parameters {
	return Parameters{values: values}
}

// Has reports whether the named column is present.
func (p Parameters) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Float returns the named column as a float. Missing columns surface
// ErrParameterMissing; unparseable values surface the coercion error.
func (p Parameters) Float(name string) (float64, error) {
	raw, ok := p.values[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrParameterMissing, name)
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, fmt.Errorf("protocol parameter %q: %w", name, err)
	}
	return v, nil
}

// String returns the named column verbatim.
func (p Parameters) String(name string) (string, error) {
	raw, ok := p.values[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrParameterMissing, name)
	}
	return raw, nil
}

// LookupFunc resolves the protocol parameters for the run identified by
// filePath out of parametersDir.
type LookupFunc func(filePath, parametersDir string) (Parameters, error)

// Lookup is the default file-backed LookupFunc. It parses the project name
// and sequence number from the run file name and scans the CSV tables in
// parametersDir for the matching row.
func Lookup(filePath, parametersDir string) (Parameters, error) {
	project, seq, err := splitRunName(filePath)
	if err != nil {
		return Parameters{}, err
	}

	entries, err := os.ReadDir(parametersDir)
	if err != nil {
		return Parameters{}, fmt.Errorf("reading parameters directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		params, found, err := scanParameterFile(filepath.Join(parametersDir, entry.Name()), project, seq)
		if err != nil {
			return Parameters{}, err
		}
		if found {
			return params, nil
		}
	}
	return Parameters{}, fmt.Errorf("no parameter row for project %q seq %d under %s", project, seq, parametersDir)
}

// splitRunName parses "<project>_<seqnum>" out of a run file path.
func splitRunName(filePath string) (string, int, error) {
	base := filepath.Base(filePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	idx := strings.LastIndex(base, "_")
	if idx <= 0 || idx == len(base)-1 {
		return "", 0, fmt.Errorf("run file name %q does not match <project>_<seqnum>", base)
	}
	seq, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("run file name %q has non-numeric sequence number: %w", base, err)
	}
	return base[:idx], seq, nil
}

func scanParameterFile(path, project string, seq int) (Parameters, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return Parameters{}, false, fmt.Errorf("opening parameter file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	// Short rows at the tail are common in hand-edited tables; they just
	// never match.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Parameters{}, false, fmt.Errorf("reading parameter header from %s: %w", path, err)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Parameters{}, false, fmt.Errorf("reading parameter rows from %s: %w", path, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[strings.TrimSpace(col)] = strings.TrimSpace(record[i])
			}
		}
		if row["project_name"] != project {
			continue
		}
		rowSeq, err := strconv.Atoi(row["seq_num"])
		if err != nil || rowSeq != seq {
			continue
		}
		return Parameters{values: row}, true, nil
	}
	return Parameters{}, false, nil
}
