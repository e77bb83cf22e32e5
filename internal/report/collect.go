package report

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorecast/domain/recast"
	apperrors "gorecast/internal/errors"
)

const datasetHeader = "# dataset name"

// OutputPath is the CLs table of one dataset
func OutputPath(dirname, dataset string) string {
	return filepath.Join(dirname, "Output", dataset, OutputFile)
}

// SummaryPath is the table collecting every dataset
func SummaryPath(dirname string) string {
	return filepath.Join(dirname, "Output", SummaryFile)
}

// CheckDir verifies that the job directory and its Output directory exist
func CheckDir(dirname string) error {
	for _, dir := range []string{dirname, filepath.Join(dirname, "Output")} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return recast.NewMissingFileError("directory", dir)
		}
	}
	return nil
}

// CheckFile verifies that the CLs table of a dataset exists
func CheckFile(dirname, dataset string) error {
	path := OutputPath(dirname, dataset)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return recast.NewMissingFileError("CLs table", path)
	}
	return nil
}

// Collect merges the CLs tables of the datasets into one summary, each row
// prefixed with its dataset name. The first table header found becomes the
// summary header.
func Collect(dirname string, datasets []string) (err error) {
	path := SummaryPath(dirname)
	out, err := os.Create(path)
	if err != nil {
		return apperrors.OutputError("cannot create "+path, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = apperrors.OutputError("cannot close "+path, cerr)
		}
	}()

	w := bufio.NewWriter(out)
	headerWritten := false
	for _, dataset := range datasets {
		if err := collectDataset(w, dirname, dataset, &headerWritten); err != nil {
			return err
		}
		if _, err := w.WriteString("\n"); err != nil {
			return apperrors.OutputError("cannot write "+path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return apperrors.OutputError("cannot write "+path, err)
	}
	return nil
}

func collectDataset(w *bufio.Writer, dirname, dataset string, headerWritten *bool) error {
	path := OutputPath(dirname, dataset)
	in, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return recast.NewMissingFileError("CLs table", path)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer in.Close()

	prefix := pad(dataset, analysisWidth)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !*headerWritten && strings.Contains(line, analysisHeader) {
			rest := ""
			if len(line) > 2 {
				rest = line[2:]
			}
			if _, err := w.WriteString(pad(datasetHeader, analysisWidth) + rest + "\n"); err != nil {
				return err
			}
			*headerWritten = true
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if _, err := w.WriteString(prefix + line + "\n"); err != nil {
			return err
		}
	}
	return scanner.Err()
}
