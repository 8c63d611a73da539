package tabular

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"hotelcancel/domain/dataset"
	"hotelcancel/internal"
	"hotelcancel/internal/errors"
)

// DataReader handles reading CSV and Excel files into a dataset.Table
type DataReader struct {
	filePath string
	fileType string // "csv" or "xlsx"
	logger   *internal.Logger
}

// NewDataReader creates a reader; the file type is taken from the extension
// and anything other than .xlsx is read as CSV.
func NewDataReader(filePath string) *DataReader {
	fileType := "csv"
	if strings.ToLower(filepath.Ext(filePath)) == ".xlsx" {
		fileType = "xlsx"
	}
	return &DataReader{filePath: filePath, fileType: fileType, logger: internal.DefaultLogger}
}

// WithLogger overrides the reader's logger
func (r *DataReader) WithLogger(logger *internal.Logger) *DataReader {
	r.logger = logger
	return r
}

// ReadTable reads the whole file. Errors carry FILE_NOT_FOUND, EMPTY_INPUT,
// MALFORMED_INPUT or INTERNAL_ERROR codes.
func (r *DataReader) ReadTable() (*dataset.Table, error) {
	r.logger.Debug("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	info, err := os.Stat(r.filePath)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.FileNotFound(r.filePath, err)
		}
		return nil, errors.Wrapf(err, "failed to stat %s", r.filePath)
	}
	if info.IsDir() {
		return nil, errors.InvalidInput(fmt.Sprintf("%s is a directory", r.filePath))
	}
	if info.Size() == 0 {
		return nil, errors.EmptyInput(fmt.Sprintf("no data found in %s", r.filePath))
	}

	switch r.fileType {
	case "xlsx":
		return r.readExcelData()
	default:
		return r.readCSVData()
	}
}

func (r *DataReader) readCSVData() (*dataset.Table, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open CSV file %s", r.filePath)
	}
	defer file.Close()

	readStart := time.Now()
	table, err := ReadCSV(file)
	if err != nil {
		return nil, err
	}
	r.logger.Info("[DataReader] CSV file read in %.2fms (%d columns, %d rows)",
		float64(time.Since(readStart).Nanoseconds())/1e6, table.NumCols(), table.NumRows())
	return table, nil
}

// ReadCSV parses comma-separated data with a header row
func ReadCSV(src io.Reader) (*dataset.Table, error) {
	reader := csv.NewReader(src)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.EmptyInput("no columns to parse from input")
	}
	if err != nil {
		return nil, errors.MalformedInput("error parsing header", err)
	}
	headers := normalizeHeaders(header)

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.MalformedInput("error parsing the file", err)
		}
		rows = append(rows, record)
	}
	// a header without data rows is a valid zero-row table; fitting rejects it later
	if rows == nil {
		rows = [][]string{}
	}
	return dataset.NewTable(headers, rows)
}

// readExcelData reads the first sheet of a workbook
func (r *DataReader) readExcelData() (*dataset.Table, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.MalformedInput(fmt.Sprintf("failed to open Excel file %s", r.filePath), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.EmptyInput(fmt.Sprintf("workbook %s has no sheets", r.filePath))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.MalformedInput(fmt.Sprintf("failed to read sheet %s", sheets[0]), err)
	}
	if len(rows) == 0 {
		return nil, errors.EmptyInput(fmt.Sprintf("sheet %s is empty", sheets[0]))
	}

	headers := normalizeHeaders(rows[0])
	data := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		// excelize drops trailing empty cells
		if len(row) > len(headers) {
			return nil, errors.MalformedInput(
				fmt.Sprintf("row %d has %d cells, header has %d", i+2, len(row), len(headers)), nil)
		}
		padded := make([]string, len(headers))
		copy(padded, row)
		data = append(data, padded)
	}

	r.logger.Info("[DataReader] Sheet %s read in %.2fms (%d rows)",
		sheets[0], float64(time.Since(startTime).Nanoseconds())/1e6, len(data))
	return dataset.NewTable(headers, data)
}

func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headers[i] = strings.TrimSpace(h)
	}
	return headers
}
