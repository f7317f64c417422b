package jobs

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "citizenship-adjudicator/internal/common/errors"
	"citizenship-adjudicator/internal/common/validation"
)

const DefaultInputColumn = "codigo"

// CaseListSchema accepts either a bare array of IDs or {"cases": [...]}.
const CaseListSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "ids": {
      "type": "array",
      "minItems": 1,
      "items": {"type": ["string", "integer"]}
    }
  },
  "oneOf": [
    {"$ref": "#/definitions/ids"},
    {
      "type": "object",
      "required": ["cases"],
      "properties": {"cases": {"$ref": "#/definitions/ids"}}
    }
  ]
}`

// ReadCaseList loads case IDs from a .csv, .json or plain text file.
func ReadCaseList(path, column string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewInvalidCaseListError(err.Error())
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ParseCSV(bytes.NewReader(data), column)
	case ".json":
		return ParseJSON(data)
	default:
		return ParseText(bytes.NewReader(data))
	}
}

// ParseCSV reads the named column. The header match ignores case and a
// leading byte order mark.
func ParseCSV(r io.Reader, column string) ([]string, error) {
	if column == "" {
		column = DefaultInputColumn
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewInvalidCaseListError(fmt.Sprintf("read header: %v", err))
	}
	idx := -1
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(h), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apperrors.NewInvalidCaseListError(fmt.Sprintf("column %q not found", column))
	}

	var ids []string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewInvalidCaseListError(err.Error())
		}
		if idx < len(rec) {
			ids = appendID(ids, rec[idx])
		}
	}
	return nonEmpty(ids)
}

// ParseText reads one ID per line; blank lines and # comments are skipped.
func ParseText(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		ids = appendID(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewInvalidCaseListError(err.Error())
	}
	return nonEmpty(ids)
}

// ParseJSON validates the document against CaseListSchema and returns the IDs
// in document order.
func ParseJSON(data []byte) ([]string, error) {
	result, err := validation.ValidateJSON(CaseListSchema, data)
	if err != nil {
		return nil, apperrors.NewInvalidCaseListError(err.Error())
	}
	if !result.Valid {
		return nil, apperrors.NewInvalidCaseListError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var raw []interface{}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		var doc struct {
			Cases []interface{} `json:"cases"`
		}
		if err := decodeUseNumber(data, &doc); err != nil {
			return nil, err
		}
		raw = doc.Cases
	} else if err := decodeUseNumber(data, &raw); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		switch id := v.(type) {
		case string:
			ids = appendID(ids, id)
		case json.Number:
			ids = appendID(ids, id.String())
		}
	}
	return nonEmpty(ids)
}

// Integer IDs keep their digits instead of going through float64.
func decodeUseNumber(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return apperrors.NewInvalidCaseListError(err.Error())
	}
	return nil
}

func appendID(ids []string, raw string) []string {
	if raw = strings.TrimSpace(raw); raw != "" {
		ids = append(ids, raw)
	}
	return ids
}

func nonEmpty(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, apperrors.NewInvalidCaseListError("no case ids")
	}
	return ids, nil
}
