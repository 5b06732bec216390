package common

import (
	"encoding/json"
	"io"
	"os"
)

// CIResult is the single JSON document a tool prints in --ci mode.
type CIResult struct {
	OK      bool     `json:"ok"`
	Title   string   `json:"title"`
	Details []string `json:"details,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func NewCIResult(title string, details []string, err error) CIResult {
	result := CIResult{OK: err == nil, Title: title, Details: details}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

func PrintCIResult(ok bool, title string, details []string, err error) {
	result := NewCIResult(title, details, err)
	result.OK = ok
	_ = WriteCIResult(os.Stdout, result)
}

func WriteCIResult(w io.Writer, result CIResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
