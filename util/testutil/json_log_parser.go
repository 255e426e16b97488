package testutil

import (
	"bufio"
	"encoding/json"
	"fmt"
	"github.com/dataconservancy/ingest/models"
	"os"
	"strings"
)

// FindWorkSummaryInLog returns the last WorkSummary for packageRef
// in the JSON log at pathToLogFile. The JSON log has one summary per
// line; lines that aren't summaries are skipped.
func FindWorkSummaryInLog(pathToLogFile, packageRef string) (*models.WorkSummary, error) {
	file, err := os.Open(pathToLogFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var found *models.WorkSummary
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		summary := &models.WorkSummary{}
		if json.Unmarshal([]byte(line), summary) != nil {
			continue
		}
		if summary.PackageRef == packageRef {
			found = summary
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("Package %s not found in %s", packageRef, pathToLogFile)
	}
	return found, nil
}
