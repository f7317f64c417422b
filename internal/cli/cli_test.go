package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"citizenship-adjudicator/internal/adjudication/decision"
	"citizenship-adjudicator/internal/common/config"
	"citizenship-adjudicator/internal/evidence"
	"citizenship-adjudicator/internal/jobs"
	"citizenship-adjudicator/internal/models"
)

// ==========================
// Wiring helpers
// ==========================

func TestRetryWithBackoff(t *testing.T) {
	log := zaptest.NewLogger(t)

	attempts := 0
	err := retryWithBackoff(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, 5, time.Millisecond, log, "test connection")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = retryWithBackoff(func() error {
		attempts++
		return errors.New("connection refused")
	}, 2, time.Millisecond, log, "test connection")
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Contains(t, err.Error(), "test connection failed after 2 attempts")
}

func TestDecisionConfig(t *testing.T) {
	dc, err := decisionConfig(config.DecisionConfig{
		DocumentPenalty: 15,
		Bands: map[string][]config.BandConfig{
			"ordinary": {
				{Floor: 100, Decision: "DEFERRED"},
				{Floor: 0, Decision: "DENIED"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 15, dc.DocumentPenalty)
	assert.Equal(t, []decision.Band{
		{Floor: 100, Kind: models.DecisionDeferred},
		{Floor: 0, Kind: models.DecisionDenied},
	}, dc.Bands[models.CaseTypeOrdinary])
	assert.Equal(t, decision.DefaultBands()[models.CaseTypeProvisional], dc.Bands[models.CaseTypeProvisional])

	_, err = decisionConfig(config.DecisionConfig{
		Bands: map[string][]config.BandConfig{"ordinary": {{Floor: 0, Decision: "MAYBE"}}},
	})
	assert.Error(t, err)

	_, err = decisionConfig(config.DecisionConfig{
		Bands: map[string][]config.BandConfig{"unknown": {{Floor: 0, Decision: "DENIED"}}},
	})
	assert.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, jobs.JobView{
		ID:      "job-1",
		Status:  jobs.StatusStopped,
		Message: "Interrompido: 2 de 3 casos processados",
		Summary: jobs.Summary{
			Total:     3,
			Processed: 2,
			Succeeded: 1,
			Failed:    1,
			Decisions: map[string]int{"ERROR": 1, "DEFERRED": 1},
		},
	}, "results/report.csv")

	out := buf.String()
	assert.Contains(t, out, "Job job-1: stopped")
	assert.Contains(t, out, "Processed: 2 of 3 (1 ok, 1 failed)")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("DEFERRED")), bytes.Index(buf.Bytes(), []byte("ERROR")))
	assert.Contains(t, out, "Report: results/report.csv")
}

// ==========================
// Commands
// ==========================

func writeWorkspace(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()

	fixture := map[string]interface{}{
		"cases": map[string]evidence.StaticCase{
			"1001": {
				CaseType:  "ordinaria",
				StartDate: "01/06/2024",
				Opinion:   "Constatou-se que reside no Brasil desde 01/01/2015.",
				Fields:    map[string]string{models.FieldBirthDate: "01/01/1990"},
				Documents: map[string]evidence.StaticDocument{
					models.DocPortugueseProof:      {Valid: true},
					models.DocCriminalRecordBrazil: {Valid: true},
					models.DocCriminalRecordOrigin: {Valid: true},
					models.DocResidencyProof:       {Valid: true},
					models.DocCPFStatus:            {Valid: true},
					models.DocCRNM:                 {Valid: true},
					models.DocTravelDocument:       {Valid: true},
				},
			},
		},
	}
	data, err := json.Marshal(fixture)
	require.NoError(t, err)
	fixturePath := filepath.Join(dir, "evidence.json")
	require.NoError(t, os.WriteFile(fixturePath, data, 0o644))

	cfgPath = filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`
evidence:
  provider: static
  fixture_path: %s
  rate_per_second: 100
results:
  backends: [csv, sqlite]
  csv_path: %s
  report_path: %s
database:
  sqlite:
    path: %s
logging:
  level: error
  format: json
`,
		fixturePath,
		filepath.Join(dir, "results", "decisions.csv"),
		filepath.Join(dir, "results", "report.csv"),
		filepath.Join(dir, "data", "adjudicator.db"),
	)
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))
	return dir, cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		cfgFile = ""
		reportOutput = ""
		inputColumn = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunAndReportCommands(t *testing.T) {
	dir, cfgPath := writeWorkspace(t)

	casesPath := filepath.Join(dir, "cases.txt")
	require.NoError(t, os.WriteFile(casesPath, []byte("# lote 1\n1.001\n\n404\n"), 0o644))

	out, err := execute(t, "run", casesPath, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Job ")
	assert.Contains(t, out, ": completed")
	assert.Contains(t, out, "Processed: 2 of 2 (1 ok, 1 failed)")
	assert.FileExists(t, filepath.Join(dir, "results", "report.csv"))

	other := filepath.Join(dir, "copy", "report.csv")
	out, err = execute(t, "report", "--config", cfgPath, "--output", other)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 cases to "+other)
	assert.FileExists(t, other)
}

func TestRunCommand_RejectsEmptyList(t *testing.T) {
	dir, cfgPath := writeWorkspace(t)

	casesPath := filepath.Join(dir, "cases.txt")
	require.NoError(t, os.WriteFile(casesPath, []byte("# nothing yet\n"), 0o644))

	_, err := execute(t, "run", casesPath, "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid case list")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "adjudicator dev\n", out)
}
