package requirements

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "citizenship-adjudicator/internal/common/errors"
	"citizenship-adjudicator/internal/common/logger"
	"citizenship-adjudicator/internal/models"
)

// ==========================
// Test helpers
// ==========================

type doc struct {
	valid bool
	text  string
	err   error
}

type fakeEvidence map[string]doc

func (f fakeEvidence) CheckDocument(_ context.Context, name string) (bool, string, error) {
	d, ok := f[name]
	if !ok {
		return false, "", nil
	}
	return d.valid, d.text, d.err
}

func date(s string) time.Time {
	t, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func allDocs() fakeEvidence {
	return fakeEvidence{
		models.DocPortugueseProof:      {valid: true},
		models.DocCriminalRecordBrazil: {valid: true},
		models.DocCriminalRecordOrigin: {valid: true},
	}
}

func ordinaryCase(opinion string) *models.Case {
	return &models.Case{
		ID:        "1",
		Type:      models.CaseTypeOrdinary,
		StartDate: date("01/06/2024"),
		BirthDate: datePtr("01/01/1990"),
		Opinion:   opinion,
		Fields:    map[string]string{},
	}
}

func newEvaluator(t *testing.T) *Evaluator {
	return NewEvaluator(nil, logger.NewTestLogger(t))
}

// ==========================
// Age
// ==========================

func TestAgeAt(t *testing.T) {
	tests := []struct {
		name  string
		birth string
		at    string
		want  int
	}{
		{"day before birthday", "02/06/2006", "01/06/2024", 17},
		{"exact anniversary", "01/06/2006", "01/06/2024", 18},
		{"day after birthday", "31/05/2006", "01/06/2024", 18},
		{"earlier month", "15/07/2006", "01/06/2024", 17},
		{"leap day birth", "29/02/2004", "28/02/2022", 17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgeAt(date(tt.birth), date(tt.at)))
		})
	}
}

func TestEvaluate_SeventeenYearOldIsNotCapable(t *testing.T) {
	c := ordinaryCase("Reside no Brasil desde 01/01/2010.")
	c.BirthDate = datePtr("02/06/2006")

	out, err := newEvaluator(t).Evaluate(context.Background(), c, allDocs())
	require.NoError(t, err)

	civil, ok := out.Result(models.RequirementCivilCapacity)
	require.True(t, ok)
	assert.False(t, civil.Satisfied)
	assert.Equal(t, "Art. 65, inciso I da Lei nº 13.445/2017", civil.Reason)
	require.NotNil(t, civil.Evidence)
	assert.Equal(t, 17.0, *civil.Evidence)
}

func TestEvaluate_MissingBirthDate(t *testing.T) {
	c := ordinaryCase("")
	c.BirthDate = nil

	_, err := newEvaluator(t).Evaluate(context.Background(), c, allDocs())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeExtractionFailed, apperrors.CodeOf(err))
}

// ==========================
// Residency parsing
// ==========================

func TestParseResidencyYears(t *testing.T) {
	start := date("01/06/2024")
	tests := []struct {
		name  string
		text  string
		want  float64
		found bool
	}{
		{"constatado desde", "Foi constatado que reside no Brasil desde 01/06/2019.", 5.0, true},
		{"reside desde", "O requerente reside no Brasil desde 01/06/2022", 2.0, true},
		{"prazo indeterminado", "Residência no país por prazo indeterminado desde 01/06/2020", 4.0, true},
		{"possuindo anos e meses", "possuindo, portanto, 3 (três) anos e 6 (seis) meses", 3.5, true},
		{"possuindo anos extenso", "possuindo, portanto, 4 (quatro) anos de residência", 4, true},
		{"possuindo anos", "possuindo portanto 2 anos", 2, true},
		{"totalizando ano e meses", "totalizando 1 (um) ano e 6 (seis) meses", 1.5, true},
		{"totalizando plural", "totalizando 3 (três) anos e 6 (seis) meses", 3.5, true},
		{"totalizando anos", "totalizando 6 (seis) anos", 6, true},
		{"possui anos", "possui 7 anos de residência", 7, true},
		{"bare anos", "conta com 9 anos de residencia", 9, true},
		{"nothing", "parecer sem informação de prazo", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ParseResidencyYears(tt.text, start)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.InDelta(t, tt.want, got, 0.01)
			}
		})
	}
}

func TestParseResidencyYears_PriorityOrder(t *testing.T) {
	text := "possuindo, portanto, 2 (dois) anos. Constatou-se que reside no Brasil desde 01/06/2014."
	got, found := ParseResidencyYears(text, date("01/06/2024"))
	require.True(t, found)
	assert.InDelta(t, 10.0, got, 0.01)
}

// ==========================
// Minimum residency
// ==========================

func TestEvaluate_Residency(t *testing.T) {
	tests := []struct {
		name      string
		opinion   string
		fields    map[string]string
		docs      fakeEvidence
		satisfied bool
		critical  bool
	}{
		{
			name:      "four years from opinion",
			opinion:   "possuindo, portanto, 4 (quatro) anos",
			satisfied: true,
		},
		{
			name:      "within tolerance",
			opinion:   "reside no Brasil desde 15/06/2020",
			satisfied: true,
		},
		{
			name:    "short of required term",
			opinion: "reside no Brasil desde 01/06/2022",
		},
		{
			name:      "reduction by brazilian spouse",
			opinion:   "reside no Brasil desde 01/01/2023",
			fields:    map[string]string{models.FieldBrazilianSpouse: "Sim"},
			docs:      fakeEvidence{models.DocMarriageCertificate: {valid: true}},
			satisfied: true,
		},
		{
			name:    "reduction declared without document",
			opinion: "reside no Brasil desde 01/01/2023",
			fields:  map[string]string{models.FieldTermReduction: "sim"},
		},
		{
			name:      "start date field",
			fields:    map[string]string{models.FieldResidencyStart: "01/01/2018"},
			satisfied: true,
		},
		{
			name:      "crnm text",
			docs:      fakeEvidence{models.DocCRNM: {valid: true, text: "residência por prazo indeterminado desde 10/10/2015"}},
			satisfied: true,
		},
		{
			name:      "residency proof text after failed crnm lookup",
			docs:      fakeEvidence{models.DocCRNM: {err: errors.New("timeout")}, models.DocResidencyProof: {valid: true, text: "totalizando 5 (cinco) anos"}},
			satisfied: true,
		},
		{
			name:     "no term anywhere",
			opinion:  "parecer favorável",
			critical: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ordinaryCase(tt.opinion)
			if tt.fields != nil {
				c.Fields = tt.fields
			}
			ev := allDocs()
			for k, v := range tt.docs {
				ev[k] = v
			}

			out, err := newEvaluator(t).Evaluate(context.Background(), c, ev)
			require.NoError(t, err)

			res, ok := out.Result(models.RequirementMinResidency)
			require.True(t, ok)
			assert.Equal(t, tt.satisfied, res.Satisfied, res.Detail)
			assert.Equal(t, tt.critical, res.CriticalAlert)
			assert.Equal(t, tt.critical, out.CriticalAlert())
			if !tt.satisfied {
				assert.Equal(t, "Art. 65, inciso II da Lei nº 13.445/2017", res.Reason)
			}
		})
	}
}

// ==========================
// Language and criminal record
// ==========================

func TestEvaluate_DocumentRequirements(t *testing.T) {
	c := ordinaryCase("possuindo, portanto, 5 anos")
	ev := fakeEvidence{
		models.DocPortugueseProof:      {valid: false},
		models.DocCriminalRecordBrazil: {valid: true},
		models.DocCriminalRecordOrigin: {err: errors.New("lookup failed")},
	}

	out, err := newEvaluator(t).Evaluate(context.Background(), c, ev)
	require.NoError(t, err)
	require.Len(t, out.Results, 4)

	unsatisfied := out.Unsatisfied()
	require.Len(t, unsatisfied, 2)
	assert.Equal(t, models.RequirementLanguageProficiency, unsatisfied[0].Code)
	assert.Equal(t, "Art. 65, inciso III da Lei nº 13.445/2017", unsatisfied[0].Reason)
	assert.Equal(t, models.RequirementCriminalRecord, unsatisfied[1].Code)
	assert.Equal(t, "Art. 65, inciso IV da Lei nº 13.445/2017", unsatisfied[1].Reason)
}

func TestEvaluate_AllSatisfied(t *testing.T) {
	out, err := newEvaluator(t).Evaluate(context.Background(), ordinaryCase("possuindo, portanto, 6 anos"), allDocs())
	require.NoError(t, err)
	assert.Empty(t, out.Unsatisfied())
	for i, code := range models.Requirements {
		assert.Equal(t, code, out.Results[i].Code)
	}
}

// ==========================
// Provisional policy
// ==========================

func TestEvaluate_Provisional(t *testing.T) {
	base := func() *models.Case {
		return &models.Case{
			ID:        "2",
			Type:      models.CaseTypeProvisional,
			StartDate: date("01/06/2024"),
			BirthDate: datePtr("10/10/2012"),
		}
	}

	t.Run("flagged narrative satisfies residency and waives documents", func(t *testing.T) {
		c := base()
		c.Flags = map[string]bool{models.FlagResidencyBeforeThreshold: true}

		out, err := newEvaluator(t).Evaluate(context.Background(), c, fakeEvidence{})
		require.NoError(t, err)
		assert.Empty(t, out.Unsatisfied())

		lang, _ := out.Result(models.RequirementLanguageProficiency)
		assert.True(t, lang.Waived)
		crim, _ := out.Result(models.RequirementCriminalRecord)
		assert.True(t, crim.Waived)
	})

	t.Run("missing statement raises critical alert", func(t *testing.T) {
		out, err := newEvaluator(t).Evaluate(context.Background(), base(), fakeEvidence{})
		require.NoError(t, err)
		assert.True(t, out.CriticalAlert())
	})

	t.Run("age-based routes without a narrative statement", func(t *testing.T) {
		tests := []struct {
			name          string
			birthDate     string
			residentSince string
			wantSatisfied bool
			wantDetail    string
		}{
			{
				name:          "entered before ten per residency start",
				birthDate:     "10/10/2012",
				residentSince: "01/02/2015",
				wantSatisfied: true,
				wantDetail:    "entered at age 2 per residency_start_date",
			},
			{
				name:          "applicant still under ten",
				birthDate:     "01/01/2018",
				wantSatisfied: true,
				wantDetail:    "applicant aged 6 at case start",
			},
			{
				name:          "late entry falls back to current age",
				birthDate:     "01/01/2018",
				residentSince: "01/01/2030",
				wantSatisfied: true,
				wantDetail:    "applicant aged 6 at case start",
			},
			{
				name:          "entered at eleven",
				birthDate:     "10/10/2008",
				residentSince: "01/11/2019",
			},
			{
				name:          "unreadable residency start",
				birthDate:     "10/10/2012",
				residentSince: "fevereiro de 2015",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c := base()
				c.BirthDate = datePtr(tt.birthDate)
				if tt.residentSince != "" {
					c.Fields = map[string]string{models.FieldResidencyStart: tt.residentSince}
				}

				out, err := newEvaluator(t).Evaluate(context.Background(), c, fakeEvidence{})
				require.NoError(t, err)

				res, ok := out.Result(models.RequirementMinResidency)
				require.True(t, ok)
				assert.Equal(t, tt.wantSatisfied, res.Satisfied)
				assert.Equal(t, !tt.wantSatisfied, res.CriticalAlert)
				if tt.wantDetail != "" {
					assert.Equal(t, tt.wantDetail, res.Detail)
				}
			})
		}
	})

	t.Run("adult applicant fails capacity", func(t *testing.T) {
		c := base()
		c.BirthDate = datePtr("01/01/2000")
		c.Flags = map[string]bool{models.FlagResidencyBeforeThreshold: true}

		out, err := newEvaluator(t).Evaluate(context.Background(), c, fakeEvidence{})
		require.NoError(t, err)
		civil, _ := out.Result(models.RequirementCivilCapacity)
		assert.False(t, civil.Satisfied)
	})
}
