package predictor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeepedia/jeepedia/internal/apperror"
	"github.com/jeepedia/jeepedia/internal/models"
)

type fakeAPI struct {
	requests []models.PredictionRequest
	result   *models.PredictionResult
	err      error
	compared [][2]string
	cmp      *models.Comparison
	cmpErr   error

	// When set, calls announce themselves on started and wait for release.
	started chan struct{}
	release chan struct{}
}

func (f *fakeAPI) wait() {
	if f.release == nil {
		return
	}
	f.started <- struct{}{}
	<-f.release
}

func (f *fakeAPI) Predict(_ context.Context, req models.PredictionRequest) (*models.PredictionResult, error) {
	f.requests = append(f.requests, req)
	f.wait()
	return f.result, f.err
}

func (f *fakeAPI) Compare(_ context.Context, a, b models.College) (*models.Comparison, error) {
	f.compared = append(f.compared, [2]string{a.CollegeName, b.CollegeName})
	f.wait()
	return f.cmp, f.cmpErr
}

type fakeSession struct {
	authed   bool
	redirect string
}

func (s *fakeSession) Authenticated() bool { return s.authed }

func (s *fakeSession) SetRedirect(_ context.Context, path string) error {
	s.redirect = path
	return nil
}

func colleges() []models.College {
	return []models.College{
		{CollegeName: "NIT Trichy", CollegeType: "Government", SafetyLevel: models.SafetyLevelModerate},
		{CollegeName: "IIIT Delhi", CollegeType: "Government", SafetyLevel: models.SafetyLevelAmbitious},
		{CollegeName: "VIT Vellore", CollegeType: "Private", SafetyLevel: models.SafetyLevelSafety},
		{CollegeName: "NIT Warangal", CollegeType: "Government", SafetyLevel: models.SafetyLevelSafety},
	}
}

func resultWithRank(rank string) *models.PredictionResult {
	res := &models.PredictionResult{Predictions: colleges()}
	if rank != "" {
		res.Metadata.ParametersUsed.Rank = json.RawMessage(rank)
	}
	return res
}

func toDetails(t *testing.T, f *Form) {
	t.Helper()
	f.SetScores(Scores{Rank: "10345"})
	require.NoError(t, f.Next())
	f.SetDetails(Details{Name: "Ravi", Gender: "Male", State: "Delhi", Category: "General"})
}

func TestOpen_AnonymousStoresRedirect(t *testing.T) {
	sess := &fakeSession{}
	f, err := Open(context.Background(), sess, &fakeAPI{}, nil)
	require.ErrorIs(t, err, apperror.ErrUnauthenticated)
	assert.Nil(t, f)
	assert.Equal(t, "/jee-predictor", sess.redirect)

	sess.authed = true
	f, err = Open(context.Background(), sess, &fakeAPI{}, nil)
	require.NoError(t, err)
	assert.Equal(t, StepScores, f.Step())
}

func TestNext_ScoresGate(t *testing.T) {
	cases := []struct {
		name   string
		scores Scores
		ok     bool
		field  string
	}{
		{"empty", Scores{}, false, "rank"},
		{"rank only", Scores{Rank: "10345"}, true, ""},
		{"percentile only", Scores{Percentile: "98.7"}, true, ""},
		{"percentile too high", Scores{Percentile: "100.5"}, false, "percentile"},
		{"percentile negative", Scores{Percentile: "-1"}, false, "percentile"},
		{"percentile not a number", Scores{Percentile: "abc"}, false, "percentile"},
		{"percentile boundary", Scores{Percentile: "100"}, true, ""},
		{"percentile NaN", Scores{Percentile: "NaN"}, false, "percentile"},
		{"percentile Inf", Scores{Percentile: "Inf"}, false, "percentile"},
		{"percentile -Inf", Scores{Percentile: "-Inf"}, false, "percentile"},
		{"rank not a number", Scores{Rank: "ten"}, false, "rank"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := New(&fakeAPI{}, nil)
			f.SetScores(tc.scores)
			err := f.Next()
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, StepDetails, f.Step())
				return
			}
			require.ErrorIs(t, err, apperror.ErrValidation)
			assert.Contains(t, apperror.FieldErrors(err), tc.field)
			assert.Equal(t, StepScores, f.Step())
		})
	}
}

func TestNext_DetailsRequiresAllFields(t *testing.T) {
	f := New(&fakeAPI{}, nil)
	f.SetScores(Scores{Rank: "5"})
	require.NoError(t, f.Next())

	f.SetDetails(Details{Name: "Ravi"})
	err := f.Next()
	require.ErrorIs(t, err, apperror.ErrValidation)
	fields := apperror.FieldErrors(err)
	assert.Contains(t, fields, "gender")
	assert.Contains(t, fields, "state")
	assert.Contains(t, fields, "category")
	assert.NotContains(t, fields, "name")
	assert.Equal(t, StepDetails, f.Step())
}

func TestSubmit_RankScenario(t *testing.T) {
	api := &fakeAPI{result: resultWithRank(`10345`)}
	f := New(api, nil)
	toDetails(t, f)

	require.NoError(t, f.Submit(context.Background()))
	require.Len(t, api.requests, 1)
	assert.Equal(t, models.PredictionRequest{
		Rank: "10345", State: "Delhi", Category: "General", PwD: "No", Gender: "Male",
	}, api.requests[0])

	body, err := json.Marshal(api.requests[0])
	require.NoError(t, err)
	assert.NotContains(t, string(body), "percentile")

	assert.Equal(t, StepResults, f.Step())
	assert.Len(t, f.Results(), 4)
	assert.Equal(t, "10345", f.Scores().Rank)
}

func TestSubmit_AdoptsServerRank(t *testing.T) {
	api := &fakeAPI{result: resultWithRank(`"9876"`)}
	f := New(api, nil)
	f.SetScores(Scores{Percentile: "99.1"})
	require.NoError(t, f.Next())
	f.SetDetails(Details{Name: "A", Gender: "Female", State: "Goa", Category: "OBC", PwD: true})

	require.NoError(t, f.Submit(context.Background()))
	assert.Equal(t, "Yes", api.requests[0].PwD)
	assert.Empty(t, api.requests[0].Rank)
	assert.Equal(t, "9876", f.Scores().Rank)
}

func TestSubmit_SubscriptionRequiredStaysOnDetails(t *testing.T) {
	api := &fakeAPI{err: apperror.SubscriptionRequired()}
	f := New(api, nil)
	toDetails(t, f)

	err := f.Submit(context.Background())
	require.ErrorIs(t, err, apperror.ErrSubscriptionRequired)
	assert.Equal(t, StepDetails, f.Step())
	assert.Empty(t, f.Results())
	assert.Len(t, api.requests, 1)
}

func TestSubmit_OnlyFromDetails(t *testing.T) {
	api := &fakeAPI{}
	f := New(api, nil)
	require.ErrorIs(t, f.Submit(context.Background()), apperror.ErrValidation)
	assert.Empty(t, api.requests)
}

func TestFilterAndStats(t *testing.T) {
	f := New(&fakeAPI{result: resultWithRank("")}, nil)
	toDetails(t, f)
	require.NoError(t, f.Submit(context.Background()))

	assert.Equal(t, Stats{Safety: 2, Moderate: 1, Ambitious: 1}, f.Stats())
	assert.Len(t, f.Filtered(), 4)

	f.SetFilter(Filter{CollegeType: "government", SafetyLevel: FilterAll})
	assert.Len(t, f.Filtered(), 3)

	f.SetFilter(Filter{CollegeType: FilterAll, SafetyLevel: models.SafetyLevelSafety, Search: "nit"})
	got := f.Filtered()
	require.Len(t, got, 1)
	assert.Equal(t, "NIT Warangal", got[0].CollegeName)

	assert.Equal(t, Stats{Safety: 2, Moderate: 1, Ambitious: 1}, f.Stats())
}

func TestToggle_AtMostTwo(t *testing.T) {
	f := New(&fakeAPI{result: resultWithRank("")}, nil)
	toDetails(t, f)
	require.NoError(t, f.Submit(context.Background()))

	sel, err := f.Toggle("NIT Trichy")
	require.NoError(t, err)
	assert.True(t, sel)
	sel, _ = f.Toggle("IIIT Delhi")
	assert.True(t, sel)
	sel, _ = f.Toggle("VIT Vellore")
	assert.False(t, sel)
	assert.Len(t, f.Selected(), 2)

	sel, _ = f.Toggle("NIT Trichy")
	assert.False(t, sel)
	assert.Len(t, f.Selected(), 1)

	_, err = f.Toggle("Unknown")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCompare_Scenario(t *testing.T) {
	api := &fakeAPI{
		result: resultWithRank(""),
		cmp: &models.Comparison{
			College1Name:   "NIT Trichy",
			College2Name:   "IIIT Delhi",
			Comparison:     models.ComparisonPoints{"Placements are similar"},
			Recommendation: "NIT Trichy",
		},
	}
	f := New(api, nil)
	toDetails(t, f)
	require.NoError(t, f.Submit(context.Background()))

	_, err := f.Toggle("NIT Trichy")
	require.NoError(t, err)
	_, err = f.Compare(context.Background())
	require.ErrorIs(t, err, apperror.ErrValidation)
	assert.Empty(t, api.compared)

	_, err = f.Toggle("IIIT Delhi")
	require.NoError(t, err)
	cmp, err := f.Compare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"NIT Trichy", "IIIT Delhi"}}, api.compared)
	assert.Equal(t, "NIT Trichy", cmp.Recommendation)
	assert.NotNil(t, f.Comparison())

	f.CloseComparison()
	assert.Nil(t, f.Comparison())
	assert.Empty(t, f.Selected())
}

func TestBack_ToScoresClearsResults(t *testing.T) {
	f := New(&fakeAPI{result: resultWithRank(""), cmp: &models.Comparison{}}, nil)
	toDetails(t, f)
	require.NoError(t, f.Submit(context.Background()))
	_, _ = f.Toggle("NIT Trichy")
	f.SetFilter(Filter{Search: "nit"})

	f.Back()
	assert.Equal(t, StepDetails, f.Step())
	assert.Len(t, f.Results(), 4)

	f.Back()
	assert.Equal(t, StepScores, f.Step())
	assert.Empty(t, f.Results())
	assert.Empty(t, f.Selected())
	assert.Equal(t, Filter{}, f.Filter())

	f.Back()
	assert.Equal(t, StepScores, f.Step())
}

func TestSubmit_LateResponseAfterBackIsDropped(t *testing.T) {
	api := &fakeAPI{
		result:  resultWithRank(""),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := New(api, nil)
	toDetails(t, f)

	done := make(chan error, 1)
	go func() { done <- f.Submit(context.Background()) }()
	<-api.started

	f.Back()
	require.Equal(t, StepScores, f.Step())
	close(api.release)

	require.ErrorIs(t, <-done, apperror.ErrCancelled)
	assert.Equal(t, StepScores, f.Step())
	assert.Empty(t, f.Results())

	api.release, api.started = nil, nil
	require.NoError(t, f.Next())
	require.NoError(t, f.Submit(context.Background()))
	assert.Equal(t, StepResults, f.Step())
	assert.Len(t, f.Results(), 4)
}

func TestCompare_LateResponseAfterCloseIsDropped(t *testing.T) {
	api := &fakeAPI{result: resultWithRank(""), cmp: &models.Comparison{Recommendation: "NIT Trichy"}}
	f := New(api, nil)
	toDetails(t, f)
	require.NoError(t, f.Submit(context.Background()))
	_, _ = f.Toggle("NIT Trichy")
	_, _ = f.Toggle("IIIT Delhi")

	api.started = make(chan struct{})
	api.release = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := f.Compare(context.Background())
		done <- err
	}()
	<-api.started

	f.CloseComparison()
	close(api.release)

	require.ErrorIs(t, <-done, apperror.ErrCancelled)
	assert.Nil(t, f.Comparison())
	assert.Empty(t, f.Selected())
}
