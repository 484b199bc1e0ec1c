// Package predictor implements the three step rank predictor: scores, then
// personal details, then the ranked colleges with filtering and a two
// college comparison.
package predictor

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/apperror"
	"github.com/jeepedia/jeepedia/internal/models"
	"github.com/jeepedia/jeepedia/internal/validation"
)

// Path is where the predictor lives; it is stored as the redirect target
// when an anonymous user opens it.
const Path = "/jee-predictor"

// MaxSelected is how many colleges can be compared at once.
const MaxSelected = 2

// FilterAll matches every value.
const FilterAll = "all"

// Step is a page of the form.
type Step int

const (
	StepScores Step = iota + 1
	StepDetails
	StepResults
)

// Scores is step one. At least one of the fields is required.
type Scores struct {
	Rank       string
	Percentile string
}

// Details is step two.
type Details struct {
	Name     string `validate:"required"`
	Gender   string `validate:"required"`
	State    string `validate:"required"`
	Category string `validate:"required"`
	PwD      bool
}

// Filter narrows the displayed results. Empty fields mean FilterAll.
type Filter struct {
	CollegeType string
	SafetyLevel string
	Search      string
}

// Stats counts results per safety level.
type Stats struct {
	Safety    int
	Moderate  int
	Ambitious int
}

// API is the prediction part of the request client.
type API interface {
	Predict(ctx context.Context, req models.PredictionRequest) (*models.PredictionResult, error)
	Compare(ctx context.Context, a, b models.College) (*models.Comparison, error)
}

// Session is what the predictor needs from the session provider.
type Session interface {
	Authenticated() bool
	SetRedirect(ctx context.Context, path string) error
}

// Form holds the predictor state for one visit.
type Form struct {
	api API
	log *zap.Logger

	mu         sync.Mutex
	step       Step
	scores     Scores
	details    Details
	results    []models.College
	filter     Filter
	selected   []models.College
	comparison *models.Comparison
	submitting bool
	comparing  bool
	// predictGen and compareGen advance whenever the state a pending
	// response would land in is discarded.
	predictGen uint64
	compareGen uint64
}

// Open starts the predictor. Anonymous users get ErrUnauthenticated and the
// predictor path is remembered for after login.
func Open(ctx context.Context, sess Session, api API, log *zap.Logger) (*Form, error) {
	if !sess.Authenticated() {
		if err := sess.SetRedirect(ctx, Path); err != nil {
			return nil, err
		}
		return nil, apperror.Unauthenticated()
	}
	return New(api, log), nil
}

// New returns a form on the first step. Details.Category defaults to
// "General".
func New(api API, log *zap.Logger) *Form {
	if log == nil {
		log = zap.NewNop()
	}
	return &Form{
		api:     api,
		log:     log,
		step:    StepScores,
		details: Details{Category: "General"},
	}
}

// Step returns the current step.
func (f *Form) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// SetScores replaces the step one inputs.
func (f *Form) SetScores(s Scores) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores = Scores{Rank: strings.TrimSpace(s.Rank), Percentile: strings.TrimSpace(s.Percentile)}
}

// Scores returns the step one inputs. After a prediction Rank holds the
// rank the server used.
func (f *Form) Scores() Scores {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scores
}

// SetDetails replaces the step two inputs.
func (f *Form) SetDetails(d Details) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details = d
}

// Details returns the step two inputs.
func (f *Form) Details() Details {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.details
}

// Next validates the current step. From the scores step it moves to the
// details step; results are only reached through Submit.
func (f *Form) Next() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.step {
	case StepScores:
		if err := validateScores(f.scores); err != nil {
			return err
		}
		f.step = StepDetails
		return nil
	case StepDetails:
		return validation.Struct(f.details)
	default:
		return nil
	}
}

// Back returns to the previous step. Returning to the scores step drops the
// results, filter, selection and comparison.
func (f *Form) Back() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step == StepScores {
		return
	}
	f.step--
	if f.step == StepScores {
		f.results = nil
		f.filter = Filter{}
		f.selected = nil
		f.comparison = nil
		f.predictGen++
		f.compareGen++
	}
}

// Submit sends one prediction request from the details step. On success the
// form moves to the results step. On apperror.ErrSubscriptionRequired it
// stays on the details step so the caller can show the subscription page.
// If Back returns to the scores step first, the response is dropped and
// Submit fails with apperror.ErrCancelled.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.step != StepDetails {
		f.mu.Unlock()
		return apperror.Invalid("step", "predictions are requested from the details step")
	}
	if err := validateScores(f.scores); err != nil {
		f.mu.Unlock()
		return err
	}
	if err := validation.Struct(f.details); err != nil {
		f.mu.Unlock()
		return err
	}
	if f.submitting {
		f.mu.Unlock()
		return apperror.Busy("prediction")
	}
	f.submitting = true
	gen := f.predictGen
	req := buildRequest(f.scores, f.details)
	f.mu.Unlock()

	res, err := f.api.Predict(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if gen != f.predictGen {
		f.log.Debug("discarding stale prediction")
		return apperror.Cancelled("prediction")
	}
	if err != nil {
		f.log.Debug("prediction failed", zap.Error(err))
		return err
	}
	f.results = res.Predictions
	if rank := res.Metadata.UsedRank(); rank != "" {
		f.scores.Rank = rank
	}
	f.filter = Filter{}
	f.selected = nil
	f.comparison = nil
	f.step = StepResults
	return nil
}

func buildRequest(s Scores, d Details) models.PredictionRequest {
	pwd := "No"
	if d.PwD {
		pwd = "Yes"
	}
	return models.PredictionRequest{
		Rank:       s.Rank,
		Percentile: s.Percentile,
		State:      d.State,
		Category:   d.Category,
		PwD:        pwd,
		Gender:     d.Gender,
	}
}

func validateScores(s Scores) error {
	if s.Rank == "" && s.Percentile == "" {
		return apperror.Invalid("rank", "Please enter either Rank or Percentile")
	}
	fields := map[string]string{}
	if s.Rank != "" {
		if n, err := strconv.ParseInt(s.Rank, 10, 64); err != nil || n <= 0 {
			fields["rank"] = "Rank must be a positive whole number"
		}
	}
	if s.Percentile != "" {
		if p, err := strconv.ParseFloat(s.Percentile, 64); err != nil || !(p >= 0 && p <= 100) {
			fields["percentile"] = "Percentile must be between 0 and 100"
		}
	}
	if len(fields) > 0 {
		return apperror.ValidationFailed(fields)
	}
	return nil
}

// Results returns every predicted college in server order.
func (f *Form) Results() []models.College {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.College(nil), f.results...)
}

// SetFilter replaces the display filter.
func (f *Form) SetFilter(flt Filter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = flt
}

// Filter returns the display filter.
func (f *Form) Filter() Filter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter
}

// Filtered returns the results matching the filter. College type compares
// case-insensitively, safety level exactly, and the search is a
// case-insensitive substring of the college name.
func (f *Form) Filtered() []models.College {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.College, 0, len(f.results))
	for _, c := range f.results {
		if f.filter.matches(c) {
			out = append(out, c)
		}
	}
	return out
}

func (flt Filter) matches(c models.College) bool {
	if t := flt.CollegeType; t != "" && t != FilterAll && !strings.EqualFold(c.CollegeType, t) {
		return false
	}
	if s := flt.SafetyLevel; s != "" && s != FilterAll && c.SafetyLevel != s {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(flt.Search))
	return q == "" || strings.Contains(strings.ToLower(c.CollegeName), q)
}

// Stats counts all results, ignoring the filter.
func (f *Form) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s Stats
	for _, c := range f.results {
		switch c.SafetyLevel {
		case models.SafetyLevelSafety:
			s.Safety++
		case models.SafetyLevelModerate:
			s.Moderate++
		case models.SafetyLevelAmbitious:
			s.Ambitious++
		}
	}
	return s
}

// Toggle selects or deselects a college by name. A third selection is
// ignored. It reports whether the college is selected afterwards.
func (f *Form) Toggle(collegeName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.selected {
		if c.CollegeName == collegeName {
			f.selected = append(f.selected[:i:i], f.selected[i+1:]...)
			return false, nil
		}
	}
	var found *models.College
	for i := range f.results {
		if f.results[i].CollegeName == collegeName {
			found = &f.results[i]
			break
		}
	}
	if found == nil {
		return false, apperror.NotFound("college", collegeName)
	}
	if len(f.selected) >= MaxSelected {
		return false, nil
	}
	f.selected = append(f.selected, *found)
	return true, nil
}

// Selected returns the selected colleges in selection order.
func (f *Form) Selected() []models.College {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.College(nil), f.selected...)
}

// Compare requests a comparison of the two selected colleges. A response
// arriving after CloseComparison or Back is dropped.
func (f *Form) Compare(ctx context.Context) (*models.Comparison, error) {
	f.mu.Lock()
	if len(f.selected) != MaxSelected {
		f.mu.Unlock()
		return nil, apperror.Invalid("selection", "Select exactly two colleges to compare")
	}
	if f.comparing {
		f.mu.Unlock()
		return nil, apperror.Busy("comparison")
	}
	f.comparing = true
	gen := f.compareGen
	a, b := f.selected[0], f.selected[1]
	f.mu.Unlock()

	cmp, err := f.api.Compare(ctx, a, b)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.comparing = false
	if gen != f.compareGen {
		f.log.Debug("discarding stale comparison")
		return nil, apperror.Cancelled("comparison")
	}
	if err != nil {
		return nil, err
	}
	f.comparison = cmp
	return cmp, nil
}

// Comparison returns the open comparison overlay, or nil.
func (f *Form) Comparison() *models.Comparison {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comparison
}

// CloseComparison closes the overlay and clears the selection.
func (f *Form) CloseComparison() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comparison = nil
	f.selected = nil
	f.compareGen++
}
