package http

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/models"
)

// candidatePool converts a percentile into an approximate rank.
const candidatePool = 1_200_000

// categoryRelief scales the closing ranks a reserved category is compared
// against.
var categoryRelief = map[string]float64{
	"general": 1,
	"ews":     1.2,
	"obc":     1.35,
	"obc-ncl": 1.35,
	"sc":      2.5,
	"st":      3,
}

const pwdRelief = 1.5

// catalog is the fixed set of colleges the stub predictor ranks.
var catalog = []models.College{
	{CollegeName: "NIT Trichy", CollegeType: "NIT", Branch: "Computer Science", Location: "Tiruchirappalli, Tamil Nadu", CutoffRank2023: 1800},
	{CollegeName: "NIT Warangal", CollegeType: "NIT", Branch: "Computer Science", Location: "Warangal, Telangana", CutoffRank2023: 2900},
	{CollegeName: "NIT Surathkal", CollegeType: "NIT", Branch: "Electronics", Location: "Mangaluru, Karnataka", CutoffRank2023: 6200},
	{CollegeName: "IIIT Hyderabad", CollegeType: "IIIT", Branch: "Computer Science", Location: "Hyderabad, Telangana", CutoffRank2023: 900},
	{CollegeName: "IIIT Allahabad", CollegeType: "IIIT", Branch: "Information Technology", Location: "Prayagraj, Uttar Pradesh", CutoffRank2023: 6800},
	{CollegeName: "NIT Rourkela", CollegeType: "NIT", Branch: "Mechanical", Location: "Rourkela, Odisha", CutoffRank2023: 14500},
	{CollegeName: "NIT Calicut", CollegeType: "NIT", Branch: "Civil", Location: "Kozhikode, Kerala", CutoffRank2023: 21000},
	{CollegeName: "DTU Delhi", CollegeType: "State", Branch: "Computer Science", Location: "New Delhi, Delhi", CutoffRank2023: 5400},
	{CollegeName: "IIIT Gwalior", CollegeType: "IIIT", Branch: "Computer Science", Location: "Gwalior, Madhya Pradesh", CutoffRank2023: 11800},
	{CollegeName: "NIT Jalandhar", CollegeType: "NIT", Branch: "Chemical", Location: "Jalandhar, Punjab", CutoffRank2023: 38000},
	{CollegeName: "PEC Chandigarh", CollegeType: "GFTI", Branch: "Electrical", Location: "Chandigarh", CutoffRank2023: 26000},
	{CollegeName: "NIT Silchar", CollegeType: "NIT", Branch: "Electronics", Location: "Silchar, Assam", CutoffRank2023: 52000},
}

// SubscriptionChecker reports whether a user may use the predictor.
type SubscriptionChecker interface {
	Subscribed(ctx context.Context, userID int64) bool
}

// PredictorHandler serves the /jeepedia/ endpoints. Both require a paid
// subscription and answer 403 otherwise.
type PredictorHandler struct {
	Subscriptions SubscriptionChecker
	Log           *zap.Logger
}

func (h *PredictorHandler) allowed(w http.ResponseWriter, r *http.Request) bool {
	if !h.Subscriptions.Subscribed(r.Context(), userID(r)) {
		writeMessage(w, http.StatusForbidden, "You need an active subscription to use the predictor")
		return false
	}
	return true
}

// Predict handles POST /jeepedia/llm_prediction/.
func (h *PredictorHandler) Predict(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r) {
		return
	}
	var req models.PredictionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rank, err := effectiveRank(req.Rank, req.Percentile)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	res := predict(rank, req.Category, strings.EqualFold(req.PwD, "Yes"))
	h.Log.Debug("prediction", zap.Int64("rank", rank), zap.Int("colleges", len(res.Predictions)))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": res})
}

func effectiveRank(rank, percentile string) (int64, error) {
	if rank = strings.TrimSpace(rank); rank != "" {
		n, err := strconv.ParseInt(rank, 10, 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("rank must be a positive whole number")
		}
		return n, nil
	}
	p, err := strconv.ParseFloat(strings.TrimSpace(percentile), 64)
	if err != nil || p < 0 || p > 100 {
		return 0, fmt.Errorf("either rank or a percentile between 0 and 100 is required")
	}
	return max(1, int64(math.Round((100-p)/100*candidatePool))), nil
}

// predict ranks the catalog for a candidate. Colleges whose closing rank is
// far out of reach are left out.
func predict(rank int64, category string, pwd bool) models.PredictionResult {
	relief, ok := categoryRelief[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		relief = 1
	}
	if pwd {
		relief *= pwdRelief
	}
	out := models.PredictionResult{Predictions: []models.College{}}
	for _, c := range catalog {
		ratio := float64(c.CutoffRank2023) * relief / float64(rank)
		if ratio < 0.5 {
			continue
		}
		c.ProbabilityPercentage = math.Round(math.Min(99, math.Max(5, ratio*60))*10) / 10
		switch {
		case ratio >= 1.25:
			c.SafetyLevel = models.SafetyLevelSafety
		case ratio >= 0.9:
			c.SafetyLevel = models.SafetyLevelModerate
		default:
			c.SafetyLevel = models.SafetyLevelAmbitious
		}
		c.Factors = []string{
			fmt.Sprintf("2023 closing rank %d", c.CutoffRank2023),
			fmt.Sprintf("category adjusted ratio %.2f", ratio),
		}
		out.Predictions = append(out.Predictions, c)
	}
	sort.SliceStable(out.Predictions, func(i, j int) bool {
		a, b := out.Predictions[i], out.Predictions[j]
		if a.ProbabilityPercentage != b.ProbabilityPercentage {
			return a.ProbabilityPercentage > b.ProbabilityPercentage
		}
		return a.CollegeName < b.CollegeName
	})
	out.Metadata.ParametersUsed.Rank = []byte(strconv.FormatInt(rank, 10))
	return out
}

// Compare handles POST /jeepedia/compare_predicted/.
func (h *PredictorHandler) Compare(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r) {
		return
	}
	var req models.CompareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.College1.CollegeName == "" || req.College2.CollegeName == "" {
		writeMessage(w, http.StatusBadRequest, "Two colleges are required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": compare(req.College1, req.College2)})
}

func compare(a, b models.College) models.Comparison {
	cmp := models.Comparison{
		College1Name: a.CollegeName,
		College2Name: b.CollegeName,
		Comparison: models.ComparisonPoints{
			fmt.Sprintf("%s is a %s institute in %s; %s is a %s institute in %s.",
				a.CollegeName, a.CollegeType, a.Location, b.CollegeName, b.CollegeType, b.Location),
			fmt.Sprintf("Branch: %s vs %s.", a.Branch, b.Branch),
			fmt.Sprintf("2023 closing rank: %d vs %d.", a.CutoffRank2023, b.CutoffRank2023),
			fmt.Sprintf("Admission chance: %.1f%% (%s) vs %.1f%% (%s).",
				a.ProbabilityPercentage, a.SafetyLevel, b.ProbabilityPercentage, b.SafetyLevel),
		},
		Recommendation: a.CollegeName,
	}
	if b.ProbabilityPercentage > a.ProbabilityPercentage {
		cmp.Recommendation = b.CollegeName
	}
	return cmp
}
