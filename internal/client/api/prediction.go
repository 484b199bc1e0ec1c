package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/jeepedia/jeepedia/internal/models"
)

type predictionResponse struct {
	Data *models.PredictionResult `json:"data"`
}

func (r *predictionResponse) Validate() error {
	if r.Data == nil {
		return errors.New("missing data")
	}
	return nil
}

type comparisonResponse struct {
	Data *models.Comparison `json:"data"`
}

func (r *comparisonResponse) Validate() error {
	if r.Data == nil {
		return errors.New("missing data")
	}
	return nil
}

// Predict asks the predictor for ranked colleges. A 403 is reported as
// apperror.ErrSubscriptionRequired.
func (c *Client) Predict(ctx context.Context, req models.PredictionRequest) (*models.PredictionResult, error) {
	var resp predictionResponse
	opts := RequestOptions{JSON: req, Gated: true}
	if err := c.Do(ctx, http.MethodPost, "/jeepedia/llm_prediction/", opts, &resp); err != nil {
		return nil, err
	}
	if resp.Data.Predictions == nil {
		resp.Data.Predictions = []models.College{}
	}
	return resp.Data, nil
}

// Compare asks for a side-by-side comparison of two predicted colleges.
func (c *Client) Compare(ctx context.Context, a, b models.College) (*models.Comparison, error) {
	var resp comparisonResponse
	opts := RequestOptions{JSON: models.CompareRequest{College1: a, College2: b}, Gated: true}
	if err := c.Do(ctx, http.MethodPost, "/jeepedia/compare_predicted/", opts, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
