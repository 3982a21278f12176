package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TransJakartaLabs/etacast/business/data/mlmodels"
	"github.com/nats-io/nats.go"
)

// inferenceSubject is the nats subject the model runner services
const inferenceSubject = "inference-request"

// inferenceRequest holds the parameters and feature rows for the model
// runner to service
type inferenceRequest struct {
	MLModelId int64       `json:"ml_model_id"`
	Version   int         `json:"version"`
	Features  [][]float64 `json:"features"`
	Timestamp int64       `json:"timestamp"`
}

// inferenceResponse holds the per-row predictions sent back from the model
// runner
type inferenceResponse struct {
	MLModelId   int64     `json:"ml_model_id"`
	Version     int       `json:"version"`
	Predictions []float64 `json:"predictions"`
	Error       string    `json:"error"`
	Timestamp   int64     `json:"timestamp"`
}

// natsPredictor implements pipeline.Predictor over a nats request/reply
// exchange with the model runner. nats connections are safe for concurrent
// use, so per-vehicle tasks share one predictor.
type natsPredictor struct {
	conn    *nats.Conn
	model   *mlmodels.MLModel
	timeout time.Duration
}

// makeNatsPredictor builds a natsPredictor for the trained model
func makeNatsPredictor(conn *nats.Conn, model *mlmodels.MLModel, timeout time.Duration) *natsPredictor {
	return &natsPredictor{conn: conn, model: model, timeout: timeout}
}

// PredictSegmentSeconds sends the feature rows to the model runner in a
// single request and returns the per-row segment times
func (p *natsPredictor) PredictSegmentSeconds(ctx context.Context, features [][]float64) ([]float64, error) {
	payload, err := json.Marshal(inferenceRequest{
		MLModelId: p.model.MLModelId,
		Version:   p.model.Version,
		Features:  features,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return nil, err
	}

	requestCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		requestCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msg, err := p.conn.RequestWithContext(requestCtx, inferenceSubject, payload)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}

	var response inferenceResponse
	if err = json.Unmarshal(msg.Data, &response); err != nil {
		return nil, fmt.Errorf("error parsing inference response: %w", err)
	}
	if len(response.Error) > 0 {
		return nil, fmt.Errorf("model runner error: %s", response.Error)
	}
	if len(response.Predictions) != len(features) {
		return nil, fmt.Errorf("model runner returned %d predictions for %d rows",
			len(response.Predictions), len(features))
	}
	return response.Predictions, nil
}
