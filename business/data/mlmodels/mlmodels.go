// Package mlmodels provides the record keeping and feature contract for the
// trained segment-time regression model. The model artifact itself lives with
// the model runner; this package owns the metadata row that identifies which
// artifact is current and the exact feature vector layout the artifact was
// trained against.
package mlmodels

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// FeatureNames lists the model's input features in the order the trained
// artifact expects them. Changing the order or contents is a breaking change
// against the deployed artifact.
var FeatureNames = []string{
	"koridor",
	"day",
	"hour",
	"gpsheading",
	"gpsspeed",
	"categorized_stop",
	"next_stop_dist",
	"latitude",
	"longitude",
}

// CorridorFeatureIndex maps corridor identifiers to the numeric encoding used
// during training. Part of the model contract.
var CorridorFeatureIndex = map[string]int{
	"4B":  0,
	"9H":  1,
	"D21": 2,
}

// MLModel stores the definition of a trained segment-time model
type MLModel struct {
	MLModelId         int64      `db:"ml_model_id" json:"ml_model_id"`
	Version           int        `db:"version" json:"version"`
	ModelName         string     `db:"model_name" json:"model_name"`
	TrainedTimestamp  *time.Time `db:"trained_timestamp" json:"trained_timestamp"`
	FeatureCount      int        `db:"feature_count" json:"feature_count"`
	RMSE              *float64   `db:"rmse" json:"rmse"`
	CurrentlyRelevant bool       `db:"currently_relevant" json:"currently_relevant"`
}

// GetCurrentMLModel loads the currently relevant model with modelName
func GetCurrentMLModel(db *sqlx.DB, modelName string) (*MLModel, error) {
	query := "select * from ml_model " +
		"where model_name = $1 and currently_relevant order by version desc limit 1"
	var model MLModel
	err := db.Get(&model, query, modelName)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve MLModel %s. error: %w", modelName, err)
	}
	if model.TrainedTimestamp == nil {
		return nil, fmt.Errorf("MLModel %s version %d has not been trained", modelName, model.Version)
	}
	if model.FeatureCount != len(FeatureNames) {
		return nil, fmt.Errorf("MLModel %s version %d was trained on %d features, this build expects %d",
			modelName, model.Version, model.FeatureCount, len(FeatureNames))
	}
	return &model, nil
}

// RecordNewMLModel inserts a new MLModel record
func RecordNewMLModel(db *sqlx.DB, model *MLModel) (*MLModel, error) {
	statementString := "insert into ml_model " +
		"(version, " +
		"model_name, " +
		"trained_timestamp, " +
		"feature_count, " +
		"rmse, " +
		"currently_relevant) " +
		"values (" +
		":version, " +
		":model_name, " +
		":trained_timestamp, " +
		":feature_count, " +
		":rmse, " +
		":currently_relevant)"
	statementString = db.Rebind(statementString)
	_, err := db.NamedExec(statementString, model)
	if err != nil {
		return nil, fmt.Errorf("unable to record MLModel %s. error: %w", model.ModelName, err)
	}
	query := db.Rebind("select ml_model_id from ml_model " +
		"where model_name = ? and version = ? limit 1")
	err = db.Get(&model.MLModelId, query, model.ModelName, model.Version)
	if err != nil {
		return nil, err
	}
	return model, nil
}
