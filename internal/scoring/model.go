package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/mbd888/fraudshield/internal/features"
)

// modelDimensions is the width of the scoring feature vector. The order must
// match the training pipeline exactly: amount, proxy flag, 1h velocity,
// account age, device-IP mismatch, freight-forwarder flag, ship/bill mismatch.
const modelDimensions = 7

// LogisticModel is a binary classifier artifact stored as JSON by the
// training pipeline. Predict returns the probability of the positive
// (fraud) class.
type LogisticModel struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// LoadModel reads and validates a model artifact from disk.
func LoadModel(path string) (*LogisticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}
	var m LogisticModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact: %w", err)
	}
	if len(m.Coefficients) != modelDimensions {
		return nil, fmt.Errorf("model artifact has %d coefficients, want %d", len(m.Coefficients), modelDimensions)
	}
	return &m, nil
}

// Predict returns the positive-class probability for a feature vector.
func (m *LogisticModel) Predict(x []float64) (float64, error) {
	if len(x) != len(m.Coefficients) {
		return 0, fmt.Errorf("feature vector has %d dimensions, want %d", len(x), len(m.Coefficients))
	}
	z := m.Intercept
	for i, w := range m.Coefficients {
		z += w * x[i]
	}
	return 1.0 / (1.0 + math.Exp(-z)), nil
}

// featureVector builds the fixed-order numeric vector the model expects.
func featureVector(fs *features.FeatureSet) []float64 {
	return []float64{
		fs.Amount,
		boolToFloat(fs.IPIsProxy),
		float64(fs.TxnCount1h),
		float64(fs.AccountAgeDays),
		boolToFloat(fs.DeviceIPMismatch),
		boolToFloat(fs.ShippingIsFreightForwarder),
		boolToFloat(fs.ShipBillMismatch),
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
