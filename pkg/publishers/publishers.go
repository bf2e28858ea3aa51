// Package publishers provides the broker-side implementations of the
// bridge's MessagePublisher contract. Two backends are available — Google
// Cloud Pub/Sub and Kafka — selected by deployment configuration; both
// publish car readings to the same fixed destination.
package publishers

import (
	"encoding/json"
	"fmt"

	"github.com/openfleet/carstream/pkg/types"
)

// DefaultTopicID is the fixed destination every car reading is published
// to, regardless of broker backend.
const DefaultTopicID = "myeventhub"

// encodeCar serializes a car reading for transport. Both backends carry the
// same JSON payload so downstream consumers are broker-agnostic.
func encodeCar(car types.Car) ([]byte, error) {
	data, err := json.Marshal(car)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal(car): %w", err)
	}
	return data, nil
}
