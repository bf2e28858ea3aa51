package types

import (
	"encoding/json"
	"fmt"
)

// --- Vehicle Record Types ---

// Car is the vehicle reading exchanged between the producer, the broker and
// the document store. The bridge treats it as an opaque value: it is passed
// by value and never mutated.
type Car struct {
	ID      int64   `json:"carId" firestore:"carId"`
	Brand   string  `json:"brand" firestore:"brand"`
	Model   string  `json:"model" firestore:"model"`
	Year    int     `json:"year" firestore:"year"`
	Color   string  `json:"color" firestore:"color"`
	Mileage float64 `json:"mileage" firestore:"mileage"`
	Price   float64 `json:"price" firestore:"price"`
}

// CarBrand is a distinct manufacturer value produced by the store's
// distinct-brands query. It is only ever a query result.
type CarBrand struct {
	Brand string `json:"brand" firestore:"brand"`
}

// CarDecoder decodes a raw broker payload back into a Car. Used by
// downstream consumers and by integration tests to verify published payloads.
func CarDecoder(payload []byte) (*Car, error) {
	var car Car
	if err := json.Unmarshal(payload, &car); err != nil {
		return nil, fmt.Errorf("failed to unmarshal car payload: %w", err)
	}
	return &car, nil
}
