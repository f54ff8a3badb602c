package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ExceededVehicle is a read-only projection of a parked vehicle that is
// over its stay limit, as returned by GET /tempo-excedido.
type ExceededVehicle struct {
	Plate     string  `json:"placa"`
	Owner     string  `json:"nome"`
	Stall     StallID `json:"vaga"`
	Block     *string `json:"bloco,omitempty"`
	Apartment *string `json:"apartamento,omitempty"`
	Exceeded  float64 `json:"tempo_excedido"`
}

// Location renders block and apartment the way the alert panel shows them.
func (v ExceededVehicle) Location() string {
	if v.Block == nil || *v.Block == "" {
		return "N/A"
	}
	loc := "Bloco " + *v.Block
	if v.Apartment != nil && *v.Apartment != "" {
		loc += " - Apto " + *v.Apartment
	}
	return loc
}

// ExceededVehiclesResponse is the body of GET /tempo-excedido.
type ExceededVehiclesResponse struct {
	Message  string            `json:"mensagem,omitempty"`
	Vehicles []ExceededVehicle `json:"veiculos_excedidos"`
}

// StallID accepts either a JSON number or a JSON string; the backend has
// emitted both for the "vaga" field.
type StallID string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StallID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = StallID(strings.TrimSpace(str))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("vaga: %w", err)
	}
	*s = StallID(num.String())
	return nil
}

// String returns the stall identifier.
func (s StallID) String() string {
	return string(s)
}
