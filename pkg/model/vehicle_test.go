package model

import (
	"encoding/json"
	"testing"
)

func TestStallID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  StallID
	}{
		{"number", `12`, "12"},
		{"string", `"A-3"`, "A-3"},
		{"padded string", `" 7 "`, "7"},
		{"null", `null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s StallID
			if err := json.Unmarshal([]byte(tt.input), &s); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.input, err)
			}
			if s != tt.want {
				t.Errorf("StallID = %q, want %q", s, tt.want)
			}
		})
	}
}

func TestStallID_UnmarshalJSON_Invalid(t *testing.T) {
	var s StallID
	if err := json.Unmarshal([]byte(`{"n":1}`), &s); err == nil {
		t.Error("expected error for object value")
	}
}

func TestExceededVehiclesResponse_Decode(t *testing.T) {
	body := `{
		"mensagem": "Veículos com tempo excedido listados com sucesso",
		"excedidos": 2,
		"veiculos_excedidos": [
			{"placa": "ABC1D23", "nome": "Maria", "vaga": 4, "tempo_excedido": 125.5, "bloco": "B", "apartamento": "101"},
			{"placa": "XYZ9876", "nome": "João", "vaga": "7", "tempo_excedido": 3, "bloco": null, "apartamento": null}
		]
	}`
	var resp ExceededVehiclesResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(resp.Vehicles) != 2 {
		t.Fatalf("len(Vehicles) = %d, want 2", len(resp.Vehicles))
	}
	first := resp.Vehicles[0]
	if first.Stall != "4" || first.Exceeded != 125.5 {
		t.Errorf("first = %+v", first)
	}
	if got := first.Location(); got != "Bloco B - Apto 101" {
		t.Errorf("Location() = %q", got)
	}
	if got := resp.Vehicles[1].Location(); got != "N/A" {
		t.Errorf("Location() = %q, want N/A", got)
	}
}

func TestExceededVehicle_Location_BlockOnly(t *testing.T) {
	block := "C"
	v := ExceededVehicle{Block: &block}
	if got := v.Location(); got != "Bloco C" {
		t.Errorf("Location() = %q, want %q", got, "Bloco C")
	}
}
