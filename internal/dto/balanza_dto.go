package dto

import "github.com/shopspring/decimal"

type ModoBalanzaRequest struct {
	Modo string `json:"modo" validate:"required,oneof=manual simulacion"`
}

type LecturaBalanzaRequest struct {
	Peso decimal.Decimal `json:"peso" validate:"min=0"`
}

type BalanzaResponse struct {
	Modo    string          `json:"modo"`
	Lectura decimal.Decimal `json:"lectura"`
}
