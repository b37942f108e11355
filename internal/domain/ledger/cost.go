package ledger

import "github.com/shopspring/decimal"

// WeightedAverageCost implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockExistente * CostoExistente) + (CantEntrante * CostoEntrante)) / (StockExistente + CantEntrante)
//
// StockExistente debe ser la cantidad PREVIA al posting, no el disponible ya
// mutado, para no contar doble la entrada. Si el total es <= 0 (stock negativo
// absorbido por una entrada), el costo entrante define el nuevo costo.
func WeightedAverageCost(existingQty, existingCost, incomingQty, incomingCost decimal.Decimal) decimal.Decimal {
	total := existingQty.Add(incomingQty)
	if total.LessThanOrEqual(decimal.Zero) {
		return incomingCost
	}
	num := existingQty.Mul(existingCost).Add(incomingQty.Mul(incomingCost))
	return num.Div(total)
}
