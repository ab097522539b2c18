package services

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/finsightlabs/finsight-go/models"
)

const priceGridPoints = 100

// SuggestPrices fits a tiny demand line per product from three synthetic
// points around the current price, samples 100 candidate prices across that
// band, and picks the one maximizing price times predicted sales. Results
// come back in input order.
func SuggestPrices(products []models.Product) []models.Suggestion {
	suggestions := make([]models.Suggestion, 0, len(products))
	for _, product := range products {
		suggestions = append(suggestions, suggestPrice(product))
	}
	return suggestions
}

func suggestPrice(product models.Product) models.Suggestion {
	prices := []float64{product.Price - 5, product.Price, product.Price + 5}
	sales := []float64{
		float64(product.SalesVolume + 5),
		float64(product.SalesVolume),
		float64(product.SalesVolume - 5),
	}

	// Degenerate demand (no sales variation): keep the current price.
	if sales[0] == sales[1] && sales[1] == sales[2] {
		return models.Suggestion{
			SuggestedPrice:  product.Price,
			PredictedSales:  product.SalesVolume,
			ExpectedRevenue: round2(product.Price * float64(product.SalesVolume)),
		}
	}

	alpha, beta := stat.LinearRegression(prices, sales, nil, false)

	grid := floats.Span(make([]float64, priceGridPoints), prices[0], prices[2])
	bestIdx := 0
	bestRevenue := math.Inf(-1)
	for i, price := range grid {
		predicted := alpha + beta*price
		revenue := price * predicted
		if revenue > bestRevenue {
			bestRevenue = revenue
			bestIdx = i
		}
	}

	bestPrice := grid[bestIdx]
	predicted := alpha + beta*bestPrice
	return models.Suggestion{
		SuggestedPrice:  round2(bestPrice),
		PredictedSales:  int(predicted),
		ExpectedRevenue: round2(bestPrice * predicted),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
