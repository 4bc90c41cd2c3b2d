// Package matcher answers customer questions from a fixed FAQ table.
package matcher

import (
	"strings"

	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

// Rule pairs a keyword with its canned response.
type Rule struct {
	Keyword  string
	Response string
}

// DefaultResponse is returned when no rule matches.
const DefaultResponse = "Thank you for your query. Our team will respond within 24 hours."

// Rules is evaluated in order; the first keyword found in the text wins.
var Rules = []Rule{
	{Keyword: "return", Response: "Items can be returned within 30 days with receipt for a full refund."},
	{Keyword: "hours", Response: "We are open Monday-Sunday: 8AM-10PM."},
	{Keyword: "delivery", Response: "Free delivery on orders over $50. Same-day delivery available for orders before 2PM."},
	{Keyword: "payment", Response: "We accept cash, credit cards, Apple Pay, and Google Pay."},
	{Keyword: "loyalty", Response: "Join our rewards program for 5% cashback on all purchases!"},
}

// Result is the outcome of matching one question.
type Result struct {
	Response  string
	Status    string
	QueryType string
}

// Match lower-cases text and returns the first rule whose keyword it contains.
func Match(text string) Result {
	lower := strings.ToLower(text)
	for _, r := range Rules {
		if strings.Contains(lower, r.Keyword) {
			return Result{Response: r.Response, Status: models.QueryResolved, QueryType: r.Keyword}
		}
	}
	return Result{Response: DefaultResponse, Status: models.QueryPending, QueryType: models.QueryTypeGeneral}
}

// Submit builds the query draft the market store accepts.
func Submit(customerName, text string) models.CustomerQuery {
	r := Match(text)
	return models.CustomerQuery{
		CustomerName: customerName,
		QueryType:    r.QueryType,
		Query:        text,
		Response:     r.Response,
		Status:       r.Status,
	}
}
