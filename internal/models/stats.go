package models

// OrderSummary is a read-only projection over a set of orders, used for the
// admin "today" view and the daily summary job.
type OrderSummary struct {
	Total            int            `json:"total"`
	ByStatus         map[string]int `json:"by_status"`
	CompletedRevenue float64        `json:"completed_revenue"`
	Orders           []*Order       `json:"-"`
}

// Summarize partitions orders by status and adds up completed revenue
func Summarize(orders []*Order) *OrderSummary {
	s := &OrderSummary{
		Total:    len(orders),
		ByStatus: make(map[string]int),
		Orders:   orders,
	}
	for _, o := range orders {
		s.ByStatus[o.Status]++
		if o.Status == OrderStatusCompleted {
			s.CompletedRevenue += o.Total
		}
	}
	return s
}
