package framebus

// CalculateDropRate returns the drop rate as a fraction (0.0 to 1.0).
// Returns 0.0 if no frames have been sent or dropped.
func CalculateDropRate(stats BusStats) float64 {
	return dropRate(stats.TotalSent, stats.TotalDropped)
}

// CalculateSubscriberDropRate returns the drop rate for one consumer.
// Returns 0.0 if the consumer is unknown or has seen no frames.
func CalculateSubscriberDropRate(stats BusStats, id string) float64 {
	sub, exists := stats.Subscribers[id]
	if !exists {
		return 0.0
	}
	return dropRate(sub.Sent, sub.Dropped)
}

func dropRate(sent, dropped uint64) float64 {
	total := sent + dropped
	if total == 0 {
		return 0.0
	}
	return float64(dropped) / float64(total)
}
