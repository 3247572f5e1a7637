package orders

const (
	TopicOrderCreated = "order.created"
)

// Partition key = order_id, so all events for one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
